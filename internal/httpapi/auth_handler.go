package httpapi

import (
	"net/http"

	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// AuthHandler 注册/登录/刷新/注销
type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerBody struct {
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	MiddleName  string `json:"middle_name"`
	AgencyTitle string `json:"agency_title"`
	AgencySlug  string `json:"agency_slug"`
}

// Register POST /auth/api/v1/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.svc.Register(r.Context(), service.RegisterRequest{
		Phone:       body.Phone,
		Email:       body.Email,
		Password:    body.Password,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		MiddleName:  body.MiddleName,
		AgencyTitle: body.AgencyTitle,
		AgencySlug:  body.AgencySlug,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /auth/api/v1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.svc.Login(r.Context(), service.LoginRequest{
		Email:    body.Email,
		Password: body.Password,
		IP:       clientIP(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type refreshBody struct {
	UserID       string `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh POST /auth/api/v1/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.svc.Refresh(r.Context(), service.RefreshRequest{
		UserID:       body.UserID,
		RefreshToken: body.RefreshToken,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Logout POST /auth/api/v1/logout（需要认证）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tc, ok := TenantFrom(r.Context())
	if !ok || tc.UserID == "" {
		writeJSON(w, http.StatusUnauthorized, Result[any]{
			Code: ResultTokenExpired, Type: "error", Message: "authentication required",
		})
		return
	}

	if err := h.svc.Logout(r.Context(), tc.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"logged_out": true}))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
