package httpapi

import (
	"net/http"
	"strings"

	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// BuyRequestHandler 购房申请：公开提交（游客）+ 机构侧处理
type BuyRequestHandler struct {
	svc      service.BuyRequestService
	agencies repository.AgenciesRepository
}

func NewBuyRequestHandler(svc service.BuyRequestService, agencies repository.AgenciesRepository) *BuyRequestHandler {
	return &BuyRequestHandler{svc: svc, agencies: agencies}
}

// buyRequestOut 申请 JSON 视图
func buyRequestOut(b *repository.BuyRequestView) map[string]any {
	return map[string]any{
		"request_id":       b.RequestID,
		"property_id":      b.PropertyID,
		"agency_id":        b.AgencyID,
		"contact_id":       b.ContactID,
		"customer_id":      b.CustomerID,
		"user_id":          b.UserID,
		"status":           b.Status,
		"comment":          b.Comment,
		"response_message": b.ResponseMessage,
		"first_name":       b.FirstName,
		"last_name":        b.LastName,
		"phone":            b.NormalizedPhone,
		"deleted":          b.DeletedAt != nil,
		"created_at":       b.CreatedAt,
		"updated_at":       b.UpdatedAt,
	}
}

type submitBuyRequestBody struct {
	PropertyID string  `json:"property_id"`
	Phone      string  `json:"phone"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	Comment    string  `json:"comment"`
}

// PublicSubmit POST /public/api/v1/agencies/{slug}/buy-requests
// 游客路径：不要求认证，机构按 slug 定位
func (h *BuyRequestHandler) PublicSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/public/api/v1/agencies/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "buy-requests" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	agency, err := h.agencies.GetAgencyBySlug(r.Context(), parts[0])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !agency.IsActive() {
		writeJSON(w, http.StatusNotFound, Fail("agency is not available"))
		return
	}

	var body submitBuyRequestBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	// 已登录用户走同一路径时带上 user_id
	var userID *string
	if tc, ok := TenantFrom(r.Context()); ok && tc.UserID != "" {
		userID = &tc.UserID
	}

	resp, err := h.svc.SubmitBuyRequest(r.Context(), service.SubmitBuyRequestRequest{
		AgencyID:   agency.AgencyID,
		PropertyID: body.PropertyID,
		Phone:      body.Phone,
		FirstName:  body.FirstName,
		LastName:   body.LastName,
		Email:      body.Email,
		Comment:    body.Comment,
		UserID:     userID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(buyRequestOut(resp)))
}

// Collection GET /api/v1/buy-requests（机构侧，需要认证）
func (h *BuyRequestHandler) Collection(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp, err := h.svc.ListBuyRequests(r.Context(), service.ListBuyRequestsRequest{
		AgencyID:       tc.AgencyID,
		PropertyID:     r.URL.Query().Get("property_id"),
		Status:         r.URL.Query().Get("status"),
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
		Page:           parseInt(r.URL.Query().Get("page"), 1),
		Size:           parseInt(r.URL.Query().Get("size"), 20),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]any, 0, len(resp.Requests))
	for _, b := range resp.Requests {
		items = append(items, buyRequestOut(b))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
		"page":  resp.Page,
		"size":  resp.Size,
	}))
}

// Item GET/PATCH/DELETE /api/v1/buy-requests/{id}
func (h *BuyRequestHandler) Item(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/buy-requests/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		req, err := h.svc.GetBuyRequest(r.Context(), tc.AgencyID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(buyRequestOut(req)))

	case http.MethodPatch, http.MethodPut:
		var body struct {
			Status          *string `json:"status"`
			ResponseMessage *string `json:"response_message"`
		}
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		req, err := h.svc.UpdateBuyRequest(r.Context(), service.UpdateBuyRequestRequest{
			AgencyID:        tc.AgencyID,
			RequestID:       id,
			Status:          body.Status,
			ResponseMessage: body.ResponseMessage,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(buyRequestOut(req)))

	case http.MethodDelete:
		if err := h.svc.DeleteBuyRequest(r.Context(), tc.AgencyID, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
