package httpapi

import (
	"net/http"
	"strings"

	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// OwnerHandler 房产业主：添加走身份解析 + 套餐限额检查
type OwnerHandler struct {
	svc service.PropertyOwnerService
}

func NewOwnerHandler(svc service.PropertyOwnerService) *OwnerHandler {
	return &OwnerHandler{svc: svc}
}

// ownerOut 业主 JSON 视图
func ownerOut(o *repository.OwnerView) map[string]any {
	return map[string]any{
		"owner_id":    o.OwnerID,
		"property_id": o.PropertyID,
		"agency_id":   o.AgencyID,
		"contact_id":  o.ContactID,
		"user_id":     o.UserID,
		"role":        o.Role,
		"notes":       o.Notes,
		"first_name":  o.FirstName,
		"last_name":   o.LastName,
		"middle_name": o.MiddleName,
		"phone":       o.NormalizedPhone,
		"deleted":     o.DeletedAt != nil,
		"created_at":  o.CreatedAt,
	}
}

// PropertyOwners GET/POST /api/v1/properties/{propertyID}/owners
func (h *OwnerHandler) PropertyOwners(w http.ResponseWriter, r *http.Request, propertyID string) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		owners, err := h.svc.ListOwners(r.Context(), tc.AgencyID, propertyID,
			r.URL.Query().Get("include_deleted") == "true")
		if err != nil {
			writeDomainError(w, err)
			return
		}
		items := make([]any, 0, len(owners))
		for _, o := range owners {
			items = append(items, ownerOut(o))
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))

	case http.MethodPost:
		var body struct {
			Phone       string   `json:"phone"`
			FirstName   *string  `json:"first_name"`
			LastName    *string  `json:"last_name"`
			MiddleName  *string  `json:"middle_name"`
			Email       *string  `json:"email"`
			ExtraPhones []string `json:"extra_phones"`
			Notes       *string  `json:"notes"`
			Role        string   `json:"role"`
			UserID      *string  `json:"user_id"`
		}
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		owner, err := h.svc.AddOwner(r.Context(), service.AddOwnerRequest{
			AgencyID:    tc.AgencyID,
			PropertyID:  propertyID,
			Phone:       body.Phone,
			FirstName:   body.FirstName,
			LastName:    body.LastName,
			MiddleName:  body.MiddleName,
			Email:       body.Email,
			ExtraPhones: body.ExtraPhones,
			Notes:       body.Notes,
			Role:        body.Role,
			UserID:      body.UserID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, Ok(ownerOut(owner)))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Item GET/DELETE /api/v1/owners/{id}
func (h *OwnerHandler) Item(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/owners/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		owner, err := h.svc.GetOwner(r.Context(), tc.AgencyID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(ownerOut(owner)))

	case http.MethodDelete:
		if err := h.svc.DeleteOwner(r.Context(), tc.AgencyID, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
