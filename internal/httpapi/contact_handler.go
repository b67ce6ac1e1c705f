package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// ContactHandler 联系人 CRUD + 导出；创建走身份解析
type ContactHandler struct {
	identity service.IdentityService
	svc      service.ContactService
}

func NewContactHandler(identity service.IdentityService, svc service.ContactService) *ContactHandler {
	return &ContactHandler{identity: identity, svc: svc}
}

type resolveContactBody struct {
	Phone       string   `json:"phone"`
	FirstName   *string  `json:"first_name"`
	LastName    *string  `json:"last_name"`
	MiddleName  *string  `json:"middle_name"`
	Email       *string  `json:"email"`
	ExtraPhones []string `json:"extra_phones"`
	Notes       *string  `json:"notes"`
}

// contactOut 联系人 JSON 视图
func contactOut(c *repository.ContactView) map[string]any {
	return map[string]any{
		"contact_id":   c.ContactID,
		"agency_id":    c.AgencyID,
		"person_id":    c.PersonID,
		"phone":        c.NormalizedPhone,
		"first_name":   c.FirstName,
		"last_name":    c.LastName,
		"middle_name":  c.MiddleName,
		"full_name":    c.FullName(),
		"email":        c.Email,
		"extra_phones": c.ExtraPhones,
		"notes":        c.Notes,
		"deleted":      c.IsDeleted(),
		"created_at":   c.CreatedAt,
		"updated_at":   c.UpdatedAt,
	}
}

// Collection GET/POST /api/v1/contacts
// POST 是幂等的：同一电话的联系人会被复用并合并提交的字段
func (h *ContactHandler) Collection(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		resp, err := h.svc.ListContacts(r.Context(), service.ListContactsRequest{
			AgencyID:       tc.AgencyID,
			Search:         r.URL.Query().Get("search"),
			Phone:          r.URL.Query().Get("phone"),
			IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
			Page:           parseInt(r.URL.Query().Get("page"), 1),
			Size:           parseInt(r.URL.Query().Get("size"), 20),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		items := make([]any, 0, len(resp.Contacts))
		for _, c := range resp.Contacts {
			items = append(items, contactOut(c))
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{
			"items": items,
			"total": resp.Total,
			"page":  resp.Page,
			"size":  resp.Size,
		}))

	case http.MethodPost:
		var body resolveContactBody
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		resp, err := h.identity.ResolveContact(r.Context(), service.ResolveContactRequest{
			AgencyID:    tc.AgencyID,
			Phone:       body.Phone,
			FirstName:   body.FirstName,
			LastName:    body.LastName,
			MiddleName:  body.MiddleName,
			Email:       body.Email,
			ExtraPhones: body.ExtraPhones,
			Notes:       body.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, Ok(map[string]any{
			"contact": resp.Contact,
			"person": map[string]any{
				"person_id":        resp.Person.PersonID,
				"normalized_phone": resp.Person.NormalizedPhone,
			},
		}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Item GET/PATCH/DELETE /api/v1/contacts/{id} 以及 POST .../restore
func (h *ContactHandler) Item(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/contacts/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 2 && parts[1] == "restore" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.svc.RestoreContact(r.Context(), tc.AgencyID, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"restored": true}))
		return
	}
	if len(parts) > 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		contact, err := h.svc.GetContact(r.Context(), tc.AgencyID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(contactOut(contact)))

	case http.MethodPatch, http.MethodPut:
		var body struct {
			Phone       *string  `json:"phone"`
			FirstName   *string  `json:"first_name"`
			LastName    *string  `json:"last_name"`
			MiddleName  *string  `json:"middle_name"`
			Email       *string  `json:"email"`
			ExtraPhones []string `json:"extra_phones"`
			Notes       *string  `json:"notes"`
		}
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		contact, err := h.svc.UpdateContact(r.Context(), service.UpdateContactRequest{
			AgencyID:    tc.AgencyID,
			ContactID:   id,
			Phone:       body.Phone,
			FirstName:   body.FirstName,
			LastName:    body.LastName,
			MiddleName:  body.MiddleName,
			Email:       body.Email,
			ExtraPhones: body.ExtraPhones,
			Notes:       body.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(contactOut(contact)))

	case http.MethodDelete:
		if err := h.svc.DeleteContact(r.Context(), tc.AgencyID, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Export GET /api/v1/contacts/export — XLSX 下载
func (h *ContactHandler) Export(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data, err := h.svc.ExportContacts(r.Context(), tc.AgencyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("contacts-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
