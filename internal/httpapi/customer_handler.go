package httpapi

import (
	"net/http"
	"strings"

	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// CustomerHandler 客户接待：创建走身份解析，其余是常规 CRUD
type CustomerHandler struct {
	identity service.IdentityService
	svc      service.CustomerService
}

func NewCustomerHandler(identity service.IdentityService, svc service.CustomerService) *CustomerHandler {
	return &CustomerHandler{identity: identity, svc: svc}
}

// customerOut 客户 JSON 视图
func customerOut(c *repository.CustomerView) map[string]any {
	return map[string]any{
		"customer_id":  c.CustomerID,
		"agency_id":    c.AgencyID,
		"contact_id":   c.ContactID,
		"user_id":      c.UserID,
		"service_type": c.ServiceType,
		"notes":        c.Notes,
		"first_name":   c.FirstName,
		"last_name":    c.LastName,
		"middle_name":  c.MiddleName,
		"phone":        c.NormalizedPhone,
		"deleted":      c.DeletedAt != nil,
		"created_at":   c.CreatedAt,
		"updated_at":   c.UpdatedAt,
	}
}

type resolveCustomerBody struct {
	Phone       string   `json:"phone"`
	FirstName   *string  `json:"first_name"`
	LastName    *string  `json:"last_name"`
	MiddleName  *string  `json:"middle_name"`
	Email       *string  `json:"email"`
	ExtraPhones []string `json:"extra_phones"`
	Notes       *string  `json:"notes"`
	ServiceType *string  `json:"service_type"`
	UserID      *string  `json:"user_id"`
}

// Collection GET/POST /api/v1/customers
// POST 是幂等的：已存在的客户会被复用并合并提交的字段
func (h *CustomerHandler) Collection(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		resp, err := h.svc.ListCustomers(r.Context(), service.ListCustomersRequest{
			AgencyID:       tc.AgencyID,
			ServiceType:    r.URL.Query().Get("service_type"),
			Search:         r.URL.Query().Get("search"),
			IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
			Page:           parseInt(r.URL.Query().Get("page"), 1),
			Size:           parseInt(r.URL.Query().Get("size"), 20),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		items := make([]any, 0, len(resp.Customers))
		for _, c := range resp.Customers {
			items = append(items, customerOut(c))
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{
			"items": items,
			"total": resp.Total,
			"page":  resp.Page,
			"size":  resp.Size,
		}))

	case http.MethodPost:
		var body resolveCustomerBody
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		resp, err := h.identity.ResolveCustomer(r.Context(), service.ResolveCustomerRequest{
			AgencyID:    tc.AgencyID,
			Phone:       body.Phone,
			FirstName:   body.FirstName,
			LastName:    body.LastName,
			MiddleName:  body.MiddleName,
			Email:       body.Email,
			ExtraPhones: body.ExtraPhones,
			Notes:       body.Notes,
			ServiceType: body.ServiceType,
			UserID:      body.UserID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, Ok(map[string]any{
			"customer": resp.Customer,
			"contact":  resp.Contact,
			"person": map[string]any{
				"person_id":        resp.Person.PersonID,
				"normalized_phone": resp.Person.NormalizedPhone,
			},
		}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Item GET/PATCH/DELETE /api/v1/customers/{id}
func (h *CustomerHandler) Item(w http.ResponseWriter, r *http.Request) {
	tc, ok := requireTenant(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/customers/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		customer, err := h.svc.GetCustomer(r.Context(), tc.AgencyID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(customerOut(customer)))

	case http.MethodPatch, http.MethodPut:
		var body struct {
			ServiceType *string `json:"service_type"`
			UserID      *string `json:"user_id"`
			Notes       *string `json:"notes"`
		}
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		customer, err := h.svc.UpdateCustomer(r.Context(), service.UpdateCustomerRequest{
			AgencyID:    tc.AgencyID,
			CustomerID:  id,
			ServiceType: body.ServiceType,
			UserID:      body.UserID,
			Notes:       body.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(customerOut(customer)))

	case http.MethodDelete:
		if err := h.svc.DeleteCustomer(r.Context(), tc.AgencyID, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
