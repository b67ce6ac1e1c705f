package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
)

// stubIdentityService 记录最近一次解析请求
type stubIdentityService struct {
	lastResolve        service.ResolveCustomerRequest
	lastResolveContact service.ResolveContactRequest
	resolveErr         error
}

func (s *stubIdentityService) ResolveCustomer(ctx context.Context, req service.ResolveCustomerRequest) (*service.ResolveCustomerResponse, error) {
	s.lastResolve = req
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return &service.ResolveCustomerResponse{
		Customer: &domain.Customer{CustomerID: "customer-1", AgencyID: req.AgencyID, ContactID: "contact-1"},
		Contact:  &domain.Contact{ContactID: "contact-1", AgencyID: req.AgencyID, PersonID: "person-1"},
		Person:   &domain.Person{PersonID: "person-1", NormalizedPhone: "77001234567"},
	}, nil
}

func (s *stubIdentityService) ResolveContact(ctx context.Context, req service.ResolveContactRequest) (*service.ResolveContactResponse, error) {
	s.lastResolveContact = req
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return &service.ResolveContactResponse{
		Contact: &domain.Contact{ContactID: "contact-1", AgencyID: req.AgencyID, PersonID: "person-1"},
		Person:  &domain.Person{PersonID: "person-1", NormalizedPhone: "77001234567"},
	}, nil
}

type stubCustomerService struct {
	getErr error
}

func (s *stubCustomerService) GetCustomer(ctx context.Context, tenantID, customerID string) (*repository.CustomerView, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	v := &repository.CustomerView{FirstName: "Aigerim", NormalizedPhone: "77001234567"}
	v.CustomerID = customerID
	v.AgencyID = tenantID
	v.ContactID = "contact-1"
	v.ServiceType = domain.ServiceTypeBuy
	return v, nil
}

func (s *stubCustomerService) ListCustomers(ctx context.Context, req service.ListCustomersRequest) (*service.ListCustomersResponse, error) {
	return &service.ListCustomersResponse{Customers: nil, Total: 0, Page: req.Page, Size: req.Size}, nil
}

func (s *stubCustomerService) UpdateCustomer(ctx context.Context, req service.UpdateCustomerRequest) (*repository.CustomerView, error) {
	return s.GetCustomer(ctx, req.AgencyID, req.CustomerID)
}

func (s *stubCustomerService) DeleteCustomer(ctx context.Context, tenantID, customerID string) error {
	return s.getErr
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(WithTenant(req.Context(), TenantContext{
		UserID:   "user-1",
		AgencyID: "agency-1",
		Role:     "agent",
	}))
}

func TestCustomerCollection_PostResolvesWithTenantFromToken(t *testing.T) {
	identity := &stubIdentityService{}
	h := NewCustomerHandler(identity, &stubCustomerService{})

	rec := httptest.NewRecorder()
	h.Collection(rec, authedRequest(http.MethodPost, "/api/v1/customers",
		`{"phone":"+7 700 123 45 67","first_name":"Aigerim","service_type":"buy"}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	// 租户只来自令牌，不来自请求体
	assert.Equal(t, "agency-1", identity.lastResolve.AgencyID)
	assert.Equal(t, "+7 700 123 45 67", identity.lastResolve.Phone)

	var res Result[map[string]any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ResultSuccess, res.Code)
	person, ok := res.Result["person"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "77001234567", person["normalized_phone"])
}

func TestCustomerCollection_PostValidationErrorGives422(t *testing.T) {
	v := domain.NewValidationError()
	v.Add("phone", "cannot be normalized to a valid phone number")
	identity := &stubIdentityService{resolveErr: v}
	h := NewCustomerHandler(identity, &stubCustomerService{})

	rec := httptest.NewRecorder()
	h.Collection(rec, authedRequest(http.MethodPost, "/api/v1/customers", `{"phone":"123"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCustomerCollection_RequiresAuth(t *testing.T) {
	h := NewCustomerHandler(&stubIdentityService{}, &stubCustomerService{})

	rec := httptest.NewRecorder()
	h.Collection(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCustomerItem_GetNotFoundGives404(t *testing.T) {
	h := NewCustomerHandler(&stubIdentityService{}, &stubCustomerService{getErr: domain.ErrNotFound})

	rec := httptest.NewRecorder()
	h.Item(rec, authedRequest(http.MethodGet, "/api/v1/customers/customer-404", ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerItem_Get(t *testing.T) {
	h := NewCustomerHandler(&stubIdentityService{}, &stubCustomerService{})

	rec := httptest.NewRecorder()
	h.Item(rec, authedRequest(http.MethodGet, "/api/v1/customers/customer-1", ""))

	assert.Equal(t, http.StatusOK, rec.Code)

	var res Result[map[string]any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "customer-1", res.Result["customer_id"])
	assert.Equal(t, "77001234567", res.Result["phone"])
}
