package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
)

type stubContactService struct {
	getErr error
}

func (s *stubContactService) GetContact(ctx context.Context, tenantID, contactID string) (*repository.ContactView, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	v := &repository.ContactView{NormalizedPhone: "77001234567"}
	v.ContactID = contactID
	v.AgencyID = tenantID
	v.PersonID = "person-1"
	v.FirstName = "Aigerim"
	return v, nil
}

func (s *stubContactService) ListContacts(ctx context.Context, req service.ListContactsRequest) (*service.ListContactsResponse, error) {
	return &service.ListContactsResponse{Contacts: nil, Total: 0, Page: req.Page, Size: req.Size}, nil
}

func (s *stubContactService) UpdateContact(ctx context.Context, req service.UpdateContactRequest) (*repository.ContactView, error) {
	return s.GetContact(ctx, req.AgencyID, req.ContactID)
}

func (s *stubContactService) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	return s.getErr
}

func (s *stubContactService) RestoreContact(ctx context.Context, tenantID, contactID string) error {
	return s.getErr
}

func (s *stubContactService) ExportContacts(ctx context.Context, tenantID string) ([]byte, error) {
	return []byte("xlsx"), nil
}

func TestContactCollection_PostResolvesWithTenantFromToken(t *testing.T) {
	identity := &stubIdentityService{}
	h := NewContactHandler(identity, &stubContactService{})

	rec := httptest.NewRecorder()
	h.Collection(rec, authedRequest(http.MethodPost, "/api/v1/contacts",
		`{"phone":"+7 700 123 45 67","first_name":"Aigerim","extra_phones":["8 700 765 43 21"]}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	// 租户只来自令牌，不来自请求体
	assert.Equal(t, "agency-1", identity.lastResolveContact.AgencyID)
	assert.Equal(t, "+7 700 123 45 67", identity.lastResolveContact.Phone)
	require.NotNil(t, identity.lastResolveContact.FirstName)
	assert.Equal(t, "Aigerim", *identity.lastResolveContact.FirstName)
	assert.Equal(t, []string{"8 700 765 43 21"}, identity.lastResolveContact.ExtraPhones)

	var res Result[map[string]any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ResultSuccess, res.Code)
	person, ok := res.Result["person"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "77001234567", person["normalized_phone"])
}

func TestContactCollection_PostInvalidPhoneGives400(t *testing.T) {
	identity := &stubIdentityService{resolveErr: domain.InvalidArgumentf("phone cannot be normalized")}
	h := NewContactHandler(identity, &stubContactService{})

	rec := httptest.NewRecorder()
	h.Collection(rec, authedRequest(http.MethodPost, "/api/v1/contacts", `{"phone":"123"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactCollection_PostBadBodyGives400(t *testing.T) {
	h := NewContactHandler(&stubIdentityService{}, &stubContactService{})

	rec := httptest.NewRecorder()
	h.Collection(rec, authedRequest(http.MethodPost, "/api/v1/contacts", `{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactCollection_RequiresAuth(t *testing.T) {
	h := NewContactHandler(&stubIdentityService{}, &stubContactService{})

	rec := httptest.NewRecorder()
	h.Collection(rec, httptest.NewRequest(http.MethodPost, "/api/v1/contacts", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactItem_GetNotFoundGives404(t *testing.T) {
	h := NewContactHandler(&stubIdentityService{}, &stubContactService{getErr: domain.ErrNotFound})

	rec := httptest.NewRecorder()
	h.Item(rec, authedRequest(http.MethodGet, "/api/v1/contacts/contact-404", ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
