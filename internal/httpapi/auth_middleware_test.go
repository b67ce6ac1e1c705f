package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/service"
)

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	mw := NewAuthMiddleware(service.NewTokenManager("secret", time.Minute, time.Hour))

	handler := mw.Require(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var res Result[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ResultTokenExpired, res.Code)
}

func TestAuthMiddleware_RejectsBadToken(t *testing.T) {
	mw := NewAuthMiddleware(service.NewTokenManager("secret", time.Minute, time.Hour))

	handler := mw.Require(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_InjectsTenantContext(t *testing.T) {
	tokens := service.NewTokenManager("secret", time.Minute, time.Hour)
	mw := NewAuthMiddleware(tokens)

	token, _, err := tokens.IssueAccessToken("user-1", "agency-1", "agent")
	require.NoError(t, err)

	var got TenantContext
	handler := mw.Require(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := TenantFrom(r.Context())
		require.True(t, ok)
		got = tc
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TenantContext{UserID: "user-1", AgencyID: "agency-1", Role: "agent"}, got)
}

func TestRequireTenant_ForbidsUserWithoutAgency(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	req = req.WithContext(WithTenant(req.Context(), TenantContext{UserID: "user-1"}))

	rec := httptest.NewRecorder()
	_, ok := requireTenant(rec, req)

	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
