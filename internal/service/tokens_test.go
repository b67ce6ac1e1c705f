package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

func TestIssueAndParseAccessToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)

	token, expiresAt, err := tm.IssueAccessToken("user-1", "agency-1", "agent")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "agency-1", claims.AgencyID)
	assert.Equal(t, "agent", claims.Role)
}

func TestParseAccessToken_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)
	other := NewTokenManager("other-secret", 15*time.Minute, 24*time.Hour)

	token, _, err := tm.IssueAccessToken("user-1", "agency-1", "agent")
	require.NoError(t, err)

	_, err = other.ParseAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestParseAccessToken_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute, 24*time.Hour)

	token, _, err := tm.IssueAccessToken("user-1", "agency-1", "agent")
	require.NoError(t, err)

	_, err = tm.ParseAccessToken(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestParseAccessToken_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)

	_, err := tm.ParseAccessToken("not.a.token")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestNewRefreshToken_IsOpaqueAndUnique(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)

	a := tm.NewRefreshToken()
	b := tm.NewRefreshToken()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
