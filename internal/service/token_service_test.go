package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peoplehub/people-api/internal/models"
	"github.com/peoplehub/people-api/pkg/config"
)

func newTokenService() *TokenService {
	return NewTokenService(config.JWTConfig{Secret: "test-secret", Issuer: "people-api"})
}

func TestTokenServiceIssueVerify(t *testing.T) {
	svc := newTokenService()
	user := &models.User{ID: "u1", Email: "user@example.com"}

	token, expiresAt, err := svc.Issue(user, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "people-api", claims.Issuer)
}

func TestTokenServiceVerifyExpired(t *testing.T) {
	svc := newTokenService()
	token, _, err := svc.Issue(&models.User{ID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
}

func TestTokenServiceVerifyWrongSecret(t *testing.T) {
	svc := newTokenService()
	other := NewTokenService(config.JWTConfig{Secret: "other-secret", Issuer: "people-api"})

	token, _, err := other.Issue(&models.User{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
}

func TestTokenServiceVerifyTampered(t *testing.T) {
	svc := newTokenService()
	token, _, err := svc.Issue(&models.User{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	_, err = svc.Verify(tampered)
	require.Error(t, err)
}

func TestTokenServiceDecodeExpiredToken(t *testing.T) {
	svc := newTokenService()
	token, _, err := svc.Issue(&models.User{ID: "u1", Email: "user@example.com"}, -time.Minute)
	require.NoError(t, err)

	// Decode must still read claims from an expired token so logout
	// can derive the blacklist TTL.
	claims, err := svc.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.Before(time.Now()))
}

func TestTokenServiceDecodeGarbage(t *testing.T) {
	svc := newTokenService()
	_, err := svc.Decode("not-a-token")
	require.Error(t, err)
}
