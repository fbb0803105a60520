package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarlen/quillpost/internal/domain"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue(42, domain.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
}

func TestTokenService_VerifyExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)
	// Negative TTL falls back to the default, so build one expired by hand.
	svc.ttl = -time.Minute

	token, err := svc.Issue(1, domain.RoleUser)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenService_VerifyWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).Issue(1, domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Hour).Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenService_VerifyMalformed(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken, "token %q", token)
	}
}

func TestTokenService_ZeroTTLUsesDefault(t *testing.T) {
	svc := NewTokenService("test-secret", 0)
	assert.Equal(t, DefaultTokenTTL, svc.ttl)
}
