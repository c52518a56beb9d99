package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyfata/agora-auth/domain"
	serrors "github.com/hyfata/agora-auth/errors"
)

var testSecret = []byte(strings.Repeat("s", 32))

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, "test-issuer", accessTTL, refreshTTL)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenService([]byte("short"), "test-issuer", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 14*24*time.Hour)
	sub := domain.Subject{ID: "user-1", Email: "u@example.com"}

	result, err := svc.IssueAccessToken(sub)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.JTI)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), result.ExpiresAt, 5*time.Second)

	claims, err := svc.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, sub, claims.Subject)
	assert.Equal(t, result.JTI, claims.JTI)
	assert.WithinDuration(t, result.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestTokenService_JTIUnique(t *testing.T) {
	svc := newTestTokenService(t, time.Minute, time.Hour)
	sub := domain.Subject{ID: "user-1"}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		result, err := svc.IssueAccessToken(sub)
		require.NoError(t, err)
		assert.False(t, seen[result.JTI], "duplicate jti issued")
		seen[result.JTI] = true
	}
}

func TestTokenService_Verify_Expired(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute, time.Hour)

	result, err := svc.IssueAccessToken(domain.Subject{ID: "user-1"})
	require.NoError(t, err)

	_, err = svc.Verify(result.Token)
	assert.ErrorIs(t, err, serrors.ErrTokenExpired)
}

func TestTokenService_Verify_Tampered(t *testing.T) {
	svc := newTestTokenService(t, time.Minute, time.Hour)

	result, err := svc.IssueAccessToken(domain.Subject{ID: "user-1"})
	require.NoError(t, err)

	tampered := result.Token[:len(result.Token)-2] + "xx"
	_, err = svc.Verify(tampered)
	assert.ErrorIs(t, err, serrors.ErrTokenMalformed)
}

func TestTokenService_Verify_WrongKey(t *testing.T) {
	svc := newTestTokenService(t, time.Minute, time.Hour)
	other, err := NewTokenService([]byte(strings.Repeat("o", 32)), "test-issuer", time.Minute, time.Hour)
	require.NoError(t, err)

	result, err := other.IssueAccessToken(domain.Subject{ID: "user-1"})
	require.NoError(t, err)

	_, err = svc.Verify(result.Token)
	assert.ErrorIs(t, err, serrors.ErrTokenMalformed)
}

func TestTokenService_Verify_WrongIssuer(t *testing.T) {
	other, err := NewTokenService(testSecret, "someone-else", time.Minute, time.Hour)
	require.NoError(t, err)
	svc := newTestTokenService(t, time.Minute, time.Hour)

	result, err := other.IssueAccessToken(domain.Subject{ID: "user-1"})
	require.NoError(t, err)

	_, err = svc.Verify(result.Token)
	assert.ErrorIs(t, err, serrors.ErrTokenMalformed)
}

func TestTokenService_Verify_Garbage(t *testing.T) {
	svc := newTestTokenService(t, time.Minute, time.Hour)

	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, serrors.ErrTokenMalformed)

	_, err = svc.Verify("")
	assert.ErrorIs(t, err, serrors.ErrTokenMalformed)
}
