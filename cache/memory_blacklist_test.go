package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlacklist(t *testing.T) {
	b := NewMemoryBlacklist()
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Blacklist(ctx, "jti-1", time.Minute))

	revoked, err := b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsBlacklisted(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.Equal(t, 1, b.Count(ctx))
}

func TestMemoryBlacklist_Expiry(t *testing.T) {
	b := NewMemoryBlacklist()
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Blacklist(ctx, "jti-short", 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	revoked, err := b.IsBlacklisted(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryBlacklist_NonPositiveTTLIsNoop(t *testing.T) {
	b := NewMemoryBlacklist()
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Blacklist(ctx, "jti-dead", 0))
	require.NoError(t, b.Blacklist(ctx, "jti-dead", -time.Minute))

	revoked, err := b.IsBlacklisted(ctx, "jti-dead")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("token-a")
	h2 := HashToken("token-a")
	h3 := HashToken("token-b")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // sha256 hex
}
