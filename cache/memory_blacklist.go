package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryBlacklist implements BlacklistStore using ttlcache. Suitable for
// single-instance deployments and tests; multi-instance deployments use the
// Redis store so revocations propagate across replicas.
type MemoryBlacklist struct {
	cache *ttlcache.Cache[string, time.Time]
}

// NewMemoryBlacklist creates an in-memory registry with automatic cleanup.
func NewMemoryBlacklist() *MemoryBlacklist {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)

	// Start the expiry loop
	go cache.Start()

	return &MemoryBlacklist{cache: cache}
}

// Blacklist implements BlacklistStore.Blacklist.
func (b *MemoryBlacklist) Blacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.cache.Set(jti, time.Now().Add(ttl), ttl)
	return nil
}

// IsBlacklisted implements BlacklistStore.IsBlacklisted.
func (b *MemoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return b.cache.Get(jti) != nil, nil
}

// Count implements BlacklistStore.Count.
func (b *MemoryBlacklist) Count(_ context.Context) int {
	return b.cache.Len()
}

// Close stops the cleanup goroutine.
func (b *MemoryBlacklist) Close() error {
	b.cache.Stop()
	return nil
}
