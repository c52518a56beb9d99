package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Blacklist implements cache.BlacklistStore backed by Redis. Each revoked
// JTI is a key with a native TTL, so expiry needs no sweeper and the
// registry is shared by every server instance.
type Blacklist struct {
	client *redis.Client
	prefix string
}

// NewBlacklist creates a new Redis-backed revocation registry. The prefix
// namespaces keys when the Redis instance is shared.
func NewBlacklist(client *redis.Client, prefix string) *Blacklist {
	return &Blacklist{client: client, prefix: prefix}
}

func (b *Blacklist) key(jti string) string {
	return fmt.Sprintf("%s:revoked_jti:%s", b.prefix, jti)
}

// Blacklist implements cache.BlacklistStore.Blacklist.
func (b *Blacklist) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist jti: %w", err)
	}
	return nil
}

// IsBlacklisted implements cache.BlacklistStore.IsBlacklisted. The error is
// surfaced so callers can fail closed on a registry outage.
func (b *Blacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check jti blacklist: %w", err)
	}
	return n > 0, nil
}

// Count implements cache.BlacklistStore.Count. SCAN-based, so approximate
// under concurrent writes; only used for metrics.
func (b *Blacklist) Count(ctx context.Context) int {
	var count int
	var cursor uint64
	pattern := b.key("*")

	for {
		keys, next, err := b.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.Warn().Err(err).Msg("failed to scan revocation registry")
			break
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count
}

// Close releases the underlying client connection.
func (b *Blacklist) Close() error {
	return b.client.Close()
}
