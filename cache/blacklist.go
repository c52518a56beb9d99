package cache

import (
	"context"
	"time"
)

// BlacklistStore is the revocation registry: a time-windowed set of
// access-token JTIs that must be rejected even though their signature and
// expiry still verify. Entries carry a TTL equal to the remaining lifetime
// of the token they revoke, so the registry never outgrows the set of
// still-live tokens.
//
// Reads fail closed: when a lookup errors, the caller treats the token as
// possibly blacklisted and rejects it.
//
//go:generate mockgen -source=$GOFILE -destination=../mocks/mock_cache/mock_blacklist.go -package=mock_cache
type BlacklistStore interface {
	// Blacklist records the JTI for ttl. A ttl of zero or less is a no-op:
	// the token it would revoke is already past its natural expiry.
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted reports whether the JTI is currently revoked.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// Count returns the number of live entries, for metrics.
	Count(ctx context.Context) int

	Close() error
}
