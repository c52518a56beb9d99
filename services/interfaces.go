package services

import (
	"context"

	"github.com/hyfata/agora-auth/domain"
)

// PasswordHasher hashes and verifies secrets: user passwords and client
// secrets both go through this, never plain-text equality.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns nil when the plaintext matches the hash.
	Verify(hashedPassword, password string) error
}

// DeviceResolver turns the raw request origin into the device context stored
// on a session. Implementations may return partial or "Unknown" data; they
// must never fail session creation.
type DeviceResolver interface {
	Resolve(ctx context.Context, userAgent, ip string) domain.DeviceContext
}
