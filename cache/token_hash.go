package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken reduces a token to its sha256 hex digest. Sessions are keyed by
// this hash so the raw refresh token is never stored or logged; the digest
// is also a fixed, index-friendly length.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
