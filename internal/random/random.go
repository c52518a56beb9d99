// Package random generates the opaque credentials the identity core hands
// out: authorization codes, client secrets and 2FA codes.
package random

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Opaque returns a URL-safe random string built from n bytes of entropy.
// 32 bytes gives authorization codes and client secrets 256 bits of entropy.
func Opaque(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Digits returns a string of n random decimal digits, used for 2FA codes.
func Digits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}
