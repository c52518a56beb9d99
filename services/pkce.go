package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE code-challenge methods (RFC 7636 §4.2).
const (
	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// RFC 7636 §4.1 verifier length bounds.
const (
	minVerifierLen = 43
	maxVerifierLen = 128
)

// IsWellFormedVerifier reports whether v satisfies the RFC 7636 grammar:
// 43-128 characters from the unreserved set. Malformed verifiers are
// rejected here, before any hashing, so garbage input never reaches the
// cryptographic comparison.
func IsWellFormedVerifier(v string) bool {
	if len(v) < minVerifierLen || len(v) > maxVerifierLen {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '.' || c == '_' || c == '~':
		default:
			return false
		}
	}
	return true
}

// VerifierMatches reports whether the verifier corresponds to the stored
// challenge under the given method. Comparisons are constant-time.
func VerifierMatches(verifier, challenge, method string) bool {
	switch method {
	case CodeChallengeMethodS256, "":
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	case CodeChallengeMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	default:
		return false
	}
}
