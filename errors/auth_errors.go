package errors

import "errors"

// Internal error taxonomy. These never cross the wire verbatim: the HTTP
// layer maps them onto the OAuth2 categories above (grant and client
// failures to 400, token and session failures to 401, infrastructure to 500).
var (
	// ErrInvalidGrant covers every authorization-code failure: unknown,
	// expired or replayed code, redirect mismatch, PKCE failure. Callers
	// must not leak which check failed.
	ErrInvalidGrant = errors.New("invalid authorization grant")

	// ErrInvalidClient covers unknown, disabled and badly-authenticated
	// clients, reported identically.
	ErrInvalidClient = errors.New("invalid client credentials")

	// ErrSessionRevoked is a structurally valid token whose backing
	// session is gone. Revocation is store-authoritative.
	ErrSessionRevoked = errors.New("session invalid or revoked")

	// ErrTokenMalformed is a token with a bad signature or structure.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenExpired is a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrForbidden is an ownership violation, e.g. revoking another
	// subject's session.
	ErrForbidden = errors.New("forbidden")

	// ErrStoreUnavailable signals a genuine infrastructure fault, the
	// only class of failure that surfaces as HTTP 500.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)
