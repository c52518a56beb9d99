package domain

import "time"

// AuthorizationCode is a one-time credential tying a login event to a
// client/redirect pair. A code transitions used=false -> used=true exactly
// once; there is no path back.
type AuthorizationCode struct {
	Code                string    `bson:"_id"`
	ClientID            string    `bson:"client_id"`
	SubjectID           string    `bson:"subject_id"`
	Email               string    `bson:"email"`
	RedirectURI         string    `bson:"redirect_uri"`
	State               string    `bson:"state,omitempty"`
	CodeChallenge       string    `bson:"code_challenge,omitempty"`
	CodeChallengeMethod string    `bson:"code_challenge_method,omitempty"`
	Used                bool      `bson:"used"`
	ExpiresAt           time.Time `bson:"expires_at"`
	CreatedAt           time.Time `bson:"created_at"`
}

// Expired reports whether the code is past its TTL.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// RequiresPKCE reports whether the code was issued against a code challenge,
// making a verifier mandatory at exchange time.
func (c *AuthorizationCode) RequiresPKCE() bool {
	return c.CodeChallenge != ""
}
