package domain

import "time"

// Session is the durable record of one issued refresh token. The primary key
// is a one-way hash of the refresh token; the raw token never touches
// persistent storage or logs.
type Session struct {
	RefreshTokenHash     string    `bson:"_id"`
	SubjectID            string    `bson:"subject_id"`
	Email                string    `bson:"email"`
	AccessTokenJTI       string    `bson:"access_token_jti,omitempty"`
	AccessTokenExpiresAt time.Time `bson:"access_token_expires_at,omitempty"`
	DeviceType           string    `bson:"device_type,omitempty"`
	DeviceName           string    `bson:"device_name,omitempty"`
	IPAddress            string    `bson:"ip_address"`
	Location             string    `bson:"location,omitempty"`
	UserAgent            string    `bson:"user_agent,omitempty"`
	ExpiresAt            time.Time `bson:"expires_at"`
	Revoked              bool      `bson:"is_revoked"`
	LastActiveAt         time.Time `bson:"last_active_at"`
	CreatedAt            time.Time `bson:"created_at"`
}

// IsValid reports whether the session can still back a refresh.
func (s *Session) IsValid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// Revoke marks the session dead. The caller is responsible for persisting
// the change and for blacklisting the session's live access-token JTI.
func (s *Session) Revoke() {
	s.Revoked = true
}

// Touch updates the activity timestamp and the current access-token JTI
// without extending the session's lifetime.
func (s *Session) Touch(now time.Time, jti string, jtiExpiresAt time.Time) {
	s.LastActiveAt = now
	s.AccessTokenJTI = jti
	s.AccessTokenExpiresAt = jtiExpiresAt
}

// DeviceContext carries the request-derived device and network origin
// attached to a session at creation time. Any field may be empty; the
// session store never fails creation over missing device data.
type DeviceContext struct {
	DeviceType string
	DeviceName string
	IPAddress  string
	Location   string
	UserAgent  string
}
