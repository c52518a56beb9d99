package api

import "time"

// Token type constants.
const (
	TokenTypeBearer = "Bearer"
)

// TokenResponse is the OAuth2 §5.1 token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// SessionView is the account-security listing of one active session. The
// session ID exposed here is the refresh-token hash; the raw token is never
// returned.
type SessionView struct {
	SessionID    string    `json:"session_id"`
	DeviceType   string    `json:"device_type,omitempty"`
	DeviceName   string    `json:"device_name,omitempty"`
	IPAddress    string    `json:"ip_address"`
	Location     string    `json:"location,omitempty"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Current      bool      `json:"current"`
}
