package domain

import "time"

// Client is a pre-provisioned first-party application. Secrets are stored
// bcrypt-hashed; the plaintext is only ever shown once, at registration.
type Client struct {
	ClientID     string    `bson:"_id"`
	SecretHash   string    `bson:"secret_hash"`
	Name         string    `bson:"name"`
	Description  string    `bson:"description,omitempty"`
	FrontendURL  string    `bson:"frontend_url,omitempty"`
	RedirectURIs []string  `bson:"redirect_uris"`
	Enabled      bool      `bson:"enabled"`
	CreatedAt    time.Time `bson:"created_at"`
}

// HasRedirectURI reports whether uri is one of the client's registered
// redirect URIs. Comparison is exact; no prefix or wildcard matching.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}
