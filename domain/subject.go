package domain

// Subject identifies an authenticated principal. It is the only thing the
// rest of the platform ever learns about a caller: services downstream of
// the identity core receive a resolved Subject, never raw tokens or hashes.
type Subject struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IsZero reports whether the subject carries no identity.
func (s Subject) IsZero() bool {
	return s.ID == "" && s.Email == ""
}
