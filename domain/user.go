package domain

import "time"

// User is the account record backing a Subject. Only the fields the identity
// core needs are modeled here; profile data lives with the platform services.
type User struct {
	ID                 string     `bson:"_id,omitempty"`
	Email              string     `bson:"email"`
	Username           string     `bson:"username"`
	PasswordHash       string     `bson:"password_hash"`
	Enabled            bool       `bson:"enabled"`
	TwoFactorEnabled   bool       `bson:"two_factor_enabled"`
	TwoFactorCode      string     `bson:"two_factor_code,omitempty"`
	TwoFactorExpiresAt *time.Time `bson:"two_factor_expires_at,omitempty"`
	CreatedAt          time.Time  `bson:"created_at"`
}

// Subject returns the resolved identity handed to the rest of the platform.
func (u *User) Subject() Subject {
	return Subject{ID: u.ID, Email: u.Email}
}
