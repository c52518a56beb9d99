package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when the requested record does not
// exist. Callers decide whether absence is an error or a normal outcome.
var ErrNotFound = errors.New("record not found")

// SessionRepository persists login sessions, keyed by refresh-token hash.
//
//go:generate mockgen -source=$GOFILE -destination=../mocks/mock_domain/mock_repositories.go -package=mock_domain
type SessionRepository interface {
	StoreSession(ctx context.Context, session *Session) error
	GetSessionByHash(ctx context.Context, hash string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error

	// CountActiveSessions counts the subject's sessions that are still
	// valid at the given instant (not revoked, not expired).
	CountActiveSessions(ctx context.Context, subjectID string, now time.Time) (int64, error)
	// OldestActiveSession returns the subject's valid session with the
	// earliest creation time. ErrNotFound when the subject has none.
	OldestActiveSession(ctx context.Context, subjectID string, now time.Time) (*Session, error)
	ListActiveSessions(ctx context.Context, subjectID string, now time.Time) ([]*Session, error)

	// RevokeAllForSubject marks every session of the subject revoked,
	// skipping exceptHash when non-empty. Returns the number of sessions
	// transitioned.
	RevokeAllForSubject(ctx context.Context, subjectID string, exceptHash string) (int64, error)

	// DeleteExpiredSessions removes sessions whose expiry is before the
	// cutoff. Safe to run concurrently with live traffic: it only touches
	// rows already excluded by IsValid.
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuthCodeRepository persists one-time authorization codes.
type AuthCodeRepository interface {
	SaveAuthCode(ctx context.Context, code *AuthorizationCode) error
	// GetAuthCode looks a code up scoped to the issuing client.
	// ErrNotFound covers both unknown codes and codes issued to a
	// different client; callers must not distinguish the two.
	GetAuthCode(ctx context.Context, code, clientID string) (*AuthorizationCode, error)
	MarkAuthCodeAsUsed(ctx context.Context, code string) error
	DeleteAuthCode(ctx context.Context, code string) error
	DeleteExpiredAuthCodes(ctx context.Context) error
}

// ClientRepository stores the closed set of first-party clients.
type ClientRepository interface {
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, clientID string) (*Client, error)
}

// UserRepository resolves and updates account records.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}
