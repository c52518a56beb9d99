package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyfata/agora-auth/cache"
	"github.com/hyfata/agora-auth/domain"
	serrors "github.com/hyfata/agora-auth/errors"
	"github.com/hyfata/agora-auth/internal/metrics"
)

// SessionService owns the lifecycle of login sessions: creation with
// per-subject admission control, validation, activity tracking and
// revocation. Every revocation pushes the session's still-live access-token
// JTI into the revocation registry; a session revoked without its JTI
// blacklisted would leave a working access token behind.
type SessionService struct {
	sessions    domain.SessionRepository
	blacklist   cache.BlacklistStore
	maxSessions int
	refreshTTL  time.Duration
	accessTTL   time.Duration

	// Serializes count+evict+insert per subject so two simultaneous
	// logins cannot both slip under the session limit.
	admission keyedMutex
}

// NewSessionService creates a new SessionService. maxSessions is the
// per-subject concurrent session cap enforced by eviction.
func NewSessionService(
	sessions domain.SessionRepository,
	blacklist cache.BlacklistStore,
	maxSessions int,
	accessTTL, refreshTTL time.Duration,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		blacklist:   blacklist,
		maxSessions: maxSessions,
		refreshTTL:  refreshTTL,
		accessTTL:   accessTTL,
	}
}

// CreateSession records a new login for the subject. When the subject is at
// the session cap, the oldest valid session (by creation time) is revoked
// and its access token blacklisted; the new login is always admitted.
func (s *SessionService) CreateSession(
	ctx context.Context,
	sub domain.Subject,
	refreshToken string,
	access TokenResult,
	dev domain.DeviceContext,
) (*domain.Session, error) {
	unlock := s.admission.lock(sub.ID)
	defer unlock()

	if err := s.enforceSessionLimit(ctx, sub); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		RefreshTokenHash:     cache.HashToken(refreshToken),
		SubjectID:            sub.ID,
		Email:                sub.Email,
		AccessTokenJTI:       access.JTI,
		AccessTokenExpiresAt: access.ExpiresAt,
		DeviceType:           dev.DeviceType,
		DeviceName:           dev.DeviceName,
		IPAddress:            dev.IPAddress,
		Location:             dev.Location,
		UserAgent:            dev.UserAgent,
		ExpiresAt:            now.Add(s.refreshTTL),
		Revoked:              false,
		LastActiveAt:         now,
		CreatedAt:            now,
	}

	if err := s.sessions.StoreSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// enforceSessionLimit evicts the subject's oldest valid session when the cap
// is reached. Admission control evicts, it never rejects the new login.
func (s *SessionService) enforceSessionLimit(ctx context.Context, sub domain.Subject) error {
	now := time.Now().UTC()

	count, err := s.sessions.CountActiveSessions(ctx, sub.ID, now)
	if err != nil {
		return fmt.Errorf("failed to count active sessions: %w", err)
	}
	if count < int64(s.maxSessions) {
		return nil
	}

	oldest, err := s.sessions.OldestActiveSession(ctx, sub.ID, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find oldest session: %w", err)
	}

	oldest.Revoke()
	if err := s.sessions.UpdateSession(ctx, oldest); err != nil {
		return fmt.Errorf("failed to revoke oldest session: %w", err)
	}
	s.blacklistSessionJTI(ctx, oldest)
	metrics.SessionsEvictedTotal.Inc()

	log.Info().
		Str("subject_id", sub.ID).
		Msg("session limit reached, evicted oldest session")
	return nil
}

// ValidateSession reports whether the presented refresh token still has a
// valid backing session. Absence is invalid, not an error; a store failure
// is also invalid (fail closed).
func (s *SessionService) ValidateSession(ctx context.Context, refreshToken string) bool {
	session, err := s.sessions.GetSessionByHash(ctx, cache.HashToken(refreshToken))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Msg("session lookup failed, treating session as invalid")
		}
		return false
	}
	return session.IsValid(time.Now().UTC())
}

// GetSession returns the session backing the refresh token.
func (s *SessionService) GetSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.sessions.GetSessionByHash(ctx, cache.HashToken(refreshToken))
}

// Touch updates the session's activity timestamp and current access-token
// JTI without changing its expiry or revoked state.
func (s *SessionService) Touch(ctx context.Context, refreshToken string, access TokenResult) error {
	session, err := s.sessions.GetSessionByHash(ctx, cache.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return serrors.ErrSessionRevoked
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	session.Touch(time.Now().UTC(), access.JTI, access.ExpiresAt)
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}

// RevokeSession revokes one session by its hash. The session must belong to
// the calling subject; cross-subject attempts fail with ErrForbidden.
func (s *SessionService) RevokeSession(ctx context.Context, sub domain.Subject, sessionHash string) error {
	session, err := s.sessions.GetSessionByHash(ctx, sessionHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return serrors.ErrSessionRevoked
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if session.SubjectID != sub.ID {
		return serrors.ErrForbidden
	}

	session.Revoke()
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.blacklistSessionJTI(ctx, session)
	metrics.SessionsRevokedTotal.Inc()

	log.Info().Str("subject_id", sub.ID).Msg("session revoked")
	return nil
}

// RevokeAllSessions revokes every session of the subject, blacklisting each
// live access token. Used on logout-all and password reset.
func (s *SessionService) RevokeAllSessions(ctx context.Context, sub domain.Subject) error {
	return s.revokeAll(ctx, sub, "")
}

// RevokeOtherSessions revokes every session of the subject except the one
// backing the presented refresh token.
func (s *SessionService) RevokeOtherSessions(ctx context.Context, sub domain.Subject, currentRefreshToken string) error {
	return s.revokeAll(ctx, sub, cache.HashToken(currentRefreshToken))
}

func (s *SessionService) revokeAll(ctx context.Context, sub domain.Subject, exceptHash string) error {
	active, err := s.sessions.ListActiveSessions(ctx, sub.ID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to list active sessions: %w", err)
	}

	// Blacklist first, then flip the records. A registry outage must not
	// abort the revocation itself, so these writes log-and-continue.
	for _, session := range active {
		if session.RefreshTokenHash == exceptHash {
			continue
		}
		s.blacklistSessionJTI(ctx, session)
	}

	revoked, err := s.sessions.RevokeAllForSubject(ctx, sub.ID, exceptHash)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	log.Info().
		Str("subject_id", sub.ID).
		Int64("revoked", revoked).
		Msg("bulk session revocation")
	return nil
}

// ActiveSessions lists the subject's valid sessions, newest first, marking
// the one backing currentRefreshToken (when given) as current.
func (s *SessionService) ActiveSessions(ctx context.Context, sub domain.Subject, currentRefreshToken string) ([]*domain.Session, string, error) {
	sessions, err := s.sessions.ListActiveSessions(ctx, sub.ID, time.Now().UTC())
	if err != nil {
		return nil, "", fmt.Errorf("failed to list active sessions: %w", err)
	}

	currentHash := ""
	if currentRefreshToken != "" {
		currentHash = cache.HashToken(currentRefreshToken)
	}
	return sessions, currentHash, nil
}

// blacklistSessionJTI pushes the session's current access-token JTI into the
// revocation registry for its remaining natural lifetime. Best effort: a
// registry failure is logged, never propagated, so session-revocation
// transactions cannot be blocked by a cache-layer outage.
func (s *SessionService) blacklistSessionJTI(ctx context.Context, session *domain.Session) {
	if session.AccessTokenJTI == "" {
		return
	}

	ttl := s.accessTTL
	if !session.AccessTokenExpiresAt.IsZero() {
		remaining := time.Until(session.AccessTokenExpiresAt)
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	if err := s.blacklist.Blacklist(ctx, session.AccessTokenJTI, ttl); err != nil {
		log.Warn().Err(err).Msg("failed to blacklist access token jti")
		return
	}
	metrics.JTIBlacklistedTotal.Inc()
}

// keyedMutex hands out one mutex per key. Entries are not reaped; the key
// space is bounded by the number of distinct subjects logging in during the
// process lifetime.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
