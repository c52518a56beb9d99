package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyfata/agora-auth/cache"
	"github.com/hyfata/agora-auth/domain"
	serrors "github.com/hyfata/agora-auth/errors"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 14 * 24 * time.Hour
)

func newSessionFixture(maxSessions int) (*SessionService, *MockSessionRepository, *MockBlacklistStore) {
	repo := new(MockSessionRepository)
	blacklist := new(MockBlacklistStore)
	svc := NewSessionService(repo, blacklist, maxSessions, testAccessTTL, testRefreshTTL)
	return svc, repo, blacklist
}

func testDevice() domain.DeviceContext {
	return domain.DeviceContext{
		DeviceType: "Desktop",
		DeviceName: "Linux / Firefox",
		IPAddress:  "192.0.2.10",
		UserAgent:  "test-agent",
	}
}

func TestCreateSession_UnderLimit(t *testing.T) {
	svc, repo, blacklist := newSessionFixture(5)
	ctx := context.Background()
	sub := domain.Subject{ID: "user-1", Email: "u@example.com"}
	access := TokenResult{JTI: "jti-1", ExpiresAt: time.Now().Add(testAccessTTL)}

	repo.On("CountActiveSessions", ctx, "user-1", mock.Anything).Return(int64(2), nil)
	repo.On("StoreSession", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		return s.RefreshTokenHash == cache.HashToken("refresh-token") &&
			s.SubjectID == "user-1" &&
			s.AccessTokenJTI == "jti-1" &&
			!s.Revoked
	})).Return(nil)

	session, err := svc.CreateSession(ctx, sub, "refresh-token", access, testDevice())
	require.NoError(t, err)
	assert.Equal(t, "Desktop", session.DeviceType)
	assert.WithinDuration(t, time.Now().Add(testRefreshTTL), session.ExpiresAt, 5*time.Second)

	repo.AssertExpectations(t)
	blacklist.AssertNotCalled(t, "Blacklist", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSession_AtLimitEvictsOldest(t *testing.T) {
	svc, repo, blacklist := newSessionFixture(2)
	ctx := context.Background()
	sub := domain.Subject{ID: "user-1"}
	access := TokenResult{JTI: "jti-new", ExpiresAt: time.Now().Add(testAccessTTL)}

	oldest := &domain.Session{
		RefreshTokenHash:     "oldest-hash",
		SubjectID:            "user-1",
		AccessTokenJTI:       "jti-old",
		AccessTokenExpiresAt: time.Now().Add(10 * time.Minute),
		ExpiresAt:            time.Now().Add(time.Hour),
		CreatedAt:            time.Now().Add(-2 * time.Hour),
	}

	repo.On("CountActiveSessions", ctx, "user-1", mock.Anything).Return(int64(2), nil)
	repo.On("OldestActiveSession", ctx, "user-1", mock.Anything).Return(oldest, nil)
	repo.On("UpdateSession", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		return s.RefreshTokenHash == "oldest-hash" && s.Revoked
	})).Return(nil)
	// Remaining lifetime of the evicted access token, never more than the TTL.
	blacklist.On("Blacklist", ctx, "jti-old", mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= testAccessTTL
	})).Return(nil)
	repo.On("StoreSession", ctx, mock.Anything).Return(nil)

	_, err := svc.CreateSession(ctx, sub, "new-refresh", access, testDevice())
	require.NoError(t, err)

	repo.AssertExpectations(t)
	blacklist.AssertExpectations(t)
}

func TestCreateSession_EvictionBlacklistFailureIsNonFatal(t *testing.T) {
	svc, repo, blacklist := newSessionFixture(1)
	ctx := context.Background()

	oldest := &domain.Session{
		RefreshTokenHash:     "oldest-hash",
		SubjectID:            "user-1",
		AccessTokenJTI:       "jti-old",
		AccessTokenExpiresAt: time.Now().Add(5 * time.Minute),
	}

	repo.On("CountActiveSessions", ctx, "user-1", mock.Anything).Return(int64(1), nil)
	repo.On("OldestActiveSession", ctx, "user-1", mock.Anything).Return(oldest, nil)
	repo.On("UpdateSession", ctx, mock.Anything).Return(nil)
	blacklist.On("Blacklist", ctx, "jti-old", mock.Anything).Return(errors.New("redis down"))
	repo.On("StoreSession", ctx, mock.Anything).Return(nil)

	_, err := svc.CreateSession(ctx, domain.Subject{ID: "user-1"}, "new-refresh",
		TokenResult{JTI: "jti-new", ExpiresAt: time.Now().Add(testAccessTTL)}, testDevice())
	assert.NoError(t, err)
}

func TestValidateSession(t *testing.T) {
	svc, repo, _ := newSessionFixture(5)
	ctx := context.Background()

	valid := &domain.Session{
		RefreshTokenHash: cache.HashToken("good"),
		ExpiresAt:        time.Now().Add(time.Hour),
	}
	revoked := &domain.Session{
		RefreshTokenHash: cache.HashToken("revoked"),
		ExpiresAt:        time.Now().Add(time.Hour),
		Revoked:          true,
	}
	expired := &domain.Session{
		RefreshTokenHash: cache.HashToken("expired"),
		ExpiresAt:        time.Now().Add(-time.Minute),
	}

	repo.On("GetSessionByHash", ctx, cache.HashToken("good")).Return(valid, nil)
	repo.On("GetSessionByHash", ctx, cache.HashToken("revoked")).Return(revoked, nil)
	repo.On("GetSessionByHash", ctx, cache.HashToken("expired")).Return(expired, nil)
	repo.On("GetSessionByHash", ctx, cache.HashToken("absent")).Return(nil, domain.ErrNotFound)
	repo.On("GetSessionByHash", ctx, cache.HashToken("broken")).Return(nil, errors.New("mongo down"))

	assert.True(t, svc.ValidateSession(ctx, "good"))
	assert.False(t, svc.ValidateSession(ctx, "revoked"))
	assert.False(t, svc.ValidateSession(ctx, "expired"))
	assert.False(t, svc.ValidateSession(ctx, "absent"))
	// Store failure fails closed.
	assert.False(t, svc.ValidateSession(ctx, "broken"))
}

func TestRevokeSession_OwnershipEnforced(t *testing.T) {
	svc, repo, blacklist := newSessionFixture(5)
	ctx := context.Background()

	session := &domain.Session{
		RefreshTokenHash: "hash-1",
		SubjectID:        "user-2",
		AccessTokenJTI:   "jti-1",
	}
	repo.On("GetSessionByHash", ctx, "hash-1").Return(session, nil)

	err := svc.RevokeSession(ctx, domain.Subject{ID: "user-1"}, "hash-1")
	assert.ErrorIs(t, err, serrors.ErrForbidden)

	repo.AssertNotCalled(t, "UpdateSession", mock.Anything, mock.Anything)
	blacklist.AssertNotCalled(t, "Blacklist", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevokeSession_BlacklistsAccessToken(t *testing.T) {
	svc, repo, blacklist := newSessionFixture(5)
	ctx := context.Background()

	session := &domain.Session{
		RefreshTokenHash:     "hash-1",
		SubjectID:            "user-1",
		AccessTokenJTI:       "jti-1",
		AccessTokenExpiresAt: time.Now().Add(10 * time.Minute),
	}
	repo.On("GetSessionByHash", ctx, "hash-1").Return(session, nil)
	repo.On("UpdateSession", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		return s.Revoked
	})).Return(nil)
	blacklist.On("Blacklist", ctx, "jti-1", mock.Anything).Return(nil)

	err := svc.RevokeSession(ctx, domain.Subject{ID: "user-1"}, "hash-1")
	require.NoError(t, err)

	repo.AssertExpectations(t)
	blacklist.AssertExpectations(t)
}

func TestRevokeOtherSessions_SparesCurrent(t *testing.T) {
	svc, repo, blacklist := newSessionFixture(5)
	ctx := context.Background()
	sub := domain.Subject{ID: "user-1"}
	currentHash := cache.HashToken("current-refresh")

	sessions := []*domain.Session{
		{RefreshTokenHash: currentHash, SubjectID: "user-1", AccessTokenJTI: "jti-current", AccessTokenExpiresAt: time.Now().Add(time.Minute)},
		{RefreshTokenHash: "other-1", SubjectID: "user-1", AccessTokenJTI: "jti-a", AccessTokenExpiresAt: time.Now().Add(time.Minute)},
		{RefreshTokenHash: "other-2", SubjectID: "user-1", AccessTokenJTI: "jti-b", AccessTokenExpiresAt: time.Now().Add(time.Minute)},
	}

	repo.On("ListActiveSessions", ctx, "user-1", mock.Anything).Return(sessions, nil)
	blacklist.On("Blacklist", ctx, "jti-a", mock.Anything).Return(nil)
	blacklist.On("Blacklist", ctx, "jti-b", mock.Anything).Return(nil)
	repo.On("RevokeAllForSubject", ctx, "user-1", currentHash).Return(int64(2), nil)

	err := svc.RevokeOtherSessions(ctx, sub, "current-refresh")
	require.NoError(t, err)

	blacklist.AssertNotCalled(t, "Blacklist", ctx, "jti-current", mock.Anything)
	repo.AssertExpectations(t)
	blacklist.AssertExpectations(t)
}

func TestRevokeAllSessions_RegistryOutageIsNonFatal(t *testing.T) {
	svc, repo, blacklist := newSessionFixture(5)
	ctx := context.Background()

	sessions := []*domain.Session{
		{RefreshTokenHash: "h1", SubjectID: "user-1", AccessTokenJTI: "jti-a", AccessTokenExpiresAt: time.Now().Add(time.Minute)},
	}
	repo.On("ListActiveSessions", ctx, "user-1", mock.Anything).Return(sessions, nil)
	blacklist.On("Blacklist", ctx, "jti-a", mock.Anything).Return(errors.New("redis down"))
	repo.On("RevokeAllForSubject", ctx, "user-1", "").Return(int64(1), nil)

	err := svc.RevokeAllSessions(ctx, domain.Subject{ID: "user-1"})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestTouch_UpdatesActivityAndJTI(t *testing.T) {
	svc, repo, _ := newSessionFixture(5)
	ctx := context.Background()

	session := &domain.Session{
		RefreshTokenHash: cache.HashToken("refresh"),
		SubjectID:        "user-1",
		AccessTokenJTI:   "jti-old",
		ExpiresAt:        time.Now().Add(time.Hour),
	}
	newExpiry := time.Now().Add(testAccessTTL)

	repo.On("GetSessionByHash", ctx, cache.HashToken("refresh")).Return(session, nil)
	repo.On("UpdateSession", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		return s.AccessTokenJTI == "jti-new" && !s.LastActiveAt.IsZero()
	})).Return(nil)

	err := svc.Touch(ctx, "refresh", TokenResult{JTI: "jti-new", ExpiresAt: newExpiry})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
