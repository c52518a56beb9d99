package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hyfata/agora-auth/domain"
)

// --- Mock SessionRepository ---

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) StoreSession(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetSessionByHash(ctx context.Context, hash string) (*domain.Session, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) UpdateSession(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) CountActiveSessions(ctx context.Context, subjectID string, now time.Time) (int64, error) {
	args := m.Called(ctx, subjectID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) OldestActiveSession(ctx context.Context, subjectID string, now time.Time) (*domain.Session, error) {
	args := m.Called(ctx, subjectID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) ListActiveSessions(ctx context.Context, subjectID string, now time.Time) ([]*domain.Session, error) {
	args := m.Called(ctx, subjectID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) RevokeAllForSubject(ctx context.Context, subjectID string, exceptHash string) (int64, error) {
	args := m.Called(ctx, subjectID, exceptHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock AuthCodeRepository ---

type MockAuthCodeRepository struct {
	mock.Mock
}

func (m *MockAuthCodeRepository) SaveAuthCode(ctx context.Context, code *domain.AuthorizationCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockAuthCodeRepository) GetAuthCode(ctx context.Context, code, clientID string) (*domain.AuthorizationCode, error) {
	args := m.Called(ctx, code, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationCode), args.Error(1)
}

func (m *MockAuthCodeRepository) MarkAuthCodeAsUsed(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockAuthCodeRepository) DeleteAuthCode(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockAuthCodeRepository) DeleteExpiredAuthCodes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Mock ClientRepository ---

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) CreateClient(ctx context.Context, client *domain.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

// --- Mock UserRepository ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// --- Mock BlacklistStore ---

type MockBlacklistStore struct {
	mock.Mock
}

func (m *MockBlacklistStore) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

func (m *MockBlacklistStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockBlacklistStore) Count(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

func (m *MockBlacklistStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
