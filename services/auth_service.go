package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyfata/agora-auth/domain"
	serrors "github.com/hyfata/agora-auth/errors"
	"github.com/hyfata/agora-auth/internal/metrics"
	"github.com/hyfata/agora-auth/internal/random"
)

// twoFactorCodeLen is the digit count of a one-time login code.
const twoFactorCodeLen = 6

// TwoFactorSender delivers a one-time code to the user out of band.
type TwoFactorSender interface {
	SendCode(ctx context.Context, user *domain.User, code string) error
}

// AuthService handles first-party password login, including the optional
// second factor, and hands off to the session store for everything after the
// credentials check.
type AuthService struct {
	users        domain.UserRepository
	tokens       *TokenService
	sessions     *SessionService
	hasher       PasswordHasher
	sender       TwoFactorSender
	twoFactorTTL time.Duration
}

// NewAuthService creates a new AuthService. sender may be nil when two-factor
// delivery is not configured; users with the second factor enabled then
// cannot log in, which is the safe direction to fail.
func NewAuthService(
	users domain.UserRepository,
	tokens *TokenService,
	sessions *SessionService,
	hasher PasswordHasher,
	sender TwoFactorSender,
	twoFactorTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		sessions:     sessions,
		hasher:       hasher,
		sender:       sender,
		twoFactorTTL: twoFactorTTL,
	}
}

// LoginResult is either a finished login (Pair set) or a pending one waiting
// for the second factor (TwoFactorRequired set).
type LoginResult struct {
	TwoFactorRequired bool
	Pair              *TokenPair
}

// Login verifies the password and either completes the login or stages a
// one-time code. Unknown email and wrong password are indistinguishable to
// the caller.
func (s *AuthService) Login(ctx context.Context, email, password string, dev domain.DeviceContext) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.LoginFailureTotal.Inc()
			return nil, serrors.ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Enabled {
		metrics.LoginFailureTotal.Inc()
		return nil, serrors.ErrInvalidGrant
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		metrics.LoginFailureTotal.Inc()
		log.Warn().Str("user_id", user.ID).Msg("password mismatch on login")
		return nil, serrors.ErrInvalidGrant
	}

	if user.TwoFactorEnabled {
		if err := s.stageTwoFactor(ctx, user); err != nil {
			return nil, err
		}
		return &LoginResult{TwoFactorRequired: true}, nil
	}

	pair, err := issueTokenPair(ctx, s.tokens, s.sessions, user.Subject(), dev)
	if err != nil {
		return nil, err
	}
	metrics.LoginSuccessTotal.Inc()

	log.Info().Str("user_id", user.ID).Msg("login")
	return &LoginResult{Pair: pair}, nil
}

// VerifyTwoFactor completes a login staged by Login. The stored code is
// single-use and expires after the configured window.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, email, code string, dev domain.DeviceContext) (*TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.LoginFailureTotal.Inc()
			return nil, serrors.ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now().UTC()
	if user.TwoFactorCode == "" ||
		user.TwoFactorExpiresAt == nil ||
		now.After(*user.TwoFactorExpiresAt) ||
		user.TwoFactorCode != code {
		metrics.LoginFailureTotal.Inc()
		return nil, serrors.ErrInvalidGrant
	}

	user.TwoFactorCode = ""
	user.TwoFactorExpiresAt = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to clear two-factor code: %w", err)
	}

	pair, err := issueTokenPair(ctx, s.tokens, s.sessions, user.Subject(), dev)
	if err != nil {
		return nil, err
	}
	metrics.LoginSuccessTotal.Inc()

	log.Info().Str("user_id", user.ID).Msg("two-factor login")
	return pair, nil
}

func (s *AuthService) stageTwoFactor(ctx context.Context, user *domain.User) error {
	if s.sender == nil {
		return fmt.Errorf("two-factor enabled for user %s but no code sender configured", user.ID)
	}

	code, err := random.Digits(twoFactorCodeLen)
	if err != nil {
		return fmt.Errorf("failed to generate two-factor code: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.twoFactorTTL)
	user.TwoFactorCode = code
	user.TwoFactorExpiresAt = &expiresAt
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to stage two-factor code: %w", err)
	}

	if err := s.sender.SendCode(ctx, user, code); err != nil {
		return fmt.Errorf("failed to deliver two-factor code: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("two-factor code sent")
	return nil
}
