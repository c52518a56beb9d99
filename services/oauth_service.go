package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyfata/agora-auth/cache"
	"github.com/hyfata/agora-auth/domain"
	serrors "github.com/hyfata/agora-auth/errors"
	"github.com/hyfata/agora-auth/internal/metrics"
	"github.com/hyfata/agora-auth/internal/random"
)

// DefaultScope is the scope granted to tokens minted through the
// authorization-code and refresh grants.
const DefaultScope = "user:email user:profile"

// authCodeLen is the byte length of entropy behind an authorization code.
const authCodeLen = 32

// TokenPair is the product of a successful grant: both tokens plus the
// metadata a response body needs.
type TokenPair struct {
	AccessToken  TokenResult
	RefreshToken TokenResult
	Scope        string
}

// OAuthService implements the authorization-code and refresh-token grants.
// All client-facing failures in the exchange path collapse to ErrInvalidGrant
// so a caller probing with stolen codes learns nothing about which check
// failed.
type OAuthService struct {
	clients     domain.ClientRepository
	authCodes   domain.AuthCodeRepository
	users       domain.UserRepository
	tokens      *TokenService
	sessions    *SessionService
	hasher      PasswordHasher
	authCodeTTL time.Duration
}

// NewOAuthService creates a new OAuthService.
func NewOAuthService(
	clients domain.ClientRepository,
	authCodes domain.AuthCodeRepository,
	users domain.UserRepository,
	tokens *TokenService,
	sessions *SessionService,
	hasher PasswordHasher,
	authCodeTTL time.Duration,
) *OAuthService {
	return &OAuthService{
		clients:     clients,
		authCodes:   authCodes,
		users:       users,
		tokens:      tokens,
		sessions:    sessions,
		hasher:      hasher,
		authCodeTTL: authCodeTTL,
	}
}

// AuthorizeRequest is a validated authorization request from an
// already-authenticated subject.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// GenerateAuthorizationCode validates the authorization request and mints a
// single-use code bound to the client, redirect URI and PKCE challenge.
func (s *OAuthService) GenerateAuthorizationCode(ctx context.Context, sub domain.Subject, req AuthorizeRequest) (*domain.AuthorizationCode, error) {
	client, err := s.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, serrors.NewInvalidRequest("unknown client", req.State)
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if !client.Enabled {
		return nil, serrors.NewInvalidRequest("client is disabled", req.State)
	}
	if !client.HasRedirectURI(req.RedirectURI) {
		return nil, serrors.NewInvalidRequest("redirect_uri is not registered for this client", req.State)
	}
	if req.CodeChallenge != "" &&
		req.CodeChallengeMethod != "" &&
		req.CodeChallengeMethod != CodeChallengeMethodS256 &&
		req.CodeChallengeMethod != CodeChallengeMethodPlain {
		return nil, serrors.NewInvalidRequest("unsupported code_challenge_method", req.State)
	}

	user, err := s.users.GetUserByID(ctx, sub.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, serrors.NewInvalidRequest("unknown subject", req.State)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Enabled {
		return nil, serrors.NewInvalidRequest("account is disabled", req.State)
	}

	code, err := random.Opaque(authCodeLen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate authorization code: %w", err)
	}

	now := time.Now().UTC()
	authCode := &domain.AuthorizationCode{
		Code:                code,
		ClientID:            client.ClientID,
		SubjectID:           user.ID,
		Email:               user.Email,
		RedirectURI:         req.RedirectURI,
		State:               req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		Used:                false,
		ExpiresAt:           now.Add(s.authCodeTTL),
		CreatedAt:           now,
	}

	if err := s.authCodes.SaveAuthCode(ctx, authCode); err != nil {
		return nil, fmt.Errorf("failed to save authorization code: %w", err)
	}

	log.Debug().
		Str("client_id", client.ClientID).
		Str("subject_id", user.ID).
		Msg("authorization code issued")
	return authCode, nil
}

// ExchangeRequest carries the parameters of an authorization_code token
// request.
type ExchangeRequest struct {
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CodeVerifier string
	Device       domain.DeviceContext
}

// ExchangeAuthorizationCode redeems an authorization code for a token pair.
// Checks short-circuit in a fixed order: existence, expiry, replay, redirect
// binding, PKCE, client secret. The code is marked used before any token is
// minted, so a crash between the two leaves a dead code, never an unminted
// grant that could be replayed.
func (s *OAuthService) ExchangeAuthorizationCode(ctx context.Context, req ExchangeRequest) (*TokenPair, error) {
	authCode, err := s.authCodes.GetAuthCode(ctx, req.Code, req.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, serrors.ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to load authorization code: %w", err)
	}

	now := time.Now().UTC()
	if authCode.Expired(now) {
		if err := s.authCodes.DeleteAuthCode(ctx, authCode.Code); err != nil {
			log.Warn().Err(err).Msg("failed to delete expired authorization code")
		}
		return nil, serrors.ErrInvalidGrant
	}
	if authCode.Used {
		log.Warn().
			Str("client_id", req.ClientID).
			Msg("authorization code replay attempt")
		return nil, serrors.ErrInvalidGrant
	}
	if authCode.RedirectURI != req.RedirectURI {
		return nil, serrors.ErrInvalidGrant
	}
	if authCode.RequiresPKCE() {
		if !IsWellFormedVerifier(req.CodeVerifier) {
			return nil, serrors.ErrInvalidGrant
		}
		if !VerifierMatches(req.CodeVerifier, authCode.CodeChallenge, authCode.CodeChallengeMethod) {
			return nil, serrors.ErrInvalidGrant
		}
	}
	if err := s.checkClientSecret(ctx, req.ClientID, req.ClientSecret); err != nil {
		return nil, serrors.ErrInvalidGrant
	}

	if err := s.authCodes.MarkAuthCodeAsUsed(ctx, authCode.Code); err != nil {
		return nil, fmt.Errorf("failed to mark authorization code as used: %w", err)
	}

	sub := domain.Subject{ID: authCode.SubjectID, Email: authCode.Email}
	pair, err := issueTokenPair(ctx, s.tokens, s.sessions, sub, req.Device)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("client_id", req.ClientID).
		Str("subject_id", sub.ID).
		Msg("authorization code exchanged")
	return pair, nil
}

// RefreshRequest carries the parameters of a refresh_token token request.
type RefreshRequest struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
	Device       domain.DeviceContext
}

// RefreshToken rotates a refresh token: the old session is revoked, the old
// access token blacklisted for its remaining lifetime, and a fresh pair
// minted under a new session. The presented refresh token is single-use.
func (s *OAuthService) RefreshToken(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	claims, err := s.tokens.Verify(req.RefreshToken)
	if err != nil {
		return nil, serrors.ErrInvalidGrant
	}

	if err := s.checkClientSecret(ctx, req.ClientID, req.ClientSecret); err != nil {
		return nil, serrors.ErrInvalidClient
	}

	session, err := s.sessions.GetSession(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, serrors.ErrSessionRevoked
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.IsValid(time.Now().UTC()) {
		return nil, serrors.ErrSessionRevoked
	}
	if session.SubjectID != claims.Subject.ID {
		return nil, serrors.ErrSessionRevoked
	}

	// Kill the old generation before minting the new one. The blacklist
	// write is best effort inside the session service; the session flip is
	// not.
	if err := s.sessions.RevokeSession(ctx, claims.Subject, session.RefreshTokenHash); err != nil {
		return nil, fmt.Errorf("failed to revoke rotated session: %w", err)
	}

	pair, err := issueTokenPair(ctx, s.tokens, s.sessions, claims.Subject, req.Device)
	if err != nil {
		return nil, err
	}
	metrics.TokensRefreshedTotal.Inc()

	log.Info().
		Str("subject_id", claims.Subject.ID).
		Msg("refresh token rotated")
	return pair, nil
}

// Logout revokes the session backing the presented refresh token. A token
// with no backing session is already logged out; that is success.
func (s *OAuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return serrors.ErrInvalidGrant
	}

	err = s.sessions.RevokeSession(ctx, claims.Subject, cache.HashToken(refreshToken))
	if err != nil && !errors.Is(err, serrors.ErrSessionRevoked) {
		return err
	}

	log.Info().Str("subject_id", claims.Subject.ID).Msg("logout")
	return nil
}

// checkClientSecret verifies the client exists, is enabled and presented the
// right secret.
func (s *OAuthService) checkClientSecret(ctx context.Context, clientID, clientSecret string) error {
	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return serrors.ErrInvalidClient
	}
	if !client.Enabled {
		return serrors.ErrInvalidClient
	}
	if err := s.hasher.Verify(client.SecretHash, clientSecret); err != nil {
		return serrors.ErrInvalidClient
	}
	return nil
}

// issueTokenPair mints an access/refresh pair and opens a session keyed by
// the refresh token. Shared by the code exchange, the refresh rotation and
// the password login.
func issueTokenPair(
	ctx context.Context,
	tokens *TokenService,
	sessions *SessionService,
	sub domain.Subject,
	dev domain.DeviceContext,
) (*TokenPair, error) {
	access, err := tokens.IssueAccessToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := tokens.IssueRefreshToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if _, err := sessions.CreateSession(ctx, sub, refresh.Token, access, dev); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	metrics.TokensIssuedTotal.Inc()

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Scope:        DefaultScope,
	}, nil
}
