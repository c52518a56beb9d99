package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hyfata/agora-auth/domain"
	serrors "github.com/hyfata/agora-auth/errors"
)

// minSecretLen is the minimum HMAC key length. HS256 with a shorter key is
// not meaningfully harder to forge than no signature at all.
const minSecretLen = 32

// TokenService is the token codec: it mints and verifies the signed,
// time-bounded tokens that carry a subject and a unique JTI. It holds no
// state beyond the key, so it is safe from any number of request-handling
// goroutines.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a codec for the given symmetric key. The key must
// be at least 32 bytes.
func NewTokenService(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", minSecretLen, len(secret))
	}
	return &TokenService{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (s *TokenService) AccessTokenTTL() time.Duration { return s.accessTTL }

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration { return s.refreshTTL }

// TokenResult is a freshly minted token together with the identifiers the
// session store needs to track it.
type TokenResult struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	Subject   domain.Subject
	JTI       string
	ExpiresAt time.Time
}

type signedClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken mints a short-lived access token for the subject.
func (s *TokenService) IssueAccessToken(sub domain.Subject) (TokenResult, error) {
	return s.issue(sub, s.accessTTL)
}

// IssueRefreshToken mints a long-lived refresh token for the subject. The
// refresh token carries its own JTI, but revocation of refresh tokens is
// session-store-authoritative; only access-token JTIs enter the registry.
func (s *TokenService) IssueRefreshToken(sub domain.Subject) (TokenResult, error) {
	return s.issue(sub, s.refreshTTL)
}

func (s *TokenService) issue(sub domain.Subject, ttl time.Duration) (TokenResult, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	jti := strings.ReplaceAll(uuid.NewString(), "-", "")

	claims := signedClaims{
		Email: sub.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   sub.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return TokenResult{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return TokenResult{Token: token, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// Expiry and signature are evaluated together: an expired-but-well-signed
// token fails with ErrTokenExpired, anything else with ErrTokenMalformed.
func (s *TokenService) Verify(tokenValue string) (*TokenClaims, error) {
	var claims signedClaims
	_, err := jwt.ParseWithClaims(tokenValue, &claims,
		func(_ *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, serrors.ErrTokenExpired
		}
		return nil, serrors.ErrTokenMalformed
	}

	var expiresAt time.Time
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	return &TokenClaims{
		Subject:   domain.Subject{ID: claims.RegisteredClaims.Subject, Email: claims.Email},
		JTI:       claims.RegisteredClaims.ID,
		ExpiresAt: expiresAt,
	}, nil
}
