package echo

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/hyfata/agora-auth/api"
	serrors "github.com/hyfata/agora-auth/errors"
	"github.com/hyfata/agora-auth/middleware"
	"github.com/hyfata/agora-auth/services"
)

// GrantType enumeration for OAuth2 grant types.
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeRefreshToken      GrantType = "refresh_token"
)

// AuthAPI holds the HTTP handlers for the identity endpoints.
type AuthAPI struct {
	oauth    *services.OAuthService
	auth     *services.AuthService
	sessions *services.SessionService
	device   services.DeviceResolver
}

// NewAuthAPI initializes the identity API.
func NewAuthAPI(
	oauth *services.OAuthService,
	auth *services.AuthService,
	sessions *services.SessionService,
	device services.DeviceResolver,
) *AuthAPI {
	return &AuthAPI{
		oauth:    oauth,
		auth:     auth,
		sessions: sessions,
		device:   device,
	}
}

// RegisterRoutes registers all identity routes. authn guards the endpoints
// that require a valid access token.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo, authn echo.MiddlewareFunc) {
	e.POST("/auth/login", a.LoginHandler)
	e.POST("/auth/2fa/verify", a.TwoFactorHandler)

	e.GET("/oauth/authorize", a.AuthorizeHandler, authn)
	e.POST("/oauth/token", a.TokenHandler)
	e.POST("/oauth/logout", a.LogoutHandler)

	e.GET("/sessions", a.SessionsHandler, authn)
	e.DELETE("/sessions/:id", a.DeleteSessionHandler, authn)
	e.POST("/sessions/revoke-others", a.RevokeOthersHandler, authn)
	e.POST("/sessions/revoke-all", a.RevokeAllHandler, authn)
}

// AuthorizeHandler handles authorization requests from an authenticated
// subject. On success it redirects back to the client with a single-use code;
// the state parameter is echoed verbatim.
func (a *AuthAPI) AuthorizeHandler(c echo.Context) error {
	sub, ok := middleware.SubjectFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if rt := c.QueryParam("response_type"); rt != "code" {
		return c.JSON(http.StatusBadRequest,
			serrors.NewInvalidRequest("unsupported response_type", c.QueryParam("state")))
	}

	req := services.AuthorizeRequest{
		ClientID:            c.QueryParam("client_id"),
		RedirectURI:         c.QueryParam("redirect_uri"),
		State:               c.QueryParam("state"),
		CodeChallenge:       c.QueryParam("code_challenge"),
		CodeChallengeMethod: c.QueryParam("code_challenge_method"),
	}

	authCode, err := a.oauth.GenerateAuthorizationCode(c.Request().Context(), sub, req)
	if err != nil {
		var oauthErr *serrors.OAuth2Error
		if errors.As(err, &oauthErr) {
			return c.JSON(http.StatusBadRequest, oauthErr)
		}
		log.Error().Err(err).Msg("Failed to generate authorization code")
		return c.JSON(http.StatusInternalServerError, serrors.NewServerError("failed to generate authorization code"))
	}

	redirectURL := fmt.Sprintf("%s?code=%s", authCode.RedirectURI, url.QueryEscape(authCode.Code))
	if authCode.State != "" {
		redirectURL += "&state=" + url.QueryEscape(authCode.State)
	}
	return c.Redirect(http.StatusFound, redirectURL)
}

// TokenHandler handles token requests for the authorization_code and
// refresh_token grants.
func (a *AuthAPI) TokenHandler(c echo.Context) error {
	ctx := c.Request().Context()
	dev := a.device.Resolve(ctx, c.Request().UserAgent(), c.RealIP())

	switch GrantType(c.FormValue("grant_type")) {
	case GrantTypeAuthorizationCode:
		pair, err := a.oauth.ExchangeAuthorizationCode(ctx, services.ExchangeRequest{
			Code:         c.FormValue("code"),
			ClientID:     c.FormValue("client_id"),
			ClientSecret: c.FormValue("client_secret"),
			RedirectURI:  c.FormValue("redirect_uri"),
			CodeVerifier: c.FormValue("code_verifier"),
			Device:       dev,
		})
		if err != nil {
			return a.tokenError(c, err)
		}
		return c.JSON(http.StatusOK, tokenResponse(pair))

	case GrantTypeRefreshToken:
		pair, err := a.oauth.RefreshToken(ctx, services.RefreshRequest{
			RefreshToken: c.FormValue("refresh_token"),
			ClientID:     c.FormValue("client_id"),
			ClientSecret: c.FormValue("client_secret"),
			Device:       dev,
		})
		if err != nil {
			return a.tokenError(c, err)
		}
		return c.JSON(http.StatusOK, tokenResponse(pair))

	default:
		return c.JSON(http.StatusBadRequest, serrors.NewUnsupportedGrantType())
	}
}

func (a *AuthAPI) tokenError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, serrors.ErrInvalidClient):
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidClient("invalid client credentials"))
	case errors.Is(err, serrors.ErrInvalidGrant),
		errors.Is(err, serrors.ErrSessionRevoked):
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidGrant("the provided grant is invalid, expired or revoked", ""))
	default:
		log.Error().Err(err).Msg("Token request failed")
		return c.JSON(http.StatusInternalServerError, serrors.NewServerError("token request failed"))
	}
}

func tokenResponse(pair *services.TokenPair) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  pair.AccessToken.Token,
		TokenType:    api.TokenTypeBearer,
		ExpiresIn:    int(time.Until(pair.AccessToken.ExpiresAt).Seconds()),
		RefreshToken: pair.RefreshToken.Token,
		Scope:        pair.Scope,
	}
}

// loginRequest is the password login payload.
type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginHandler handles first-party password login.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("malformed login request", ""))
	}

	ctx := c.Request().Context()
	dev := a.device.Resolve(ctx, c.Request().UserAgent(), c.RealIP())

	result, err := a.auth.Login(ctx, req.Email, req.Password, dev)
	if err != nil {
		if errors.Is(err, serrors.ErrInvalidGrant) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		log.Error().Err(err).Msg("Login failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	if result.TwoFactorRequired {
		return c.JSON(http.StatusOK, map[string]bool{"two_factor_required": true})
	}
	return c.JSON(http.StatusOK, tokenResponse(result.Pair))
}

// twoFactorRequest is the second-factor verification payload.
type twoFactorRequest struct {
	Email string `json:"email" form:"email"`
	Code  string `json:"code" form:"code"`
}

// TwoFactorHandler completes a login staged by LoginHandler.
func (a *AuthAPI) TwoFactorHandler(c echo.Context) error {
	var req twoFactorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("malformed verification request", ""))
	}

	ctx := c.Request().Context()
	dev := a.device.Resolve(ctx, c.Request().UserAgent(), c.RealIP())

	pair, err := a.auth.VerifyTwoFactor(ctx, req.Email, req.Code, dev)
	if err != nil {
		if errors.Is(err, serrors.ErrInvalidGrant) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired code")
		}
		log.Error().Err(err).Msg("Two-factor verification failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "verification failed")
	}
	return c.JSON(http.StatusOK, tokenResponse(pair))
}

// LogoutHandler revokes the session backing the presented refresh token.
// Idempotent: logging out an already dead session succeeds.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	refreshToken := c.FormValue("refresh_token")
	if refreshToken == "" {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("refresh_token is required", ""))
	}

	if err := a.oauth.Logout(c.Request().Context(), refreshToken); err != nil {
		if errors.Is(err, serrors.ErrInvalidGrant) {
			return c.JSON(http.StatusBadRequest, serrors.NewInvalidGrant("invalid refresh token", ""))
		}
		log.Error().Err(err).Msg("Logout failed")
		return c.JSON(http.StatusInternalServerError, serrors.NewServerError("logout failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

// SessionsHandler lists the caller's active sessions. The optional
// X-Refresh-Token header lets the client mark which listed session is its
// own.
func (a *AuthAPI) SessionsHandler(c echo.Context) error {
	sub, ok := middleware.SubjectFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	sessions, currentHash, err := a.sessions.ActiveSessions(
		c.Request().Context(), sub, c.Request().Header.Get("X-Refresh-Token"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sessions")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list sessions")
	}

	views := make([]api.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, api.SessionView{
			SessionID:    s.RefreshTokenHash,
			DeviceType:   s.DeviceType,
			DeviceName:   s.DeviceName,
			IPAddress:    s.IPAddress,
			Location:     s.Location,
			LastActiveAt: s.LastActiveAt,
			CreatedAt:    s.CreatedAt,
			ExpiresAt:    s.ExpiresAt,
			Current:      currentHash != "" && s.RefreshTokenHash == currentHash,
		})
	}
	return c.JSON(http.StatusOK, views)
}

// DeleteSessionHandler revokes one of the caller's sessions by ID.
func (a *AuthAPI) DeleteSessionHandler(c echo.Context) error {
	sub, ok := middleware.SubjectFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	err := a.sessions.RevokeSession(c.Request().Context(), sub, c.Param("id"))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, serrors.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "session belongs to another account")
	case errors.Is(err, serrors.ErrSessionRevoked):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	default:
		log.Error().Err(err).Msg("Failed to revoke session")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke session")
	}
}

// RevokeOthersHandler revokes all of the caller's sessions except the one
// backing the presented refresh token.
func (a *AuthAPI) RevokeOthersHandler(c echo.Context) error {
	sub, ok := middleware.SubjectFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	refreshToken := c.FormValue("refresh_token")
	if refreshToken == "" {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("refresh_token is required", ""))
	}

	if err := a.sessions.RevokeOtherSessions(c.Request().Context(), sub, refreshToken); err != nil {
		log.Error().Err(err).Msg("Failed to revoke other sessions")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke sessions")
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeAllHandler revokes every session of the caller, the presented one
// included. Used for logout-everywhere and after a password change.
func (a *AuthAPI) RevokeAllHandler(c echo.Context) error {
	sub, ok := middleware.SubjectFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if err := a.sessions.RevokeAllSessions(c.Request().Context(), sub); err != nil {
		log.Error().Err(err).Msg("Failed to revoke all sessions")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke sessions")
	}
	return c.NoContent(http.StatusNoContent)
}
