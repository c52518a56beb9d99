package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/hyfata/agora-auth/cache"
	"github.com/hyfata/agora-auth/domain"
	"github.com/hyfata/agora-auth/services"
)

// Context keys set by Authenticate.
const (
	SubjectContextKey = "auth.subject"
	JTIContextKey     = "auth.jti"
)

// Authenticate returns middleware that admits only requests bearing a valid,
// non-revoked access token. The revocation check fails closed: if the
// registry cannot answer, the request is rejected rather than letting a
// possibly revoked token through.
func Authenticate(tokens *services.TokenService, blacklist cache.BlacklistStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			revoked, err := blacklist.IsBlacklisted(c.Request().Context(), claims.JTI)
			if err != nil {
				log.Error().Err(err).Msg("revocation registry unavailable, rejecting request")
				return echo.NewHTTPError(http.StatusUnauthorized, "token revocation state unavailable")
			}
			if revoked {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
			}

			c.Set(SubjectContextKey, claims.Subject)
			c.Set(JTIContextKey, claims.JTI)
			return next(c)
		}
	}
}

// SubjectFromContext returns the authenticated subject set by Authenticate.
func SubjectFromContext(c echo.Context) (domain.Subject, bool) {
	sub, ok := c.Get(SubjectContextKey).(domain.Subject)
	return sub, ok && !sub.IsZero()
}
