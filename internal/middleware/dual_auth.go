package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DualAuthMiddleware resolves the principal with an ordered fallback:
// the session cookie is tried first, then the bearer API token. Both
// paths produce the same context principal, so no route can acquire
// different guarantees depending on how the caller authenticated.
type DualAuthMiddleware struct {
	sessionAuth  *SessionAuthMiddleware
	apiTokenAuth *APITokenAuthMiddleware
}

// NewDualAuthMiddleware creates a new DualAuthMiddleware
func NewDualAuthMiddleware(sessionAuth *SessionAuthMiddleware, apiTokenAuth *APITokenAuthMiddleware) *DualAuthMiddleware {
	return &DualAuthMiddleware{
		sessionAuth:  sessionAuth,
		apiTokenAuth: apiTokenAuth,
	}
}

// Authenticate returns an Echo middleware that tries the session cookie
// first, then the bearer token
func (m *DualAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				principal, renewedUntil, err := m.sessionAuth.validator.ValidateSession(c.Request().Context(), cookie.Value)
				if err == nil {
					if renewedUntil != nil {
						m.sessionAuth.setCookie(c, cookie.Value, *renewedUntil)
					}
					installSessionContext(c, *principal, cookie.Value)
					return next(c)
				}
				log.Debug().Err(err).Msg("Session validation failed, trying bearer token")
			}

			token := bearerToken(c)
			if token == "" {
				return unauthorizedError(c, "Missing credentials")
			}

			log.Debug().Msg("Attempting API token authentication")
			return m.apiTokenAuth.authenticateWithToken(token)(next)(c)
		}
	}
}

// SessionOnly returns a middleware that only accepts session authentication.
// Use this for routes that should not allow API token access (e.g. logout,
// token management).
func (m *DualAuthMiddleware) SessionOnly() echo.MiddlewareFunc {
	return m.sessionAuth.Authenticate()
}

// bearerToken extracts the bearer token from the Authorization header,
// or "" when absent or malformed.
func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
