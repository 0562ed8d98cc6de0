package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// PrincipalKey is the context key for the resolved principal
	PrincipalKey contextKey = "principal"
	// SessionTokenKey is the context key for the raw session token
	SessionTokenKey contextKey = "session_token"
)

// SessionCookieName is the name of the session cookie
const SessionCookieName = "tally_session"

// SessionValidator resolves a session cookie token to a principal.
// A non-nil renewal time means the session was extended and the cookie
// should be refreshed.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*domain.Principal, *time.Time, error)
}

// SessionAuthMiddleware authenticates requests via the session cookie
type SessionAuthMiddleware struct {
	validator     SessionValidator
	secureCookies bool
}

// NewSessionAuthMiddleware creates a new SessionAuthMiddleware
func NewSessionAuthMiddleware(validator SessionValidator, secureCookies bool) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{validator: validator, secureCookies: secureCookies}
}

// Authenticate returns an Echo middleware that validates the session cookie
func (m *SessionAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return unauthorizedError(c, "Missing session cookie")
			}
			return m.authenticateWithToken(cookie.Value)(next)(c)
		}
	}
}

// authenticateWithToken validates an already-extracted session token
func (m *SessionAuthMiddleware) authenticateWithToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, renewedUntil, err := m.validator.ValidateSession(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Session validation failed")
				m.clearCookie(c)
				return unauthorizedError(c, "Invalid or expired session")
			}

			// Rolling sessions: refresh the cookie when the server side
			// extended the expiry.
			if renewedUntil != nil {
				m.setCookie(c, token, *renewedUntil)
			}

			installSessionContext(c, *principal, token)

			return next(c)
		}
	}
}

func (m *SessionAuthMiddleware) setCookie(c echo.Context, token string, expiresAt time.Time) {
	SetSessionCookie(c, token, expiresAt, m.secureCookies)
}

func (m *SessionAuthMiddleware) clearCookie(c echo.Context) {
	ClearSessionCookie(c, m.secureCookies)
}

// SetSessionCookie writes the session cookie. Handlers use it when a
// session is opened, the middleware when one is renewed.
func SetSessionCookie(c echo.Context, token string, expiresAt time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// installSessionContext stores the principal and raw session token on
// the request context.
func installSessionContext(c echo.Context, principal domain.Principal, token string) {
	ctx := context.WithValue(c.Request().Context(), PrincipalKey, principal)
	ctx = context.WithValue(ctx, SessionTokenKey, token)
	c.SetRequest(c.Request().WithContext(ctx))
}

// GetPrincipal extracts the resolved principal from the context
func GetPrincipal(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Request().Context().Value(PrincipalKey).(domain.Principal)
	return p, ok
}

// GetSessionToken extracts the raw session token, when session-authenticated
func GetSessionToken(c echo.Context) string {
	if token, ok := c.Request().Context().Value(SessionTokenKey).(string); ok {
		return token
	}
	return ""
}
