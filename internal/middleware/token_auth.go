package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/domain"
)

const (
	// APITokenIDKey is the context key for the API token ID
	APITokenIDKey contextKey = "api_token_id"
	// IsAPITokenAuthKey is the context key indicating API token authentication
	IsAPITokenAuthKey contextKey = "is_api_token_auth"
)

// APITokenAuthenticator resolves a bearer API token to a principal.
// Token authentication is an alternate identity proof, not an alternate
// authorization path: the resolved principal flows through the same
// permission checks as session authentication.
type APITokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, uuid.UUID, error)
}

// APITokenAuthMiddleware provides API token authentication middleware
type APITokenAuthMiddleware struct {
	authenticator APITokenAuthenticator
}

// NewAPITokenAuthMiddleware creates a new APITokenAuthMiddleware
func NewAPITokenAuthMiddleware(authenticator APITokenAuthenticator) *APITokenAuthMiddleware {
	return &APITokenAuthMiddleware{authenticator: authenticator}
}

// Authenticate returns an Echo middleware that validates bearer API tokens
func (m *APITokenAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			return m.authenticateWithToken(parts[1])(next)(c)
		}
	}
}

// authenticateWithToken validates an already-extracted bearer token
func (m *APITokenAuthMiddleware) authenticateWithToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, tokenID, err := m.authenticator.Authenticate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrAPITokenNotFound) {
					log.Debug().Msg("API token not found or revoked")
					return unauthorizedError(c, "Invalid or expired API token")
				}
				log.Error().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "Token validation failed")
			}

			ctx := context.WithValue(c.Request().Context(), PrincipalKey, *principal)
			ctx = context.WithValue(ctx, APITokenIDKey, tokenID)
			ctx = context.WithValue(ctx, IsAPITokenAuthKey, true)
			c.SetRequest(c.Request().WithContext(ctx))

			log.Debug().
				Str("user_id", principal.UserID.String()).
				Str("token_id", tokenID.String()).
				Msg("API token authentication successful")

			return next(c)
		}
	}
}

// GetAPITokenID extracts the API token ID from the context
func GetAPITokenID(c echo.Context) uuid.UUID {
	if id, ok := c.Request().Context().Value(APITokenIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// IsAPITokenAuth checks if the request was authenticated via API token
func IsAPITokenAuth(c echo.Context) bool {
	if isAPIToken, ok := c.Request().Context().Value(IsAPITokenAuthKey).(bool); ok {
		return isAPIToken
	}
	return false
}
