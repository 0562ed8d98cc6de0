package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// respondDomainError maps a service error to its problem response.
// Handlers call it after handling any error they respond to specially.
func respondDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrMembershipNotFound),
		errors.Is(err, domain.ErrExpenseNotFound),
		errors.Is(err, domain.ErrBudgetNotFound),
		errors.Is(err, domain.ErrRecurringNotFound),
		errors.Is(err, domain.ErrReceiptNotFound),
		errors.Is(err, domain.ErrAPITokenNotFound):
		return NewNotFoundError(c, "Resource not found")

	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, "Insufficient permissions")

	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError(c, "Authentication required")

	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrMemberExists),
		errors.Is(err, domain.ErrCategoryInUse),
		errors.Is(err, domain.ErrLastAdmin):
		return NewConflictError(c, err.Error())

	case errors.Is(err, domain.ErrDefaultImmutable):
		return NewForbiddenError(c, err.Error())

	case errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidScope),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrTooManyAPITokens),
		errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)

	default:
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Unhandled service error")
		return NewInternalError(c, "An unexpected error occurred")
	}
}
