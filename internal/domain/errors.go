package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternalError = errors.New("internal error")

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found or expired")

	ErrAPITokenNotFound = errors.New("api token not found")
	ErrTooManyAPITokens = errors.New("too many active api tokens")

	ErrTeamNotFound       = errors.New("team not found")
	ErrNotTeamMember      = errors.New("not a team member")
	ErrMemberExists       = errors.New("user is already a team member")
	ErrMembershipNotFound = errors.New("team membership not found")
	ErrLastAdmin          = errors.New("team must keep at least one admin")
	ErrInvalidRole        = errors.New("invalid role")

	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategoryInUse     = errors.New("category is referenced by other resources")
	ErrDefaultImmutable  = errors.New("default categories cannot be modified")
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrBudgetNotFound    = errors.New("budget not found")
	ErrRecurringNotFound = errors.New("recurring expense not found")
	ErrReceiptNotFound   = errors.New("receipt not found")

	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name exceeds maximum length")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidDateRange = errors.New("end date must not be before start date")
	ErrInvalidScope     = errors.New("resource must be scoped to a user or a team, not both")
)

// Validation constants
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
)
