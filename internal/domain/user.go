package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents a registered user
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Principal is the authenticated identity on whose behalf an operation
// is evaluated. Both session and API token authentication resolve to
// the same Principal shape.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*User, error)
	// Delete removes the user together with their personal resources,
	// sessions, tokens and team memberships. Team-scoped resources the
	// user contributed to are kept.
	Delete(ctx context.Context, id uuid.UUID) error
}
