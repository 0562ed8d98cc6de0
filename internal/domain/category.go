package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category classifies expenses and budgets. It is owned by exactly one
// scope (a user or a team) or marked as unowned default seed data.
type Category struct {
	ID        int32      `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	TeamID    *int32     `json:"teamId,omitempty"`
	IsDefault bool       `json:"isDefault"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Scope returns the category's ownership scope.
func (c *Category) Scope() Scope {
	if c.IsDefault {
		return DefaultScope()
	}
	s, err := ScopeOf(c.UserID, c.TeamID)
	if err != nil {
		// Both columns set violates the storage invariant; treat the
		// row as team-owned rather than widening access.
		return TeamScope(*c.TeamID)
	}
	return s
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	GetByID(ctx context.Context, id int32) (*Category, error)
	// ListVisible returns default categories, the user's personal
	// categories, and categories of every team in teamIDs.
	ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*Category, error)
	Update(ctx context.Context, id int32, name, color string) (*Category, error)
	Delete(ctx context.Context, id int32) error
	// InUseCount counts expenses, budgets and recurring templates
	// referencing the category.
	InUseCount(ctx context.Context, id int32) (int64, error)
	CountForOwner(ctx context.Context, scope Scope) (int64, error)
}
