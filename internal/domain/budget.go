package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is a spending limit over a category and a date range, with the
// same user/team scoping duality as Category and Expense.
type Budget struct {
	ID         int32           `json:"id"`
	UserID     *uuid.UUID      `json:"userId,omitempty"`
	TeamID     *int32          `json:"teamId,omitempty"`
	CategoryID int32           `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Scope returns the budget's ownership scope.
func (b *Budget) Scope() Scope {
	s, err := ScopeOf(b.UserID, b.TeamID)
	if err != nil {
		return TeamScope(*b.TeamID)
	}
	return s
}

// CreatorID returns the owning user for personal budgets. Team budgets
// have no per-row creator, so the owner-override clause never applies
// to them.
func (b *Budget) CreatorID() uuid.UUID {
	if b.UserID != nil {
		return *b.UserID
	}
	return uuid.Nil
}

// BudgetRepository defines the interface for budget persistence
type BudgetRepository interface {
	Create(ctx context.Context, budget *Budget) (*Budget, error)
	GetByID(ctx context.Context, id int32) (*Budget, error)
	ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*Budget, error)
	Update(ctx context.Context, budget *Budget) (*Budget, error)
	Delete(ctx context.Context, id int32) error
}
