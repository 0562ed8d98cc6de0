package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a monetary record. UserID is the creator and is immutable
// after creation; TeamID, when set, shares the expense with a team.
type Expense struct {
	ID          int32           `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	TeamID      *int32          `json:"teamId,omitempty"`
	CategoryID  int32           `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ExpenseDate time.Time       `json:"expenseDate"`
	ReceiptURL  *string         `json:"receiptUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Scope returns the expense's ownership scope. An expense always has a
// creator, so a missing team means personal.
func (e *Expense) Scope() Scope {
	if e.TeamID != nil {
		return TeamScope(*e.TeamID)
	}
	return PersonalScope(e.UserID)
}

// ExpenseFilters narrows expense listings.
type ExpenseFilters struct {
	CategoryID *int32
	TeamID     *int32
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int32
	PageSize   int32
}

// DefaultPageSize is the page size applied when the caller does not ask
// for one.
const DefaultPageSize int32 = 20

// MaxPageSize caps requested page sizes.
const MaxPageSize int32 = 100

// CategorySummary is a per-category aggregate over a visible expense set.
type CategorySummary struct {
	CategoryID   int32           `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
}

// ExpenseRepository defines the interface for expense persistence
type ExpenseRepository interface {
	Create(ctx context.Context, expense *Expense) (*Expense, error)
	GetByID(ctx context.Context, id int32) (*Expense, error)
	// ListVisible returns expenses the user can read: their personal
	// ones plus those of every team in teamIDs, newest first.
	ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32, filters *ExpenseFilters) ([]*Expense, int64, error)
	Update(ctx context.Context, expense *Expense) (*Expense, error)
	Delete(ctx context.Context, id int32) error
	SetReceiptURL(ctx context.Context, id int32, url *string) error
	SummaryByCategory(ctx context.Context, userID uuid.UUID, teamIDs []int32, start, end time.Time) ([]*CategorySummary, error)
}
