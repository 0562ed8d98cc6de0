package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is a recurrence interval for expense templates.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringExpense is a template for scheduled expenses. The scheduler
// that materializes it is external; the template follows the same
// scoping and permission rules as Expense.
type RecurringExpense struct {
	ID          int32           `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	TeamID      *int32          `json:"teamId,omitempty"`
	CategoryID  int32           `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Frequency   Frequency       `json:"frequency"`
	NextRun     time.Time       `json:"nextRun"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Scope returns the template's ownership scope.
func (r *RecurringExpense) Scope() Scope {
	if r.TeamID != nil {
		return TeamScope(*r.TeamID)
	}
	return PersonalScope(r.UserID)
}

// RecurringExpenseRepository defines the interface for template persistence
type RecurringExpenseRepository interface {
	Create(ctx context.Context, template *RecurringExpense) (*RecurringExpense, error)
	GetByID(ctx context.Context, id int32) (*RecurringExpense, error)
	ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*RecurringExpense, error)
	Update(ctx context.Context, template *RecurringExpense) (*RecurringExpense, error)
	Delete(ctx context.Context, id int32) error
}
