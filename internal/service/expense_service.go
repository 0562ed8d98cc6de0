package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/authz"
	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

// ExpenseService handles expense-related business logic
type ExpenseService struct {
	expenseRepo    domain.ExpenseRepository
	categoryRepo   domain.CategoryRepository
	membershipRepo domain.MembershipRepository
	publisher      websocket.EventPublisher
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(expenseRepo domain.ExpenseRepository, categoryRepo domain.CategoryRepository, membershipRepo domain.MembershipRepository, publisher websocket.EventPublisher) *ExpenseService {
	return &ExpenseService{
		expenseRepo:    expenseRepo,
		categoryRepo:   categoryRepo,
		membershipRepo: membershipRepo,
		publisher:      publisher,
	}
}

// CreateExpenseInput holds the input for creating an expense
type CreateExpenseInput struct {
	TeamID      *int32
	CategoryID  int32
	Amount      decimal.Decimal
	Description string
	ExpenseDate *time.Time
}

// Create records an expense in the principal's personal scope or, when
// TeamID is set, in a team they can write to.
func (s *ExpenseService) Create(ctx context.Context, principal domain.Principal, input CreateExpenseInput) (*domain.Expense, error) {
	description := strings.TrimSpace(input.Description)
	if len(description) > domain.MaxDescriptionLength {
		return nil, domain.ErrNameTooLong
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	scope, m, err := intendedScope(ctx, s.membershipRepo, principal, input.TeamID)
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: scope}, authz.OpCreate, m); !d.Allowed {
		return nil, d.Err(authz.OpCreate)
	}

	if err := categoryUsable(ctx, s.categoryRepo, input.CategoryID, scope); err != nil {
		return nil, err
	}

	// Default expense_date to today if not provided
	expenseDate := time.Now().UTC().Truncate(24 * time.Hour)
	if input.ExpenseDate != nil {
		expenseDate = *input.ExpenseDate
	}

	expense, err := s.expenseRepo.Create(ctx, &domain.Expense{
		UserID:      principal.UserID,
		TeamID:      input.TeamID,
		CategoryID:  input.CategoryID,
		Amount:      input.Amount,
		Description: description,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(expense.Scope()), websocket.NewEvent(websocket.EventTypeCreated, websocket.EntityTypeExpense, expense))
	return expense, nil
}

// Get returns a single expense the principal may read
func (s *ExpenseService) Get(ctx context.Context, principal domain.Principal, id int32) (*domain.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, expense.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: expense.Scope(), CreatorID: expense.UserID}, authz.OpRead, m); !d.Allowed {
		return nil, d.Err(authz.OpRead)
	}
	return expense, nil
}

// List returns the expenses visible to the principal, filtered and
// paginated. Visibility is applied in the query, not per row.
func (s *ExpenseService) List(ctx context.Context, principal domain.Principal, filters *domain.ExpenseFilters) ([]*domain.Expense, int64, error) {
	if filters == nil {
		filters = &domain.ExpenseFilters{}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = domain.DefaultPageSize
	}
	if filters.PageSize > domain.MaxPageSize {
		filters.PageSize = domain.MaxPageSize
	}

	teamIDs, err := s.membershipRepo.MemberTeamIDs(ctx, principal.UserID)
	if err != nil {
		return nil, 0, err
	}

	// A team filter outside the principal's memberships yields nothing,
	// same as filtering on a team that does not exist.
	if filters.TeamID != nil {
		member := false
		for _, id := range teamIDs {
			if id == *filters.TeamID {
				member = true
				break
			}
		}
		if !member {
			return []*domain.Expense{}, 0, nil
		}
	}

	return s.expenseRepo.ListVisible(ctx, principal.UserID, teamIDs, filters)
}

// Summary aggregates visible expenses per category over a date range
func (s *ExpenseService) Summary(ctx context.Context, principal domain.Principal, start, end time.Time) ([]*domain.CategorySummary, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}
	teamIDs, err := s.membershipRepo.MemberTeamIDs(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.expenseRepo.SummaryByCategory(ctx, principal.UserID, teamIDs, start, end)
}

// UpdateExpenseInput holds the input for updating an expense. Nil
// fields keep their current value; TeamIDSet distinguishes "move to
// personal" from "leave the scope alone".
type UpdateExpenseInput struct {
	TeamID      *int32
	TeamIDSet   bool
	CategoryID  *int32
	Amount      *decimal.Decimal
	Description *string
	ExpenseDate *time.Time
}

// Update modifies an expense. Permission is checked against the
// resource's current scope; moving it into a team additionally needs
// write access there. The creator never changes.
func (s *ExpenseService) Update(ctx context.Context, principal domain.Principal, id int32, input UpdateExpenseInput) (*domain.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, expense.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: expense.Scope(), CreatorID: expense.UserID}, authz.OpUpdate, m); !d.Allowed {
		return nil, d.Err(authz.OpUpdate)
	}

	if input.Amount != nil {
		if input.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrInvalidAmount
		}
		expense.Amount = *input.Amount
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) > domain.MaxDescriptionLength {
			return nil, domain.ErrNameTooLong
		}
		expense.Description = description
	}
	if input.ExpenseDate != nil {
		expense.ExpenseDate = *input.ExpenseDate
	}
	moved := input.TeamIDSet && !sameTeam(expense.TeamID, input.TeamID)
	targetScope := expense.Scope()
	if moved {
		if input.TeamID != nil {
			// Moving into a team needs create rights there.
			target, targetM, err := intendedScope(ctx, s.membershipRepo, principal, input.TeamID)
			if err != nil {
				return nil, err
			}
			if d := authz.Evaluate(principal, authz.ResourceRef{Scope: target}, authz.OpCreate, targetM); !d.Allowed {
				return nil, d.Err(authz.OpCreate)
			}
			targetScope = target
		} else if expense.UserID != principal.UserID {
			// Only the creator may pull a shared expense back into
			// their personal scope.
			return nil, domain.ErrForbidden
		} else {
			targetScope = domain.PersonalScope(expense.UserID)
		}
	}

	// The category is checked against the scope the row ends up in, so
	// a move also revalidates an unchanged category reference.
	categoryID := expense.CategoryID
	if input.CategoryID != nil {
		categoryID = *input.CategoryID
	}
	if input.CategoryID != nil || moved {
		if err := categoryUsable(ctx, s.categoryRepo, categoryID, targetScope); err != nil {
			return nil, err
		}
	}
	expense.CategoryID = categoryID
	if moved {
		expense.TeamID = input.TeamID
	}

	updated, err := s.expenseRepo.Update(ctx, expense)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(updated.Scope()), websocket.NewEvent(websocket.EventTypeUpdated, websocket.EntityTypeExpense, updated))
	return updated, nil
}

// Delete removes an expense the principal may delete
func (s *ExpenseService) Delete(ctx context.Context, principal domain.Principal, id int32) error {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, expense.Scope())
	if err != nil {
		return err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: expense.Scope(), CreatorID: expense.UserID}, authz.OpDelete, m); !d.Allowed {
		return d.Err(authz.OpDelete)
	}

	if err := s.expenseRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.Publish(channelFor(expense.Scope()), websocket.NewEvent(websocket.EventTypeDeleted, websocket.EntityTypeExpense, map[string]int32{"id": id}))
	return nil
}

func sameTeam(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
