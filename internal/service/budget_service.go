package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/authz"
	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

// BudgetService handles budget-related business logic
type BudgetService struct {
	budgetRepo     domain.BudgetRepository
	categoryRepo   domain.CategoryRepository
	membershipRepo domain.MembershipRepository
	publisher      websocket.EventPublisher
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(budgetRepo domain.BudgetRepository, categoryRepo domain.CategoryRepository, membershipRepo domain.MembershipRepository, publisher websocket.EventPublisher) *BudgetService {
	return &BudgetService{
		budgetRepo:     budgetRepo,
		categoryRepo:   categoryRepo,
		membershipRepo: membershipRepo,
		publisher:      publisher,
	}
}

// CreateBudgetInput holds the input for creating a budget
type CreateBudgetInput struct {
	TeamID     *int32
	CategoryID int32
	Amount     decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
}

// Create sets a budget in the principal's personal scope or a team
// they can write to. Team budgets carry no per-row creator.
func (s *BudgetService) Create(ctx context.Context, principal domain.Principal, input CreateBudgetInput) (*domain.Budget, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, domain.ErrInvalidDateRange
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

	userID, teamID := scope.Columns()
	budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
		UserID:     userID,
		TeamID:     teamID,
		CategoryID: input.CategoryID,
		Amount:     input.Amount,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(budget.Scope()), websocket.NewEvent(websocket.EventTypeCreated, websocket.EntityTypeBudget, budget))
	return budget, nil
}

// Get returns a single budget the principal may read
func (s *BudgetService) Get(ctx context.Context, principal domain.Principal, id int32) (*domain.Budget, error) {
	budget, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, budget.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: budget.Scope(), CreatorID: budget.CreatorID()}, authz.OpRead, m); !d.Allowed {
		return nil, d.Err(authz.OpRead)
	}
	return budget, nil
}

// List returns the budgets visible to the principal
func (s *BudgetService) List(ctx context.Context, principal domain.Principal) ([]*domain.Budget, error) {
	teamIDs, err := s.membershipRepo.MemberTeamIDs(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.budgetRepo.ListVisible(ctx, principal.UserID, teamIDs)
}

// UpdateBudgetInput holds the input for updating a budget. Nil fields
// keep their current value.
type UpdateBudgetInput struct {
	CategoryID *int32
	Amount     *decimal.Decimal
	StartDate  *time.Time
	EndDate    *time.Time
}

// Update modifies a budget's amount, category or period. Scope never
// changes after creation.
func (s *BudgetService) Update(ctx context.Context, principal domain.Principal, id int32, input UpdateBudgetInput) (*domain.Budget, error) {
	budget, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, budget.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: budget.Scope(), CreatorID: budget.CreatorID()}, authz.OpUpdate, m); !d.Allowed {
		return nil, d.Err(authz.OpUpdate)
	}

	if input.Amount != nil {
		if input.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrInvalidAmount
		}
		budget.Amount = *input.Amount
	}
	if input.StartDate != nil {
		budget.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		budget.EndDate = *input.EndDate
	}
	if budget.EndDate.Before(budget.StartDate) {
		return nil, domain.ErrInvalidDateRange
	}
	if input.CategoryID != nil {
		if err := categoryUsable(ctx, s.categoryRepo, *input.CategoryID, budget.Scope()); err != nil {
			return nil, err
		}
		budget.CategoryID = *input.CategoryID
	}

	updated, err := s.budgetRepo.Update(ctx, budget)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(updated.Scope()), websocket.NewEvent(websocket.EventTypeUpdated, websocket.EntityTypeBudget, updated))
	return updated, nil
}

// Delete removes a budget the principal may delete
func (s *BudgetService) Delete(ctx context.Context, principal domain.Principal, id int32) error {
	budget, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, budget.Scope())
	if err != nil {
		return err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: budget.Scope(), CreatorID: budget.CreatorID()}, authz.OpDelete, m); !d.Allowed {
		return d.Err(authz.OpDelete)
	}

	if err := s.budgetRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.Publish(channelFor(budget.Scope()), websocket.NewEvent(websocket.EventTypeDeleted, websocket.EntityTypeBudget, map[string]int32{"id": id}))
	return nil
}
