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

// RecurringService handles recurring expense template business logic
type RecurringService struct {
	recurringRepo  domain.RecurringExpenseRepository
	categoryRepo   domain.CategoryRepository
	membershipRepo domain.MembershipRepository
	publisher      websocket.EventPublisher
}

// NewRecurringService creates a new RecurringService
func NewRecurringService(recurringRepo domain.RecurringExpenseRepository, categoryRepo domain.CategoryRepository, membershipRepo domain.MembershipRepository, publisher websocket.EventPublisher) *RecurringService {
	return &RecurringService{
		recurringRepo:  recurringRepo,
		categoryRepo:   categoryRepo,
		membershipRepo: membershipRepo,
		publisher:      publisher,
	}
}

// CreateRecurringInput holds the input for creating a recurring template
type CreateRecurringInput struct {
	TeamID      *int32
	CategoryID  int32
	Amount      decimal.Decimal
	Description string
	Frequency   domain.Frequency
	NextRun     time.Time
}

// Create adds a recurring expense template under the same scoping and
// permission rules as a plain expense.
func (s *RecurringService) Create(ctx context.Context, principal domain.Principal, input CreateRecurringInput) (*domain.RecurringExpense, error) {
	description := strings.TrimSpace(input.Description)
	if len(description) > domain.MaxDescriptionLength {
		return nil, domain.ErrNameTooLong
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if !input.Frequency.Valid() {
		return nil, domain.ErrInvalidInput
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

	template, err := s.recurringRepo.Create(ctx, &domain.RecurringExpense{
		UserID:      principal.UserID,
		TeamID:      input.TeamID,
		CategoryID:  input.CategoryID,
		Amount:      input.Amount,
		Description: description,
		Frequency:   input.Frequency,
		NextRun:     input.NextRun,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(template.Scope()), websocket.NewEvent(websocket.EventTypeCreated, websocket.EntityTypeRecurring, template))
	return template, nil
}

// Get returns a single template the principal may read
func (s *RecurringService) Get(ctx context.Context, principal domain.Principal, id int32) (*domain.RecurringExpense, error) {
	template, err := s.recurringRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, template.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: template.Scope(), CreatorID: template.UserID}, authz.OpRead, m); !d.Allowed {
		return nil, d.Err(authz.OpRead)
	}
	return template, nil
}

// List returns the templates visible to the principal
func (s *RecurringService) List(ctx context.Context, principal domain.Principal) ([]*domain.RecurringExpense, error) {
	teamIDs, err := s.membershipRepo.MemberTeamIDs(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.recurringRepo.ListVisible(ctx, principal.UserID, teamIDs)
}

// UpdateRecurringInput holds the input for updating a template. Nil
// fields keep their current value.
type UpdateRecurringInput struct {
	CategoryID  *int32
	Amount      *decimal.Decimal
	Description *string
	Frequency   *domain.Frequency
	NextRun     *time.Time
}

// Update modifies a recurring template
func (s *RecurringService) Update(ctx context.Context, principal domain.Principal, id int32, input UpdateRecurringInput) (*domain.RecurringExpense, error) {
	template, err := s.recurringRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, template.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: template.Scope(), CreatorID: template.UserID}, authz.OpUpdate, m); !d.Allowed {
		return nil, d.Err(authz.OpUpdate)
	}

	if input.Amount != nil {
		if input.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrInvalidAmount
		}
		template.Amount = *input.Amount
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) > domain.MaxDescriptionLength {
			return nil, domain.ErrNameTooLong
		}
		template.Description = description
	}
	if input.Frequency != nil {
		if !input.Frequency.Valid() {
			return nil, domain.ErrInvalidInput
		}
		template.Frequency = *input.Frequency
	}
	if input.NextRun != nil {
		template.NextRun = *input.NextRun
	}
	if input.CategoryID != nil {
		if err := categoryUsable(ctx, s.categoryRepo, *input.CategoryID, template.Scope()); err != nil {
			return nil, err
		}
		template.CategoryID = *input.CategoryID
	}

	updated, err := s.recurringRepo.Update(ctx, template)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(updated.Scope()), websocket.NewEvent(websocket.EventTypeUpdated, websocket.EntityTypeRecurring, updated))
	return updated, nil
}

// Delete removes a recurring template the principal may delete
func (s *RecurringService) Delete(ctx context.Context, principal domain.Principal, id int32) error {
	template, err := s.recurringRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, template.Scope())
	if err != nil {
		return err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: template.Scope(), CreatorID: template.UserID}, authz.OpDelete, m); !d.Allowed {
		return d.Err(authz.OpDelete)
	}

	if err := s.recurringRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.Publish(channelFor(template.Scope()), websocket.NewEvent(websocket.EventTypeDeleted, websocket.EntityTypeRecurring, map[string]int32{"id": id}))
	return nil
}
