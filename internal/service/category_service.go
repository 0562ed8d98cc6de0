package service

import (
	"context"
	"strings"

	"github.com/tallyhq/tally-backend/internal/authz"
	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

// CategoryService handles category-related business logic
type CategoryService struct {
	categoryRepo   domain.CategoryRepository
	membershipRepo domain.MembershipRepository
	publisher      websocket.EventPublisher
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo domain.CategoryRepository, membershipRepo domain.MembershipRepository, publisher websocket.EventPublisher) *CategoryService {
	return &CategoryService{
		categoryRepo:   categoryRepo,
		membershipRepo: membershipRepo,
		publisher:      publisher,
	}
}

// CanDeleteResponse reports whether a category is safe to delete
type CanDeleteResponse struct {
	CanDelete  bool  `json:"canDelete"`
	References int64 `json:"references"`
}

// Create adds a category to the principal's personal scope or a team
// they can write to.
func (s *CategoryService) Create(ctx context.Context, principal domain.Principal, name, color string, teamID *int32) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}

	scope, m, err := intendedScope(ctx, s.membershipRepo, principal, teamID)
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: scope}, authz.OpCreate, m); !d.Allowed {
		return nil, d.Err(authz.OpCreate)
	}

	userID, tID := scope.Columns()
	category, err := s.categoryRepo.Create(ctx, &domain.Category{
		Name:   name,
		Color:  color,
		UserID: userID,
		TeamID: tID,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(category.Scope()), websocket.NewEvent(websocket.EventTypeCreated, websocket.EntityTypeCategory, category))
	return category, nil
}

// List returns every category the principal can see: defaults, their
// personal ones, and those of their teams.
func (s *CategoryService) List(ctx context.Context, principal domain.Principal) ([]*domain.Category, error) {
	teamIDs, err := s.membershipRepo.MemberTeamIDs(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.categoryRepo.ListVisible(ctx, principal.UserID, teamIDs)
}

// Get returns a single category the principal may read
func (s *CategoryService) Get(ctx context.Context, principal domain.Principal, id int32) (*domain.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, category.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: category.Scope()}, authz.OpRead, m); !d.Allowed {
		return nil, d.Err(authz.OpRead)
	}
	return category, nil
}

// Update renames or recolors a category. Default categories are
// immutable.
func (s *CategoryService) Update(ctx context.Context, principal domain.Principal, id int32, name, color string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.IsDefault {
		return nil, domain.ErrDefaultImmutable
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, category.Scope())
	if err != nil {
		return nil, err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: category.Scope()}, authz.OpUpdate, m); !d.Allowed {
		return nil, d.Err(authz.OpUpdate)
	}

	updated, err := s.categoryRepo.Update(ctx, id, name, color)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(channelFor(updated.Scope()), websocket.NewEvent(websocket.EventTypeUpdated, websocket.EntityTypeCategory, updated))
	return updated, nil
}

// CanDelete reports whether the category has any references left
func (s *CategoryService) CanDelete(ctx context.Context, principal domain.Principal, id int32) (*CanDeleteResponse, error) {
	if _, err := s.Get(ctx, principal, id); err != nil {
		return nil, err
	}

	references, err := s.categoryRepo.InUseCount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CanDeleteResponse{CanDelete: references == 0, References: references}, nil
}

// Delete removes a category. It is rejected while any expense, budget
// or recurring template still references it, and default categories
// can never be deleted.
func (s *CategoryService) Delete(ctx context.Context, principal domain.Principal, id int32) error {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if category.IsDefault {
		return domain.ErrDefaultImmutable
	}

	m, err := membershipFor(ctx, s.membershipRepo, principal, category.Scope())
	if err != nil {
		return err
	}
	if d := authz.Evaluate(principal, authz.ResourceRef{Scope: category.Scope()}, authz.OpDelete, m); !d.Allowed {
		return d.Err(authz.OpDelete)
	}

	references, err := s.categoryRepo.InUseCount(ctx, id)
	if err != nil {
		return err
	}
	if references > 0 {
		return domain.ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.Publish(channelFor(category.Scope()), websocket.NewEvent(websocket.EventTypeDeleted, websocket.EntityTypeCategory, map[string]int32{"id": id}))
	return nil
}
