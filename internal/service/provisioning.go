package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// defaultCategorySeed is the category set every new personal or team
// scope starts with.
var defaultCategorySeed = []struct {
	Name  string
	Color string
}{
	{"Groceries", "#4CAF50"},
	{"Dining Out", "#FF9800"},
	{"Transport", "#2196F3"},
	{"Housing", "#795548"},
	{"Utilities", "#607D8B"},
	{"Entertainment", "#9C27B0"},
	{"Health", "#F44336"},
	{"Travel", "#00BCD4"},
	{"Shopping", "#E91E63"},
	{"Other", "#9E9E9E"},
}

// ProvisioningService seeds default categories for new scopes
type ProvisioningService struct {
	categoryRepo domain.CategoryRepository
}

// NewProvisioningService creates a new ProvisioningService
func NewProvisioningService(categoryRepo domain.CategoryRepository) *ProvisioningService {
	return &ProvisioningService{categoryRepo: categoryRepo}
}

// EnsureDefaults creates the default categories for the given scope.
// It is idempotent: a scope that already has any category is left
// untouched, so a retried signup or team creation never duplicates the
// seed set.
func (s *ProvisioningService) EnsureDefaults(ctx context.Context, scope domain.Scope) error {
	count, err := s.categoryRepo.CountForOwner(ctx, scope)
	if err != nil {
		return fmt.Errorf("count categories for %s: %w", scope, err)
	}
	if count > 0 {
		return nil
	}

	// Seeds belong to the scope and stay editable there. Only unowned
	// seed rows carry the is_default marker, which makes them readable
	// everywhere and immutable.
	userID, teamID := scope.Columns()
	for _, seed := range defaultCategorySeed {
		_, err := s.categoryRepo.Create(ctx, &domain.Category{
			Name:      seed.Name,
			Color:     seed.Color,
			UserID:    userID,
			TeamID:    teamID,
			IsDefault: userID == nil && teamID == nil,
		})
		if err != nil {
			return fmt.Errorf("seed category %q for %s: %w", seed.Name, scope, err)
		}
	}

	log.Info().Str("scope", scope.String()).Int("categories", len(defaultCategorySeed)).Msg("Provisioned default categories")
	return nil
}
