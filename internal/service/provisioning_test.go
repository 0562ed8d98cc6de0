package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/testutil"
)

func TestEnsureDefaults_SeedsPersonalScope(t *testing.T) {
	categories := testutil.NewMockCategoryRepository()
	provisioning := NewProvisioningService(categories)
	userID := uuid.New()

	if err := provisioning.EnsureDefaults(context.Background(), domain.PersonalScope(userID)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	seeded, _ := categories.ListVisible(context.Background(), userID, nil)
	if len(seeded) != len(defaultCategorySeed) {
		t.Fatalf("Expected %d categories, got %d", len(defaultCategorySeed), len(seeded))
	}
	for _, category := range seeded {
		if category.IsDefault {
			t.Errorf("Expected owned seed %q to stay editable, not marked default", category.Name)
		}
		if category.UserID == nil || *category.UserID != userID {
			t.Errorf("Expected seeded category %q to be owned by the user", category.Name)
		}
	}
}

func TestEnsureDefaults_UnownedScopeSeedsGlobalDefaults(t *testing.T) {
	categories := testutil.NewMockCategoryRepository()
	provisioning := NewProvisioningService(categories)

	if err := provisioning.EnsureDefaults(context.Background(), domain.DefaultScope()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, category := range categories.Categories {
		if !category.IsDefault {
			t.Errorf("Expected unowned seed %q to carry the default marker", category.Name)
		}
		if category.UserID != nil || category.TeamID != nil {
			t.Errorf("Expected unowned seed %q to have no owner", category.Name)
		}
	}
}

func TestEnsureDefaults_Idempotent(t *testing.T) {
	categories := testutil.NewMockCategoryRepository()
	provisioning := NewProvisioningService(categories)
	scope := domain.TeamScope(7)

	if err := provisioning.EnsureDefaults(context.Background(), scope); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := provisioning.EnsureDefaults(context.Background(), scope); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	count, _ := categories.CountForOwner(context.Background(), scope)
	if count != int64(len(defaultCategorySeed)) {
		t.Errorf("Expected %d categories after double provisioning, got %d", len(defaultCategorySeed), count)
	}
}

func TestEnsureDefaults_SkipsPartiallySeededScope(t *testing.T) {
	categories := testutil.NewMockCategoryRepository()
	provisioning := NewProvisioningService(categories)
	userID := uuid.New()

	// Any existing category in the scope means provisioning already ran.
	categories.AddCategory("Custom", &userID, nil, false)

	if err := provisioning.EnsureDefaults(context.Background(), domain.PersonalScope(userID)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	count, _ := categories.CountForOwner(context.Background(), domain.PersonalScope(userID))
	if count != 1 {
		t.Errorf("Expected provisioning to be skipped, got %d categories", count)
	}
}
