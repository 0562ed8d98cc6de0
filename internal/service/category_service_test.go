package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/testutil"
)

type categoryFixture struct {
	service     *CategoryService
	categories  *testutil.MockCategoryRepository
	memberships *testutil.MockMembershipRepository
	publisher   *testutil.CapturePublisher
}

func newCategoryFixture() *categoryFixture {
	categories := testutil.NewMockCategoryRepository()
	memberships := testutil.NewMockMembershipRepository()
	publisher := &testutil.CapturePublisher{}
	return &categoryFixture{
		service:     NewCategoryService(categories, memberships, publisher),
		categories:  categories,
		memberships: memberships,
		publisher:   publisher,
	}
}

func TestCreateCategory_PersonalScope(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}

	category, err := f.service.Create(context.Background(), principal, "Books", "#3F51B5", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if category.UserID == nil || *category.UserID != principal.UserID {
		t.Error("Expected a personal category owned by the principal")
	}
	if category.TeamID != nil {
		t.Error("Expected no team owner")
	}
	if category.IsDefault {
		t.Error("Expected a user-created category to never be default")
	}
}

func TestCreateCategory_ViewerForbidden(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}
	teamID := int32(1)
	f.memberships.SetRole(principal.UserID, teamID, domain.RoleViewer)

	_, err := f.service.Create(context.Background(), principal, "Books", "#3F51B5", &teamID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestGetCategory_DefaultReadableByAnyone(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}
	seed := f.categories.AddCategory("Other", nil, nil, true)

	category, err := f.service.Get(context.Background(), principal, seed.ID)
	if err != nil {
		t.Fatalf("Expected defaults readable by anyone, got %v", err)
	}
	if category.ID != seed.ID {
		t.Error("Expected the seed category")
	}
}

func TestGetCategory_ForeignPersonalNotFound(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}
	otherUser := uuid.New()
	foreign := f.categories.AddCategory("Private", &otherUser, nil, false)

	_, err := f.service.Get(context.Background(), principal, foreign.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCategory_DefaultImmutable(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}
	seed := f.categories.AddCategory("Other", nil, nil, true)

	_, err := f.service.Update(context.Background(), principal, seed.ID, "Renamed", "#000000")
	if !errors.Is(err, domain.ErrDefaultImmutable) {
		t.Errorf("Expected ErrDefaultImmutable, got %v", err)
	}
}

func TestUpdateCategory_OwnerRenames(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}

	category, err := f.service.Create(context.Background(), principal, "Books", "#3F51B5", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	updated, err := f.service.Update(context.Background(), principal, category.ID, "Reading", "#303F9F")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Name != "Reading" || updated.Color != "#303F9F" {
		t.Errorf("Expected the rename applied, got %s/%s", updated.Name, updated.Color)
	}
}

func TestDeleteCategory_DefaultImmutable(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}
	seed := f.categories.AddCategory("Other", nil, nil, true)

	err := f.service.Delete(context.Background(), principal, seed.ID)
	if !errors.Is(err, domain.ErrDefaultImmutable) {
		t.Errorf("Expected ErrDefaultImmutable, got %v", err)
	}
}

func TestDeleteCategory_InUse(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}

	category, err := f.service.Create(context.Background(), principal, "Books", "#3F51B5", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	f.categories.InUse[category.ID] = 3

	err = f.service.Delete(context.Background(), principal, category.ID)
	if !errors.Is(err, domain.ErrCategoryInUse) {
		t.Errorf("Expected ErrCategoryInUse, got %v", err)
	}

	f.categories.InUse[category.ID] = 0
	if err := f.service.Delete(context.Background(), principal, category.ID); err != nil {
		t.Fatalf("Expected no error once unreferenced, got %v", err)
	}
}

func TestCanDeleteCategory_ReportsReferences(t *testing.T) {
	f := newCategoryFixture()
	principal := domain.Principal{UserID: uuid.New()}

	category, err := f.service.Create(context.Background(), principal, "Books", "#3F51B5", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	f.categories.InUse[category.ID] = 2

	result, err := f.service.CanDelete(context.Background(), principal, category.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.CanDelete {
		t.Error("Expected CanDelete false while referenced")
	}
	if result.References != 2 {
		t.Errorf("Expected 2 references, got %d", result.References)
	}
}

func TestListCategories_TeamVisibility(t *testing.T) {
	f := newCategoryFixture()
	alice := domain.Principal{UserID: uuid.New()}
	bob := domain.Principal{UserID: uuid.New()}
	teamID := int32(1)
	f.memberships.SetRole(alice.UserID, teamID, domain.RoleEditor)

	f.categories.AddCategory("Other", nil, nil, true)
	f.categories.AddCategory("Team Lunches", nil, &teamID, false)
	aliceID := alice.UserID
	f.categories.AddCategory("Books", &aliceID, nil, false)

	visible, err := f.service.List(context.Background(), alice)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(visible) != 3 {
		t.Errorf("Expected alice to see 3 categories, got %d", len(visible))
	}

	visible, err = f.service.List(context.Background(), bob)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("Expected bob to see only the default, got %d", len(visible))
	}
}
