package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/testutil"
)

type recurringFixture struct {
	service     *RecurringService
	templates   *testutil.MockRecurringExpenseRepository
	categories  *testutil.MockCategoryRepository
	memberships *testutil.MockMembershipRepository
}

func newRecurringFixture() *recurringFixture {
	templates := testutil.NewMockRecurringExpenseRepository()
	categories := testutil.NewMockCategoryRepository()
	memberships := testutil.NewMockMembershipRepository()
	return &recurringFixture{
		service:     NewRecurringService(templates, categories, memberships, &testutil.CapturePublisher{}),
		templates:   templates,
		categories:  categories,
		memberships: memberships,
	}
}

func TestCreateRecurring_Success(t *testing.T) {
	f := newRecurringFixture()
	principal := domain.Principal{UserID: uuid.New()}
	category := f.categories.AddCategory("Housing", nil, nil, true)
	nextRun := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	template, err := f.service.Create(context.Background(), principal, CreateRecurringInput{
		CategoryID:  category.ID,
		Amount:      decimal.NewFromInt(1200),
		Description: "Rent",
		Frequency:   domain.FrequencyMonthly,
		NextRun:     nextRun,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if template.Frequency != domain.FrequencyMonthly {
		t.Errorf("Expected monthly frequency, got %s", template.Frequency)
	}
	if !template.NextRun.Equal(nextRun) {
		t.Errorf("Expected next run %v, got %v", nextRun, template.NextRun)
	}
}

func TestCreateRecurring_InvalidFrequency(t *testing.T) {
	f := newRecurringFixture()
	principal := domain.Principal{UserID: uuid.New()}
	category := f.categories.AddCategory("Housing", nil, nil, true)

	_, err := f.service.Create(context.Background(), principal, CreateRecurringInput{
		CategoryID: category.ID,
		Amount:     decimal.NewFromInt(1200),
		Frequency:  domain.Frequency("fortnightly"),
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateRecurring_ViewerForbidden(t *testing.T) {
	f := newRecurringFixture()
	principal := domain.Principal{UserID: uuid.New()}
	category := f.categories.AddCategory("Housing", nil, nil, true)
	teamID := int32(1)
	f.memberships.SetRole(principal.UserID, teamID, domain.RoleViewer)

	_, err := f.service.Create(context.Background(), principal, CreateRecurringInput{
		TeamID:     &teamID,
		CategoryID: category.ID,
		Amount:     decimal.NewFromInt(50),
		Frequency:  domain.FrequencyWeekly,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestUpdateRecurring_OwnerOverride(t *testing.T) {
	f := newRecurringFixture()
	alice := domain.Principal{UserID: uuid.New()}
	category := f.categories.AddCategory("Housing", nil, nil, true)
	teamID := int32(1)
	f.memberships.SetRole(alice.UserID, teamID, domain.RoleEditor)

	template, err := f.service.Create(context.Background(), alice, CreateRecurringInput{
		TeamID:     &teamID,
		CategoryID: category.ID,
		Amount:     decimal.NewFromInt(50),
		Frequency:  domain.FrequencyWeekly,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Recurring templates track their creator, so the owner override
	// survives a demotion, same as for expenses.
	f.memberships.SetRole(alice.UserID, teamID, domain.RoleViewer)
	frequency := domain.FrequencyMonthly
	updated, err := f.service.Update(context.Background(), alice, template.ID, UpdateRecurringInput{Frequency: &frequency})
	if err != nil {
		t.Fatalf("Expected the owner override to allow the update, got %v", err)
	}
	if updated.Frequency != domain.FrequencyMonthly {
		t.Errorf("Expected monthly frequency, got %s", updated.Frequency)
	}
}

func TestGetRecurring_CrossUserNotFound(t *testing.T) {
	f := newRecurringFixture()
	alice := domain.Principal{UserID: uuid.New()}
	bob := domain.Principal{UserID: uuid.New()}
	category := f.categories.AddCategory("Housing", nil, nil, true)

	template, err := f.service.Create(context.Background(), alice, CreateRecurringInput{
		CategoryID: category.ID,
		Amount:     decimal.NewFromInt(50),
		Frequency:  domain.FrequencyWeekly,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = f.service.Get(context.Background(), bob, template.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRecurring_Creator(t *testing.T) {
	f := newRecurringFixture()
	alice := domain.Principal{UserID: uuid.New()}
	category := f.categories.AddCategory("Housing", nil, nil, true)

	template, err := f.service.Create(context.Background(), alice, CreateRecurringInput{
		CategoryID: category.ID,
		Amount:     decimal.NewFromInt(50),
		Frequency:  domain.FrequencyDaily,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := f.service.Delete(context.Background(), alice, template.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := f.templates.GetByID(context.Background(), template.ID); !errors.Is(err, domain.ErrRecurringNotFound) {
		t.Error("Expected the template to be gone")
	}
}
