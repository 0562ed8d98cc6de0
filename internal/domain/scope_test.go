package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestScopeOf_MutuallyExclusive(t *testing.T) {
	userID := uuid.New()
	teamID := int32(1)

	_, err := ScopeOf(&userID, &teamID)
	if !errors.Is(err, ErrInvalidScope) {
		t.Errorf("Expected ErrInvalidScope when both owners are set, got %v", err)
	}
}

func TestScopeOf_Personal(t *testing.T) {
	userID := uuid.New()

	scope, err := ScopeOf(&userID, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if scope.Kind() != ScopePersonal {
		t.Errorf("Expected personal scope, got %v", scope.Kind())
	}
	owner, ok := scope.UserID()
	if !ok || owner != userID {
		t.Error("Expected the owning user")
	}
	if _, ok := scope.TeamID(); ok {
		t.Error("Expected no team on a personal scope")
	}
}

func TestScopeOf_Team(t *testing.T) {
	teamID := int32(7)

	scope, err := ScopeOf(nil, &teamID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if scope.Kind() != ScopeTeam {
		t.Errorf("Expected team scope, got %v", scope.Kind())
	}
	team, ok := scope.TeamID()
	if !ok || team != teamID {
		t.Error("Expected the owning team")
	}
}

func TestScopeOf_Default(t *testing.T) {
	scope, err := ScopeOf(nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if scope.Kind() != ScopeDefault {
		t.Errorf("Expected default scope, got %v", scope.Kind())
	}
}

func TestScope_ColumnsRoundTrip(t *testing.T) {
	userID := uuid.New()

	u, tm := PersonalScope(userID).Columns()
	if u == nil || *u != userID || tm != nil {
		t.Error("Expected only the user column set for a personal scope")
	}

	u, tm = TeamScope(3).Columns()
	if u != nil || tm == nil || *tm != 3 {
		t.Error("Expected only the team column set for a team scope")
	}

	u, tm = DefaultScope().Columns()
	if u != nil || tm != nil {
		t.Error("Expected no owner columns for the default scope")
	}
}

func TestExpenseScope(t *testing.T) {
	userID := uuid.New()
	teamID := int32(4)

	personal := &Expense{UserID: userID}
	if personal.Scope().Kind() != ScopePersonal {
		t.Error("Expected a personal scope without a team")
	}

	shared := &Expense{UserID: userID, TeamID: &teamID}
	if shared.Scope().Kind() != ScopeTeam {
		t.Error("Expected a team scope when teamId is set")
	}
	team, _ := shared.Scope().TeamID()
	if team != teamID {
		t.Errorf("Expected team %d, got %d", teamID, team)
	}
}

func TestCategoryScope_DefaultWinsOverOwner(t *testing.T) {
	userID := uuid.New()

	category := &Category{IsDefault: true, UserID: &userID}
	if category.Scope().Kind() != ScopeDefault {
		t.Error("Expected the default marker to dominate ownership")
	}
}

func TestBudgetCreatorID(t *testing.T) {
	userID := uuid.New()
	teamID := int32(2)

	personal := &Budget{UserID: &userID}
	if personal.CreatorID() != userID {
		t.Error("Expected the owning user as creator")
	}

	// Team budgets have no per-row creator, disabling the owner
	// override in the evaluator.
	team := &Budget{TeamID: &teamID}
	if team.CreatorID() != uuid.Nil {
		t.Error("Expected uuid.Nil for a team budget")
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleEditor, RoleViewer} {
		if !role.Valid() {
			t.Errorf("Expected %s to be valid", role)
		}
	}
	if Role("owner").Valid() {
		t.Error("Expected unknown roles to be invalid")
	}
}

func TestFrequencyValid(t *testing.T) {
	for _, f := range []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly} {
		if !f.Valid() {
			t.Errorf("Expected %s to be valid", f)
		}
	}
	if Frequency("fortnightly").Valid() {
		t.Error("Expected unknown frequencies to be invalid")
	}
}
