package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/service"
	"github.com/tallyhq/tally-backend/internal/testutil"
)

type expenseHandlerFixture struct {
	handler     *ExpenseHandler
	users       *testutil.MockUserRepository
	memberships *testutil.MockMembershipRepository
	categories  *testutil.MockCategoryRepository
	expenses    *testutil.MockExpenseRepository
}

func newExpenseHandlerFixture() *expenseHandlerFixture {
	users := testutil.NewMockUserRepository()
	memberships := testutil.NewMockMembershipRepository()
	categories := testutil.NewMockCategoryRepository()
	expenses := testutil.NewMockExpenseRepository()
	expenseService := service.NewExpenseService(expenses, categories, memberships, &testutil.CapturePublisher{})
	return &expenseHandlerFixture{
		handler:     NewExpenseHandler(expenseService),
		users:       users,
		memberships: memberships,
		categories:  categories,
		expenses:    expenses,
	}
}

func TestCreateExpense_Success(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")
	category := f.categories.AddCategory("Groceries", &alice.ID, nil, false)

	body := fmt.Sprintf(`{"categoryId":%d,"amount":"12.50","description":"Weekly shop"}`, category.ID)
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses", body)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.CreateExpense(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var expense domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &expense); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if expense.UserID != alice.ID {
		t.Errorf("Expected creator %s, got %s", alice.ID, expense.UserID)
	}
	if expense.Amount.String() != "12.5" {
		t.Errorf("Expected amount 12.5, got %s", expense.Amount)
	}
	if expense.TeamID != nil {
		t.Error("Expected a personal expense")
	}
}

func TestCreateExpense_InvalidAmount(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")
	category := f.categories.AddCategory("Groceries", &alice.ID, nil, false)

	body := fmt.Sprintf(`{"categoryId":%d,"amount":"not-a-number","description":"Weekly shop"}`, category.ID)
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses", body)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.CreateExpense(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateExpense_MissingCategory(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses",
		`{"amount":"12.50","description":"Weekly shop"}`)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.CreateExpense(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateExpense_ViewerForbidden(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")
	teamID := int32(1)
	f.memberships.SetRole(alice.ID, teamID, domain.RoleViewer)
	category := f.categories.AddCategory("Team Groceries", nil, &teamID, false)

	body := fmt.Sprintf(`{"teamId":%d,"categoryId":%d,"amount":"12.50","description":"Weekly shop"}`, teamID, category.ID)
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses", body)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.CreateExpense(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rec.Code)
	}
}

func TestGetExpense_NotFound(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses/9999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("9999")
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.GetExpense(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetExpense_InvalidID(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.GetExpense(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetExpenses_ParsesFilters(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")
	category := f.categories.AddCategory("Groceries", &alice.ID, nil, false)

	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"categoryId":%d,"amount":"10.00","description":"Item %d"}`, category.ID, i)
		c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses", body)
		setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})
		if err := f.handler.CreateExpense(c); err != nil || rec.Code != http.StatusCreated {
			t.Fatalf("Seed expense %d failed: err=%v status=%d", i, err, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/expenses?categoryId=%d&page=1&pageSize=2", category.ID), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.GetExpenses(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response ExpenseListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Total != 3 {
		t.Errorf("Expected total 3, got %d", response.Total)
	}
	if len(response.Expenses) != 2 {
		t.Errorf("Expected 2 expenses on the page, got %d", len(response.Expenses))
	}
	if response.PageSize != 2 {
		t.Errorf("Expected page size 2, got %d", response.PageSize)
	}
}

func TestGetExpenses_InvalidFilter(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses?teamId=abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.GetExpenses(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestUpdateExpense_NullTeamIDMovesToPersonal(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")
	teamID := int32(1)
	f.memberships.SetRole(alice.ID, teamID, domain.RoleEditor)
	teamCategory := f.categories.AddCategory("Team Groceries", nil, &teamID, false)
	personalCategory := f.categories.AddCategory("Groceries", &alice.ID, nil, false)

	body := fmt.Sprintf(`{"teamId":%d,"categoryId":%d,"amount":"12.50","description":"Weekly shop"}`, teamID, teamCategory.ID)
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses", body)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})
	if err := f.handler.CreateExpense(c); err != nil || rec.Code != http.StatusCreated {
		t.Fatalf("Seed expense failed: err=%v status=%d", err, rec.Code)
	}
	var created domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	update := fmt.Sprintf(`{"teamId":null,"categoryId":%d}`, personalCategory.ID)
	c, rec = jsonRequest(e, http.MethodPut, fmt.Sprintf("/api/v1/expenses/%d", created.ID), update)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", created.ID))
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.UpdateExpense(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if updated.TeamID != nil {
		t.Error("Expected the expense to move to the personal scope")
	}
	if updated.UserID != alice.ID {
		t.Error("Expected the creator to be unchanged")
	}
}

func TestUpdateExpense_AbsentTeamIDKeepsScope(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")
	teamID := int32(1)
	f.memberships.SetRole(alice.ID, teamID, domain.RoleEditor)
	teamCategory := f.categories.AddCategory("Team Groceries", nil, &teamID, false)

	body := fmt.Sprintf(`{"teamId":%d,"categoryId":%d,"amount":"12.50","description":"Weekly shop"}`, teamID, teamCategory.ID)
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses", body)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})
	if err := f.handler.CreateExpense(c); err != nil || rec.Code != http.StatusCreated {
		t.Fatalf("Seed expense failed: err=%v status=%d", err, rec.Code)
	}
	var created domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	c, rec = jsonRequest(e, http.MethodPut, fmt.Sprintf("/api/v1/expenses/%d", created.ID),
		`{"description":"Monthly shop"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", created.ID))
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.UpdateExpense(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if updated.TeamID == nil || *updated.TeamID != teamID {
		t.Error("Expected the team scope to be kept when teamId is absent")
	}
	if updated.Description != "Monthly shop" {
		t.Errorf("Expected updated description, got %q", updated.Description)
	}
}

func TestDeleteExpense_Success(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")
	category := f.categories.AddCategory("Groceries", &alice.ID, nil, false)

	body := fmt.Sprintf(`{"categoryId":%d,"amount":"12.50","description":"Weekly shop"}`, category.ID)
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/expenses", body)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})
	if err := f.handler.CreateExpense(c); err != nil || rec.Code != http.StatusCreated {
		t.Fatalf("Seed expense failed: err=%v status=%d", err, rec.Code)
	}
	var created domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/expenses/%d", created.ID), nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", created.ID))
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.DeleteExpense(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
}

func TestGetSummary_MissingRange(t *testing.T) {
	e := echo.New()
	f := newExpenseHandlerFixture()
	alice := f.users.AddUser("alice@example.com", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses/summary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setPrincipal(c, domain.Principal{UserID: alice.ID, Email: alice.Email})

	err := f.handler.GetSummary(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}
