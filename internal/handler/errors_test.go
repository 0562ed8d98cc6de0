package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
)

func TestRespondDomainError_StatusMapping(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"Not found", domain.ErrNotFound, http.StatusNotFound},
		{"Expense not found", domain.ErrExpenseNotFound, http.StatusNotFound},
		{"Team not found", domain.ErrTeamNotFound, http.StatusNotFound},
		{"Forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"Default immutable", domain.ErrDefaultImmutable, http.StatusForbidden},
		{"Unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"Email taken", domain.ErrEmailTaken, http.StatusConflict},
		{"Last admin", domain.ErrLastAdmin, http.StatusConflict},
		{"Category in use", domain.ErrCategoryInUse, http.StatusConflict},
		{"Invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"Invalid date range", domain.ErrInvalidDateRange, http.StatusBadRequest},
		{"Category not found", domain.ErrCategoryNotFound, http.StatusBadRequest},
		{"Too many tokens", domain.ErrTooManyAPITokens, http.StatusBadRequest},
		{"Unknown error", errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := respondDomainError(c, tt.err)
			if err != nil {
				t.Fatalf("Expected JSON response, got error: %v", err)
			}
			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name    string
		value   string
		want    int32
		wantErr bool
	}{
		{"Valid", "42", 42, false},
		{"Zero", "0", 0, true},
		{"Negative", "-1", 0, true},
		{"Not a number", "abc", 0, true},
		{"Overflow", "99999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(tt.value)

			got, err := parseIDParam(c, "id")
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error for %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
