package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// BudgetHandler handles budget-related HTTP requests
type BudgetHandler struct {
	budgetService *service.BudgetService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRequest represents the create budget request body
type CreateBudgetRequest struct {
	TeamID     *int32 `json:"teamId,omitempty"`
	CategoryID int32  `json:"categoryId"`
	Amount     string `json:"amount"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

// UpdateBudgetRequest represents the update budget request body
type UpdateBudgetRequest struct {
	CategoryID *int32  `json:"categoryId,omitempty"`
	Amount     *string `json:"amount,omitempty"`
	StartDate  *string `json:"startDate,omitempty"`
	EndDate    *string `json:"endDate,omitempty"`
}

// CreateBudget godoc
// @Summary Create a budget
// @Description Set a spending limit over a category and date range
// @Tags budgets
// @Accept json
// @Produce json
// @Param request body CreateBudgetRequest true "Budget creation request"
// @Success 201 {object} domain.Budget
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /budgets [post]
func (h *BudgetHandler) CreateBudget(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	if req.CategoryID <= 0 {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "categoryId", Message: "Category ID is required"},
		})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid startDate", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return NewValidationError(c, "Invalid endDate", []ValidationError{
			{Field: "endDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	budget, err := h.budgetService.Create(c.Request().Context(), principal, service.CreateBudgetInput{
		TeamID:     req.TeamID,
		CategoryID: req.CategoryID,
		Amount:     amount,
		StartDate:  startDate,
		EndDate:    endDate,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, budget)
}

// GetBudgets godoc
// @Summary List visible budgets
// @Tags budgets
// @Produce json
// @Success 200 {array} domain.Budget
// @Failure 401 {object} ProblemDetails
// @Router /budgets [get]
func (h *BudgetHandler) GetBudgets(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	budgets, err := h.budgetService.List(c.Request().Context(), principal)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, budgets)
}

// GetBudget godoc
// @Summary Get a budget
// @Tags budgets
// @Produce json
// @Param id path int true "Budget ID"
// @Success 200 {object} domain.Budget
// @Failure 404 {object} ProblemDetails
// @Router /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	budget, err := h.budgetService.Get(c.Request().Context(), principal, id)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, budget)
}

// UpdateBudget godoc
// @Summary Update a budget
// @Description Change a budget's amount, category or period; scope is fixed at creation
// @Tags budgets
// @Accept json
// @Produce json
// @Param id path int true "Budget ID"
// @Param request body UpdateBudgetRequest true "Budget update request"
// @Success 200 {object} domain.Budget
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	var req UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var amount *decimal.Decimal
	if req.Amount != nil {
		parsed, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return NewValidationError(c, "Invalid amount", []ValidationError{
				{Field: "amount", Message: "Must be a valid decimal number"},
			})
		}
		amount = &parsed
	}

	startDate, err := parseDateField(req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid startDate", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	endDate, err := parseDateField(req.EndDate)
	if err != nil {
		return NewValidationError(c, "Invalid endDate", []ValidationError{
			{Field: "endDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	budget, err := h.budgetService.Update(c.Request().Context(), principal, id, service.UpdateBudgetInput{
		CategoryID: req.CategoryID,
		Amount:     amount,
		StartDate:  startDate,
		EndDate:    endDate,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, budget)
}

// DeleteBudget godoc
// @Summary Delete a budget
// @Tags budgets
// @Produce json
// @Param id path int true "Budget ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	if err := h.budgetService.Delete(c.Request().Context(), principal, id); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
