package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// ExpenseHandler handles expense-related HTTP requests
type ExpenseHandler struct {
	expenseService *service.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// CreateExpenseRequest represents the create expense request body
type CreateExpenseRequest struct {
	TeamID      *int32  `json:"teamId,omitempty"`
	CategoryID  int32   `json:"categoryId"`
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	Date        *string `json:"date,omitempty"`
}

// UpdateExpenseRequest represents the update expense request body.
// teamId is tri-state: absent keeps the scope, null moves the expense
// to personal, a value moves it into that team.
type UpdateExpenseRequest struct {
	TeamID      *int32  `json:"teamId"`
	TeamIDSet   bool    `json:"-"`
	CategoryID  *int32  `json:"categoryId,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
}

// ExpenseListResponse is a paginated expense listing
type ExpenseListResponse struct {
	Expenses []*domain.Expense `json:"expenses"`
	Total    int64             `json:"total"`
	Page     int32             `json:"page"`
	PageSize int32             `json:"pageSize"`
}

// CreateExpense godoc
// @Summary Create an expense
// @Description Record an expense in the caller's personal scope or a team they can write to
// @Tags expenses
// @Accept json
// @Produce json
// @Param request body CreateExpenseRequest true "Expense creation request"
// @Success 201 {object} domain.Expense
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /expenses [post]
func (h *ExpenseHandler) CreateExpense(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateExpenseRequest
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

	expenseDate, err := parseDateField(req.Date)
	if err != nil {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "date", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	expense, err := h.expenseService.Create(c.Request().Context(), principal, service.CreateExpenseInput{
		TeamID:      req.TeamID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: req.Description,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, expense)
}

// GetExpenses godoc
// @Summary List visible expenses
// @Description List the caller's personal expenses and those of their teams
// @Tags expenses
// @Produce json
// @Param categoryId query int false "Filter by category"
// @Param teamId query int false "Filter by team"
// @Param startDate query string false "Filter from date (YYYY-MM-DD)"
// @Param endDate query string false "Filter to date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (max 100)"
// @Success 200 {object} ExpenseListResponse
// @Failure 401 {object} ProblemDetails
// @Router /expenses [get]
func (h *ExpenseHandler) GetExpenses(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	filters, err := parseExpenseFilters(c)
	if err != nil {
		return NewValidationError(c, "Invalid filter parameters", nil)
	}

	expenses, total, err := h.expenseService.List(c.Request().Context(), principal, filters)
	if err != nil {
		return respondDomainError(c, err)
	}

	return c.JSON(http.StatusOK, ExpenseListResponse{
		Expenses: expenses,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}

// GetExpense godoc
// @Summary Get an expense
// @Tags expenses
// @Produce json
// @Param id path int true "Expense ID"
// @Success 200 {object} domain.Expense
// @Failure 404 {object} ProblemDetails
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid expense ID", nil)
	}

	expense, err := h.expenseService.Get(c.Request().Context(), principal, id)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, expense)
}

// GetSummary godoc
// @Summary Summarize visible expenses per category
// @Tags expenses
// @Produce json
// @Param startDate query string true "Range start (YYYY-MM-DD)"
// @Param endDate query string true "Range end (YYYY-MM-DD)"
// @Success 200 {array} domain.CategorySummary
// @Failure 400 {object} ProblemDetails
// @Router /expenses/summary [get]
func (h *ExpenseHandler) GetSummary(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	start, err := time.Parse("2006-01-02", c.QueryParam("startDate"))
	if err != nil {
		return NewValidationError(c, "Invalid startDate", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	end, err := time.Parse("2006-01-02", c.QueryParam("endDate"))
	if err != nil {
		return NewValidationError(c, "Invalid endDate", []ValidationError{
			{Field: "endDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	summary, err := h.expenseService.Summary(c.Request().Context(), principal, start, end)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// UpdateExpense godoc
// @Summary Update an expense
// @Description Update fields of an expense; the creator never changes
// @Tags expenses
// @Accept json
// @Produce json
// @Param id path int true "Expense ID"
// @Param request body UpdateExpenseRequest true "Expense update request"
// @Success 200 {object} domain.Expense
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid expense ID", nil)
	}

	// Detect whether teamId was present so null can mean "move to
	// personal" rather than "leave alone".
	var raw map[string]any
	if err := c.Bind(&raw); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	req, err := decodeUpdateExpenseRequest(raw)
	if err != nil {
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

	var expenseDate *time.Time
	if req.Date != nil && *req.Date != "" {
		parsed, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return NewValidationError(c, "Invalid date", []ValidationError{
				{Field: "date", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		expenseDate = &parsed
	}

	expense, err := h.expenseService.Update(c.Request().Context(), principal, id, service.UpdateExpenseInput{
		TeamID:      req.TeamID,
		TeamIDSet:   req.TeamIDSet,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: req.Description,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, expense)
}

// DeleteExpense godoc
// @Summary Delete an expense
// @Tags expenses
// @Produce json
// @Param id path int true "Expense ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid expense ID", nil)
	}

	if err := h.expenseService.Delete(c.Request().Context(), principal, id); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// parseDateField parses an optional YYYY-MM-DD string
func parseDateField(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseExpenseFilters reads listing filters from query parameters
func parseExpenseFilters(c echo.Context) (*domain.ExpenseFilters, error) {
	filters := &domain.ExpenseFilters{}

	if v := c.QueryParam("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, err
		}
		categoryID := int32(id)
		filters.CategoryID = &categoryID
	}
	if v := c.QueryParam("teamId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, err
		}
		teamID := int32(id)
		filters.TeamID = &teamID
	}
	if v := c.QueryParam("startDate"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, err
		}
		filters.StartDate = &parsed
	}
	if v := c.QueryParam("endDate"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, err
		}
		filters.EndDate = &parsed
	}
	if v := c.QueryParam("page"); v != "" {
		page, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, err
		}
		filters.Page = int32(page)
	}
	if v := c.QueryParam("pageSize"); v != "" {
		size, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, err
		}
		filters.PageSize = int32(size)
	}

	return filters, nil
}

// decodeUpdateExpenseRequest maps a raw body to the update request,
// tracking which keys were present.
func decodeUpdateExpenseRequest(raw map[string]any) (*UpdateExpenseRequest, error) {
	req := &UpdateExpenseRequest{}

	if v, present := raw["teamId"]; present {
		req.TeamIDSet = true
		if v != nil {
			f, ok := v.(float64)
			if !ok {
				return nil, domain.ErrInvalidInput
			}
			teamID := int32(f)
			req.TeamID = &teamID
		}
	}
	if v, ok := raw["categoryId"].(float64); ok {
		categoryID := int32(v)
		req.CategoryID = &categoryID
	}
	if v, ok := raw["amount"].(string); ok {
		req.Amount = &v
	}
	if v, ok := raw["description"].(string); ok {
		req.Description = &v
	}
	if v, ok := raw["date"].(string); ok {
		req.Date = &v
	}

	return req, nil
}
