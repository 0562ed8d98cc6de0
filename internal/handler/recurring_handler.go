package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// RecurringHandler handles recurring expense template HTTP requests
type RecurringHandler struct {
	recurringService *service.RecurringService
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurringService *service.RecurringService) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// CreateRecurringRequest represents the create template request body
type CreateRecurringRequest struct {
	TeamID      *int32 `json:"teamId,omitempty"`
	CategoryID  int32  `json:"categoryId"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	NextRun     string `json:"nextRun"`
}

// UpdateRecurringRequest represents the update template request body
type UpdateRecurringRequest struct {
	CategoryID  *int32  `json:"categoryId,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Description *string `json:"description,omitempty"`
	Frequency   *string `json:"frequency,omitempty"`
	NextRun     *string `json:"nextRun,omitempty"`
}

// CreateRecurring godoc
// @Summary Create a recurring expense template
// @Tags recurring
// @Accept json
// @Produce json
// @Param request body CreateRecurringRequest true "Template creation request"
// @Success 201 {object} domain.RecurringExpense
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /recurring [post]
func (h *RecurringHandler) CreateRecurring(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateRecurringRequest
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

	nextRun, err := time.Parse("2006-01-02", req.NextRun)
	if err != nil {
		return NewValidationError(c, "Invalid nextRun", []ValidationError{
			{Field: "nextRun", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	template, err := h.recurringService.Create(c.Request().Context(), principal, service.CreateRecurringInput{
		TeamID:      req.TeamID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: req.Description,
		Frequency:   domain.Frequency(req.Frequency),
		NextRun:     nextRun,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, template)
}

// GetRecurring godoc
// @Summary List visible recurring templates
// @Tags recurring
// @Produce json
// @Success 200 {array} domain.RecurringExpense
// @Failure 401 {object} ProblemDetails
// @Router /recurring [get]
func (h *RecurringHandler) GetRecurring(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	templates, err := h.recurringService.List(c.Request().Context(), principal)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, templates)
}

// GetRecurringByID godoc
// @Summary Get a recurring template
// @Tags recurring
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} domain.RecurringExpense
// @Failure 404 {object} ProblemDetails
// @Router /recurring/{id} [get]
func (h *RecurringHandler) GetRecurringByID(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid template ID", nil)
	}

	template, err := h.recurringService.Get(c.Request().Context(), principal, id)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, template)
}

// UpdateRecurring godoc
// @Summary Update a recurring template
// @Tags recurring
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param request body UpdateRecurringRequest true "Template update request"
// @Success 200 {object} domain.RecurringExpense
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /recurring/{id} [put]
func (h *RecurringHandler) UpdateRecurring(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid template ID", nil)
	}

	var req UpdateRecurringRequest
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

	var frequency *domain.Frequency
	if req.Frequency != nil {
		f := domain.Frequency(*req.Frequency)
		frequency = &f
	}

	nextRun, err := parseDateField(req.NextRun)
	if err != nil {
		return NewValidationError(c, "Invalid nextRun", []ValidationError{
			{Field: "nextRun", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	template, err := h.recurringService.Update(c.Request().Context(), principal, id, service.UpdateRecurringInput{
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: req.Description,
		Frequency:   frequency,
		NextRun:     nextRun,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, template)
}

// DeleteRecurring godoc
// @Summary Delete a recurring template
// @Tags recurring
// @Produce json
// @Param id path int true "Template ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /recurring/{id} [delete]
func (h *RecurringHandler) DeleteRecurring(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid template ID", nil)
	}

	if err := h.recurringService.Delete(c.Request().Context(), principal, id); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
