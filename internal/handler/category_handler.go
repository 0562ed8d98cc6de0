package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the create category request body
type CreateCategoryRequest struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	TeamID *int32 `json:"teamId,omitempty"`
}

// UpdateCategoryRequest represents the update category request body
type UpdateCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateCategory godoc
// @Summary Create a category
// @Description Create a category in the caller's personal scope or a team they can write to
// @Tags categories
// @Accept json
// @Produce json
// @Param request body CreateCategoryRequest true "Category creation request"
// @Success 201 {object} domain.Category
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	category, err := h.categoryService.Create(c.Request().Context(), principal, req.Name, req.Color, req.TeamID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

// GetCategories godoc
// @Summary List visible categories
// @Description List default categories plus the caller's personal and team categories
// @Tags categories
// @Produce json
// @Success 200 {array} domain.Category
// @Failure 401 {object} ProblemDetails
// @Router /categories [get]
func (h *CategoryHandler) GetCategories(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	categories, err := h.categoryService.List(c.Request().Context(), principal)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

// GetCategory godoc
// @Summary Get a category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} domain.Category
// @Failure 404 {object} ProblemDetails
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	category, err := h.categoryService.Get(c.Request().Context(), principal, id)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return NewNotFoundError(c, "Category not found")
		}
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Description Rename or recolor a category; defaults are immutable
// @Tags categories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body UpdateCategoryRequest true "Category update request"
// @Success 200 {object} domain.Category
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	var req UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	category, err := h.categoryService.Update(c.Request().Context(), principal, id, req.Name, req.Color)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return NewNotFoundError(c, "Category not found")
		}
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// CanDeleteCategory godoc
// @Summary Check whether a category can be deleted
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} service.CanDeleteResponse
// @Failure 404 {object} ProblemDetails
// @Router /categories/{id}/can-delete [get]
func (h *CategoryHandler) CanDeleteCategory(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	result, err := h.categoryService.CanDelete(c.Request().Context(), principal, id)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return NewNotFoundError(c, "Category not found")
		}
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Delete a category with no remaining references; defaults are immutable
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	if err := h.categoryService.Delete(c.Request().Context(), principal, id); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return NewNotFoundError(c, "Category not found")
		}
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
