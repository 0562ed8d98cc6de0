package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// APITokenHandler handles API token management requests
type APITokenHandler struct {
	tokenService *service.APITokenService
}

// NewAPITokenHandler creates a new APITokenHandler
func NewAPITokenHandler(tokenService *service.APITokenService) *APITokenHandler {
	return &APITokenHandler{tokenService: tokenService}
}

// CreateAPITokenRequest represents the create token request body
type CreateAPITokenRequest struct {
	Description string `json:"description"`
}

// CreateToken godoc
// @Summary Create an API token
// @Description Mint a bearer token for programmatic access; the full token is shown once
// @Tags api-tokens
// @Accept json
// @Produce json
// @Param request body CreateAPITokenRequest true "Token creation request"
// @Success 201 {object} domain.CreateAPITokenResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /api-tokens [post]
func (h *APITokenHandler) CreateToken(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateAPITokenRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Description == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "description", Message: "Description is required"},
		})
	}

	token, err := h.tokenService.Create(c.Request().Context(), principal.UserID, req.Description)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, token)
}

// ListTokens godoc
// @Summary List the caller's API tokens
// @Tags api-tokens
// @Produce json
// @Success 200 {array} domain.APITokenResponse
// @Failure 401 {object} ProblemDetails
// @Router /api-tokens [get]
func (h *APITokenHandler) ListTokens(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	tokens, err := h.tokenService.GetByUser(c.Request().Context(), principal.UserID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, tokens)
}

// RevokeToken godoc
// @Summary Revoke an API token
// @Tags api-tokens
// @Produce json
// @Param id path string true "Token ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Router /api-tokens/{id} [delete]
func (h *APITokenHandler) RevokeToken(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid token ID", nil)
	}

	if err := h.tokenService.Revoke(c.Request().Context(), principal.UserID, tokenID); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
