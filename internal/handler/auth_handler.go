package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// AuthHandler handles signup, login, logout and account requests
type AuthHandler struct {
	authService   *service.AuthService
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookies: secureCookies}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{ID: user.ID.String(), Email: user.Email, Name: user.Name}
}

// Signup godoc
// @Summary Register a new account
// @Description Create a user, seed default categories and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} UserResponse
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	user, session, err := h.authService.Signup(c.Request().Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "password", Message: "Password must be at least 8 characters and email must be valid"},
			})
		}
		return respondDomainError(c, err)
	}

	middleware.SetSessionCookie(c, session.Token, session.ExpiresAt, h.secureCookies)
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login godoc
// @Summary Log in
// @Description Verify credentials and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} UserResponse
// @Failure 401 {object} ProblemDetails
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	user, session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return NewUnauthorizedError(c, "Invalid email or password")
		}
		return respondDomainError(c, err)
	}

	middleware.SetSessionCookie(c, session.Token, session.ExpiresAt, h.secureCookies)
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Logout godoc
// @Summary Log out
// @Description Delete the current session and clear the cookie
// @Tags auth
// @Produce json
// @Success 204
// @Failure 401 {object} ProblemDetails
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if token := middleware.GetSessionToken(c); token != "" {
		if err := h.authService.Logout(c.Request().Context(), token); err != nil {
			return respondDomainError(c, err)
		}
	}
	middleware.ClearSessionCookie(c, h.secureCookies)
	return c.NoContent(http.StatusNoContent)
}

// Me godoc
// @Summary Get the authenticated user
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} ProblemDetails
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	user, err := h.authService.GetUser(c.Request().Context(), principal.UserID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteAccount godoc
// @Summary Delete the authenticated user's account
// @Description Remove the user and their personal data; team resources persist
// @Tags auth
// @Produce json
// @Success 204
// @Failure 401 {object} ProblemDetails
// @Router /auth/me [delete]
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if err := h.authService.DeleteAccount(c.Request().Context(), principal.UserID); err != nil {
		return respondDomainError(c, err)
	}

	middleware.ClearSessionCookie(c, h.secureCookies)
	return c.NoContent(http.StatusNoContent)
}
