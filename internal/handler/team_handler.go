package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
)

// TeamHandler handles team and membership HTTP requests
type TeamHandler struct {
	teamService *service.TeamService
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// CreateTeamRequest represents the create team request body
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// UpdateTeamRequest represents the update team request body
type UpdateTeamRequest struct {
	Name string `json:"name"`
}

// InviteMemberRequest represents the invite member request body
type InviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ChangeRoleRequest represents the change role request body
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// CreateTeam godoc
// @Summary Create a team
// @Description Create a team with the caller as its first admin
// @Tags teams
// @Accept json
// @Produce json
// @Param request body CreateTeamRequest true "Team creation request"
// @Success 201 {object} domain.TeamWithRole
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateTeamRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	team, err := h.teamService.Create(c.Request().Context(), principal, req.Name)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, team)
}

// GetTeams godoc
// @Summary List the caller's teams
// @Tags teams
// @Produce json
// @Success 200 {array} domain.TeamWithRole
// @Failure 401 {object} ProblemDetails
// @Router /teams [get]
func (h *TeamHandler) GetTeams(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teams, err := h.teamService.List(c.Request().Context(), principal)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, teams)
}

// GetTeam godoc
// @Summary Get a team
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} domain.TeamWithRole
// @Failure 404 {object} ProblemDetails
// @Router /teams/{id} [get]
func (h *TeamHandler) GetTeam(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid team ID", nil)
	}

	team, err := h.teamService.Get(c.Request().Context(), principal, teamID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, team)
}

// UpdateTeam godoc
// @Summary Rename a team
// @Tags teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param request body UpdateTeamRequest true "Team update request"
// @Success 200 {object} domain.Team
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /teams/{id} [put]
func (h *TeamHandler) UpdateTeam(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid team ID", nil)
	}

	var req UpdateTeamRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	team, err := h.teamService.Update(c.Request().Context(), principal, teamID, req.Name)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, team)
}

// DeleteTeam godoc
// @Summary Delete a team
// @Description Delete a team and everything scoped to it
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /teams/{id} [delete]
func (h *TeamHandler) DeleteTeam(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid team ID", nil)
	}

	if err := h.teamService.Delete(c.Request().Context(), principal, teamID); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMembers godoc
// @Summary List team members
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {array} domain.TeamMember
// @Failure 404 {object} ProblemDetails
// @Router /teams/{id}/members [get]
func (h *TeamHandler) GetMembers(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid team ID", nil)
	}

	members, err := h.teamService.ListMembers(c.Request().Context(), principal, teamID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

// InviteMember godoc
// @Summary Add a member to a team
// @Description Add an existing user to the team by email; admin only
// @Tags teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param request body InviteMemberRequest true "Invite request"
// @Success 201 {object} domain.TeamMember
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /teams/{id}/members [post]
func (h *TeamHandler) InviteMember(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid team ID", nil)
	}

	var req InviteMemberRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	member, err := h.teamService.Invite(c.Request().Context(), principal, teamID, req.Email, domain.Role(req.Role))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, member)
}

// ChangeRole godoc
// @Summary Change a member's role
// @Description Change a member's role; admin only, the last admin cannot be demoted
// @Tags teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param userId path string true "User ID"
// @Param request body ChangeRoleRequest true "Role change request"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /teams/{id}/members/{userId} [put]
func (h *TeamHandler) ChangeRole(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid team ID", nil)
	}

	targetUserID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return NewValidationError(c, "Invalid user ID", nil)
	}

	var req ChangeRoleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	if err := h.teamService.ChangeRole(c.Request().Context(), principal, teamID, targetUserID, domain.Role(req.Role)); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveMember godoc
// @Summary Remove a member from a team
// @Description Admins may remove anyone, members may leave; the last admin cannot be removed
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Param userId path string true "User ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /teams/{id}/members/{userId} [delete]
func (h *TeamHandler) RemoveMember(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	teamID, err := parseIDParam(c, "id")
	if err != nil {
		return NewValidationError(c, "Invalid team ID", nil)
	}

	targetUserID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return NewValidationError(c, "Invalid user ID", nil)
	}

	if err := h.teamService.RemoveMember(c.Request().Context(), principal, teamID, targetUserID); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// parseIDParam parses a positive int32 path parameter
func parseIDParam(c echo.Context, name string) (int32, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput
	}
	return int32(id), nil
}
