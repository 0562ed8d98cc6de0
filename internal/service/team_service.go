package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/authz"
	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

// TeamService manages teams and their membership directory
type TeamService struct {
	teamRepo       domain.TeamRepository
	membershipRepo domain.MembershipRepository
	userRepo       domain.UserRepository
	provisioning   *ProvisioningService
	publisher      websocket.EventPublisher
}

// NewTeamService creates a new TeamService
func NewTeamService(teamRepo domain.TeamRepository, membershipRepo domain.MembershipRepository, userRepo domain.UserRepository, provisioning *ProvisioningService, publisher websocket.EventPublisher) *TeamService {
	return &TeamService{
		teamRepo:       teamRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		provisioning:   provisioning,
		publisher:      publisher,
	}
}

// Create makes a new team with the principal as its first admin and
// seeds the team's default categories.
func (s *TeamService) Create(ctx context.Context, principal domain.Principal, name string) (*domain.TeamWithRole, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}

	team, err := s.teamRepo.CreateWithOwner(ctx, &domain.Team{Name: name, CreatedBy: principal.UserID}, principal.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", principal.UserID.String()).Msg("Failed to create team")
		return nil, err
	}

	if err := s.provisioning.EnsureDefaults(ctx, domain.TeamScope(team.ID)); err != nil {
		log.Error().Err(err).Int32("team_id", team.ID).Msg("Failed to provision team categories")
		return nil, err
	}

	log.Info().Int32("team_id", team.ID).Str("user_id", principal.UserID.String()).Msg("Team created")
	return &domain.TeamWithRole{Team: *team, Role: domain.RoleAdmin}, nil
}

// List returns the teams the principal belongs to, with their role
func (s *TeamService) List(ctx context.Context, principal domain.Principal) ([]*domain.TeamWithRole, error) {
	return s.teamRepo.GetByUser(ctx, principal.UserID)
}

// Get returns a single team. Non-members get not-found, never the
// team's existence.
func (s *TeamService) Get(ctx context.Context, principal domain.Principal, teamID int32) (*domain.TeamWithRole, error) {
	role, err := s.membershipRepo.GetRole(ctx, principal.UserID, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotTeamMember) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &domain.TeamWithRole{Team: *team, Role: role}, nil
}

// Update renames a team. Admin only.
func (s *TeamService) Update(ctx context.Context, principal domain.Principal, teamID int32, name string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}

	if err := s.requireAdmin(ctx, principal, teamID); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.Update(ctx, teamID, name)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(websocket.TeamChannel(teamID), websocket.NewEvent(websocket.EventTypeUpdated, websocket.EntityTypeTeam, team))
	return team, nil
}

// Delete removes a team and everything scoped to it. Admin only.
func (s *TeamService) Delete(ctx context.Context, principal domain.Principal, teamID int32) error {
	if err := s.requireAdmin(ctx, principal, teamID); err != nil {
		return err
	}

	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		log.Error().Err(err).Int32("team_id", teamID).Msg("Failed to delete team")
		return err
	}

	log.Info().Int32("team_id", teamID).Str("user_id", principal.UserID.String()).Msg("Team deleted")
	s.publisher.Publish(websocket.TeamChannel(teamID), websocket.NewEvent(websocket.EventTypeDeleted, websocket.EntityTypeTeam, map[string]int32{"id": teamID}))
	return nil
}

// ListMembers returns the membership roster. Any member may read it;
// non-members get not-found.
func (s *TeamService) ListMembers(ctx context.Context, principal domain.Principal, teamID int32) ([]*domain.TeamMember, error) {
	if _, err := s.membershipRepo.GetRole(ctx, principal.UserID, teamID); err != nil {
		if errors.Is(err, domain.ErrNotTeamMember) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, err
	}
	return s.membershipRepo.ListMembers(ctx, teamID)
}

// Invite adds an existing user to the team by email. Admin only.
func (s *TeamService) Invite(ctx context.Context, principal domain.Principal, teamID int32, email string, role domain.Role) (*domain.TeamMember, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	actor, err := membershipFor(ctx, s.membershipRepo, principal, domain.TeamScope(teamID))
	if err != nil {
		return nil, err
	}
	if d := authz.EvaluateMemberInvite(actor); !d.Allowed {
		if !actor.Member {
			return nil, domain.ErrTeamNotFound
		}
		return nil, domain.ErrForbidden
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}

	err = s.membershipRepo.Add(ctx, &domain.TeamMembership{UserID: user.ID, TeamID: teamID, Role: role})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("team_id", teamID).
		Str("user_id", user.ID.String()).
		Str("role", string(role)).
		Msg("Member added to team")

	member := &domain.TeamMember{UserID: user.ID, Email: user.Email, Name: user.Name, Role: role}
	s.publisher.Publish(websocket.TeamChannel(teamID), websocket.NewEvent(websocket.EventTypeCreated, websocket.EntityTypeMembership, member))
	return member, nil
}

// ChangeRole updates a member's role. Admin only. Demoting the last
// admin is rejected so the team never loses administrative control.
func (s *TeamService) ChangeRole(ctx context.Context, principal domain.Principal, teamID int32, targetUserID uuid.UUID, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}

	actor, err := membershipFor(ctx, s.membershipRepo, principal, domain.TeamScope(teamID))
	if err != nil {
		return err
	}
	if d := authz.EvaluateRoleChange(actor); !d.Allowed {
		if !actor.Member {
			return domain.ErrTeamNotFound
		}
		return domain.ErrForbidden
	}

	if role != domain.RoleAdmin {
		targetRole, err := s.membershipRepo.GetRole(ctx, targetUserID, teamID)
		if err != nil {
			if errors.Is(err, domain.ErrNotTeamMember) {
				return domain.ErrMembershipNotFound
			}
			return err
		}
		if targetRole == domain.RoleAdmin {
			if err := s.ensureNotLastAdmin(ctx, teamID); err != nil {
				return err
			}
		}
	}

	if err := s.membershipRepo.UpdateRole(ctx, targetUserID, teamID, role); err != nil {
		return err
	}

	log.Info().
		Int32("team_id", teamID).
		Str("user_id", targetUserID.String()).
		Str("role", string(role)).
		Msg("Member role changed")

	s.publisher.Publish(websocket.TeamChannel(teamID), websocket.NewEvent(websocket.EventTypeUpdated, websocket.EntityTypeMembership,
		map[string]interface{}{"userId": targetUserID, "teamId": teamID, "role": role}))
	return nil
}

// RemoveMember removes target from the team. Admins may remove anyone,
// members may leave. The last admin may not be removed, not even by
// themself.
func (s *TeamService) RemoveMember(ctx context.Context, principal domain.Principal, teamID int32, targetUserID uuid.UUID) error {
	actor, err := membershipFor(ctx, s.membershipRepo, principal, domain.TeamScope(teamID))
	if err != nil {
		return err
	}
	if d := authz.EvaluateMemberRemoval(principal, actor, targetUserID); !d.Allowed {
		if !actor.Member {
			return domain.ErrTeamNotFound
		}
		return domain.ErrForbidden
	}

	targetRole, err := s.membershipRepo.GetRole(ctx, targetUserID, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotTeamMember) {
			return domain.ErrMembershipNotFound
		}
		return err
	}
	if targetRole == domain.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx, teamID); err != nil {
			return err
		}
	}

	if err := s.membershipRepo.Remove(ctx, targetUserID, teamID); err != nil {
		return err
	}

	log.Info().
		Int32("team_id", teamID).
		Str("user_id", targetUserID.String()).
		Msg("Member removed from team")

	s.publisher.Publish(websocket.TeamChannel(teamID), websocket.NewEvent(websocket.EventTypeDeleted, websocket.EntityTypeMembership,
		map[string]interface{}{"userId": targetUserID, "teamId": teamID}))
	// The removed member sees the final membership event, then their
	// open connections stop receiving this team's traffic.
	s.publisher.Unsubscribe(websocket.UserChannel(targetUserID), websocket.TeamChannel(teamID))
	return nil
}

// requireAdmin resolves the principal's role and demands admin. A
// non-member gets not-found, a non-admin member gets forbidden.
func (s *TeamService) requireAdmin(ctx context.Context, principal domain.Principal, teamID int32) error {
	role, err := s.membershipRepo.GetRole(ctx, principal.UserID, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotTeamMember) {
			return domain.ErrTeamNotFound
		}
		return err
	}
	if role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// ensureNotLastAdmin rejects an operation that would leave the team
// without any admin.
func (s *TeamService) ensureNotLastAdmin(ctx context.Context, teamID int32) error {
	admins, err := s.membershipRepo.CountAdmins(ctx, teamID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}
