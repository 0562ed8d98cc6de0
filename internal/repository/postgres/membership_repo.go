package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// MembershipRepository implements domain.MembershipRepository using
// PostgreSQL. Lookups read committed state, so a committed role change
// is visible to the very next request.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// GetRole returns the user's role in the team or ErrNotTeamMember
func (r *MembershipRepository) GetRole(ctx context.Context, userID uuid.UUID, teamID int32) (domain.Role, error) {
	var role domain.Role
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM team_memberships WHERE user_id = $1 AND team_id = $2`,
		userID, teamID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotTeamMember
		}
		return "", err
	}
	return role, nil
}

// ListMembers retrieves the team's members joined with user identity
func (r *MembershipRepository) ListMembers(ctx context.Context, teamID int32) ([]*domain.TeamMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.user_id, u.email, u.name, m.role, m.created_at
		 FROM team_memberships m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = $1
		 ORDER BY m.created_at`,
		teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.TeamMember
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// Add inserts a membership
func (r *MembershipRepository) Add(ctx context.Context, membership *domain.TeamMembership) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO team_memberships (user_id, team_id, role) VALUES ($1, $2, $3)`,
		membership.UserID, membership.TeamID, membership.Role)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.ErrMemberExists
		}
		return err
	}
	return nil
}

// UpdateRole changes a member's role
func (r *MembershipRepository) UpdateRole(ctx context.Context, userID uuid.UUID, teamID int32, role domain.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE team_memberships SET role = $3, updated_at = now()
		 WHERE user_id = $1 AND team_id = $2`,
		userID, teamID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// Remove deletes a membership
func (r *MembershipRepository) Remove(ctx context.Context, userID uuid.UUID, teamID int32) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM team_memberships WHERE user_id = $1 AND team_id = $2`,
		userID, teamID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// CountAdmins counts the team's admins
func (r *MembershipRepository) CountAdmins(ctx context.Context, teamID int32) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM team_memberships WHERE team_id = $1 AND role = $2`,
		teamID, domain.RoleAdmin).Scan(&count)
	return count, err
}

// MemberTeamIDs returns every team id the user belongs to
func (r *MembershipRepository) MemberTeamIDs(ctx context.Context, userID uuid.UUID) ([]int32, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT team_id FROM team_memberships WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
