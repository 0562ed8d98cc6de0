package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// TeamRepository implements domain.TeamRepository using PostgreSQL
type TeamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

const teamColumns = "id, name, created_by, created_at, updated_at"

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateWithOwner inserts the team and the creator's ADMIN membership
// in one transaction, so a team without an admin is never observable.
func (r *TeamRepository) CreateWithOwner(ctx context.Context, team *domain.Team, ownerID uuid.UUID) (*domain.Team, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO teams (name, created_by) VALUES ($1, $2) RETURNING `+teamColumns,
		team.Name, ownerID)
	created, err := scanTeam(row)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO team_memberships (user_id, team_id, role) VALUES ($1, $2, $3)`,
		ownerID, created.ID, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, id int32) (*domain.Team, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	return scanTeam(row)
}

// GetByUser retrieves all teams the user belongs to along with their role
func (r *TeamRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TeamWithRole, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.name, t.created_by, t.created_at, t.updated_at, m.role
		 FROM teams t
		 JOIN team_memberships m ON m.team_id = t.id
		 WHERE m.user_id = $1
		 ORDER BY t.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*domain.TeamWithRole
	for rows.Next() {
		var t domain.TeamWithRole
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.Role); err != nil {
			return nil, err
		}
		teams = append(teams, &t)
	}
	return teams, rows.Err()
}

// Update renames a team
func (r *TeamRepository) Update(ctx context.Context, id int32, name string) (*domain.Team, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE teams SET name = $2, updated_at = now() WHERE id = $1 RETURNING `+teamColumns,
		id, name)
	return scanTeam(row)
}

// Delete removes a team together with its memberships and shared
// resources.
func (r *TeamRepository) Delete(ctx context.Context, id int32) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM expenses WHERE team_id = $1`,
		`DELETE FROM recurring_expenses WHERE team_id = $1`,
		`DELETE FROM budgets WHERE team_id = $1`,
		`DELETE FROM categories WHERE team_id = $1`,
		`DELETE FROM team_memberships WHERE team_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}

	return tx.Commit(ctx)
}
