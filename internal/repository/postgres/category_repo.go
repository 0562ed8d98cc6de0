package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = "id, name, color, user_id, team_id, is_default, created_at, updated_at"

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Color, &c.UserID, &c.TeamID, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a new category
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, color, user_id, team_id, is_default)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+categoryColumns,
		category.Name, category.Color, category.UserID, category.TeamID, category.IsDefault)
	return scanCategory(row)
}

// GetByID retrieves a category by ID regardless of scope; the caller
// decides visibility.
func (r *CategoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

// ListVisible returns default categories, the user's personal
// categories, and those of the given teams, as one query-level filter.
func (r *CategoryRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*domain.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+categoryColumns+`
		 FROM categories
		 WHERE is_default OR user_id = $1 OR team_id = ANY($2)
		 ORDER BY is_default DESC, name`,
		userID, teamIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Update changes a category's name and color
func (r *CategoryRepository) Update(ctx context.Context, id int32, name, color string) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE categories SET name = $2, color = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+categoryColumns,
		id, name, color)
	return scanCategory(row)
}

// Delete removes a category
func (r *CategoryRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.ErrCategoryInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// InUseCount counts expenses, budgets and recurring templates that
// reference the category.
func (r *CategoryRepository) InUseCount(ctx context.Context, id int32) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM expenses WHERE category_id = $1)
		      + (SELECT COUNT(*) FROM budgets WHERE category_id = $1)
		      + (SELECT COUNT(*) FROM recurring_expenses WHERE category_id = $1)`,
		id).Scan(&count)
	return count, err
}

// CountForOwner counts categories owned by the given scope
func (r *CategoryRepository) CountForOwner(ctx context.Context, scope domain.Scope) (int64, error) {
	var count int64
	var err error
	if teamID, ok := scope.TeamID(); ok {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM categories WHERE team_id = $1`, teamID).Scan(&count)
	} else if userID, ok := scope.UserID(); ok {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM categories WHERE user_id = $1`, userID).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM categories WHERE is_default`).Scan(&count)
	}
	return count, err
}
