package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// RecurringExpenseRepository implements domain.RecurringExpenseRepository
// using PostgreSQL
type RecurringExpenseRepository struct {
	pool *pgxpool.Pool
}

// NewRecurringExpenseRepository creates a new RecurringExpenseRepository
func NewRecurringExpenseRepository(pool *pgxpool.Pool) *RecurringExpenseRepository {
	return &RecurringExpenseRepository{pool: pool}
}

const recurringColumns = "id, user_id, team_id, category_id, amount::text, description, frequency, next_run, created_at, updated_at"

func scanRecurring(row pgx.Row) (*domain.RecurringExpense, error) {
	var t domain.RecurringExpense
	var amount string
	err := row.Scan(&t.ID, &t.UserID, &t.TeamID, &t.CategoryID, &amount,
		&t.Description, &t.Frequency, &t.NextRun, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecurringNotFound
		}
		return nil, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse recurring amount: %w", err)
	}
	return &t, nil
}

// Create inserts a new recurring expense template
func (r *RecurringExpenseRepository) Create(ctx context.Context, template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO recurring_expenses (user_id, team_id, category_id, amount, description, frequency, next_run)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+recurringColumns,
		template.UserID, template.TeamID, template.CategoryID, template.Amount,
		template.Description, template.Frequency, template.NextRun)
	return scanRecurring(row)
}

// GetByID retrieves a template by ID regardless of scope
func (r *RecurringExpenseRepository) GetByID(ctx context.Context, id int32) (*domain.RecurringExpense, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = $1`, id)
	return scanRecurring(row)
}

// ListVisible returns the user's personal templates plus those of every
// given team.
func (r *RecurringExpenseRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*domain.RecurringExpense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_expenses
		 WHERE (user_id = $1 AND team_id IS NULL) OR team_id = ANY($2)
		 ORDER BY next_run, id`,
		userID, teamIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*domain.RecurringExpense
	for rows.Next() {
		t, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Update persists changes to a template. user_id is immutable.
func (r *RecurringExpenseRepository) Update(ctx context.Context, template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE recurring_expenses
		 SET team_id = $2, category_id = $3, amount = $4, description = $5,
		     frequency = $6, next_run = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+recurringColumns,
		template.ID, template.TeamID, template.CategoryID, template.Amount,
		template.Description, template.Frequency, template.NextRun)
	return scanRecurring(row)
}

// Delete removes a template
func (r *RecurringExpenseRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recurring_expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecurringNotFound
	}
	return nil
}
