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

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

const budgetColumns = "id, user_id, team_id, category_id, amount::text, start_date, end_date, created_at, updated_at"

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var b domain.Budget
	var amount string
	err := row.Scan(&b.ID, &b.UserID, &b.TeamID, &b.CategoryID, &amount,
		&b.StartDate, &b.EndDate, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse budget amount: %w", err)
	}
	return &b, nil
}

// Create inserts a new budget
func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO budgets (user_id, team_id, category_id, amount, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+budgetColumns,
		budget.UserID, budget.TeamID, budget.CategoryID, budget.Amount,
		budget.StartDate, budget.EndDate)
	return scanBudget(row)
}

// GetByID retrieves a budget by ID regardless of scope
func (r *BudgetRepository) GetByID(ctx context.Context, id int32) (*domain.Budget, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id)
	return scanBudget(row)
}

// ListVisible returns the user's personal budgets plus those of every
// given team.
func (r *BudgetRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32) ([]*domain.Budget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets
		 WHERE (user_id = $1 AND team_id IS NULL) OR team_id = ANY($2)
		 ORDER BY start_date DESC, id DESC`,
		userID, teamIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []*domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// Update persists changes to a budget
func (r *BudgetRepository) Update(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE budgets
		 SET category_id = $2, amount = $3, start_date = $4, end_date = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+budgetColumns,
		budget.ID, budget.CategoryID, budget.Amount, budget.StartDate, budget.EndDate)
	return scanBudget(row)
}

// Delete removes a budget
func (r *BudgetRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}
	return nil
}
