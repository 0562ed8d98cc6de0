package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// ExpenseRepository implements domain.ExpenseRepository using PostgreSQL
type ExpenseRepository struct {
	pool *pgxpool.Pool
}

// NewExpenseRepository creates a new ExpenseRepository
func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{pool: pool}
}

const expenseColumns = "id, user_id, team_id, category_id, amount::text, description, expense_date, receipt_url, created_at, updated_at"

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	var amount string
	err := row.Scan(&e.ID, &e.UserID, &e.TeamID, &e.CategoryID, &amount,
		&e.Description, &e.ExpenseDate, &e.ReceiptURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrExpenseNotFound
		}
		return nil, err
	}
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse expense amount: %w", err)
	}
	return &e, nil
}

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) (*domain.Expense, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, team_id, category_id, amount, description, expense_date, receipt_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+expenseColumns,
		expense.UserID, expense.TeamID, expense.CategoryID, expense.Amount,
		expense.Description, expense.ExpenseDate, expense.ReceiptURL)
	return scanExpense(row)
}

// GetByID retrieves an expense by ID regardless of scope
func (r *ExpenseRepository) GetByID(ctx context.Context, id int32) (*domain.Expense, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	return scanExpense(row)
}

// ListVisible returns the union of the user's personal expenses and
// those of every given team, newest first, with total count for
// pagination. Visibility is a single query-level filter, not a per-row
// permission check.
func (r *ExpenseRepository) ListVisible(ctx context.Context, userID uuid.UUID, teamIDs []int32, filters *domain.ExpenseFilters) ([]*domain.Expense, int64, error) {
	where := `((user_id = $1 AND team_id IS NULL) OR team_id = ANY($2))`
	args := []interface{}{userID, teamIDs}

	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		where += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if filters.TeamID != nil {
		args = append(args, *filters.TeamID)
		where += fmt.Sprintf(" AND team_id = $%d", len(args))
	}
	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		where += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		where += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filters.Page - 1) * filters.PageSize
	args = append(args, filters.PageSize, offset)
	query := fmt.Sprintf(
		`SELECT `+expenseColumns+` FROM expenses WHERE `+where+
			` ORDER BY expense_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

// Update persists changes to an expense. user_id is the immutable
// creator and is deliberately not in the SET list.
func (r *ExpenseRepository) Update(ctx context.Context, expense *domain.Expense) (*domain.Expense, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE expenses
		 SET team_id = $2, category_id = $3, amount = $4, description = $5,
		     expense_date = $6, receipt_url = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+expenseColumns,
		expense.ID, expense.TeamID, expense.CategoryID, expense.Amount,
		expense.Description, expense.ExpenseDate, expense.ReceiptURL)
	return scanExpense(row)
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

// SetReceiptURL updates only the receipt pointer
func (r *ExpenseRepository) SetReceiptURL(ctx context.Context, id int32, url *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses SET receipt_url = $2, updated_at = now() WHERE id = $1`,
		id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

// SummaryByCategory aggregates the visible expense set per category
// over a date range.
func (r *ExpenseRepository) SummaryByCategory(ctx context.Context, userID uuid.UUID, teamIDs []int32, start, end time.Time) ([]*domain.CategorySummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.category_id, c.name, COALESCE(SUM(e.amount), 0)::text, COUNT(*)
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE ((e.user_id = $1 AND e.team_id IS NULL) OR e.team_id = ANY($2))
		   AND e.expense_date >= $3 AND e.expense_date <= $4
		 GROUP BY e.category_id, c.name
		 ORDER BY SUM(e.amount) DESC`,
		userID, teamIDs, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*domain.CategorySummary
	for rows.Next() {
		var s domain.CategorySummary
		var total string
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &total, &s.Count); err != nil {
			return nil, err
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse summary total: %w", err)
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}
