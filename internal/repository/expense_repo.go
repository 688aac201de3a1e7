package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ExpenseRepository interface {
	Create(ctx context.Context, e *model.Expense) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Expense, error)
	// Update writes the mutable fields of an expense owned by userID.
	// Returns false when no such expense exists for that user.
	Update(ctx context.Context, userID string, e *model.Expense) (bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	// SumByCategoryMonth totals expenses for one user/category in the month
	// covering [monthStart, monthStart+1 month).
	SumByCategoryMonth(ctx context.Context, userID, category string, monthStart time.Time) (decimal.Decimal, error)
}

type expenseRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewExpenseRepo(pool *pgxpool.Pool, logger zerolog.Logger) ExpenseRepository {
	return &expenseRepo{pool: pool, logger: logger}
}

func (r *expenseRepo) Create(ctx context.Context, e *model.Expense) error {
	const q = `
        INSERT INTO expenses (id, user_id, description, category, amount, receipt_path, spent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, e.ID, e.UserID, e.Description, e.Category, e.Amount, e.ReceiptPath, e.SpentAt).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create expense for user %s: %w", e.UserID, err)
	}
	return nil
}

func (r *expenseRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Expense, error) {
	const q = `
        SELECT id, user_id, description, category, amount, receipt_path, spent_at, created_at, updated_at
        FROM expenses
        WHERE user_id = $1
        ORDER BY spent_at DESC, created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list expenses for user %s: %w", userID, err)
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		var e model.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Description, &e.Category, &e.Amount, &e.ReceiptPath, &e.SpentAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense for user %s: %w", userID, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses for user %s: %w", userID, err)
	}
	return expenses, nil
}

func (r *expenseRepo) Update(ctx context.Context, userID string, e *model.Expense) (bool, error) {
	const q = `
        UPDATE expenses
        SET description = $3, category = $4, amount = $5, receipt_path = $6, spent_at = $7, updated_at = NOW()
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.pool.Exec(ctx, q, e.ID, userID, e.Description, e.Category, e.Amount, e.ReceiptPath, e.SpentAt)
	if err != nil {
		return false, fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *expenseRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete expense %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *expenseRepo) SumByCategoryMonth(ctx context.Context, userID, category string, monthStart time.Time) (decimal.Decimal, error) {
	const q = `
        SELECT COALESCE(SUM(amount), 0)::text
        FROM expenses
        WHERE user_id = $1 AND category = $2
          AND spent_at >= $3 AND spent_at < $3 + INTERVAL '1 month'
    `
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, q, userID, category, monthStart).Scan(&sum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("sum expenses for user %s category %s: %w", userID, category, err)
	}
	return sum, nil
}
