package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type BudgetRepository interface {
	// Upsert creates or replaces the budget for (user, category, month).
	Upsert(ctx context.Context, b *model.Budget) error
	ListByUser(ctx context.Context, userID string) ([]model.Budget, error)
}

type budgetRepo struct {
	pool *pgxpool.Pool
}

func NewBudgetRepo(pool *pgxpool.Pool) BudgetRepository {
	return &budgetRepo{pool: pool}
}

func (r *budgetRepo) Upsert(ctx context.Context, b *model.Budget) error {
	const q = `
        INSERT INTO budgets (id, user_id, category, month, limit_amount)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id, category, month) DO UPDATE
        SET limit_amount = EXCLUDED.limit_amount
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, q, b.ID, b.UserID, b.Category, b.Month, b.Limit).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert budget for user %s category %s: %w", b.UserID, b.Category, err)
	}
	return nil
}

func (r *budgetRepo) ListByUser(ctx context.Context, userID string) ([]model.Budget, error) {
	const q = `
        SELECT id, user_id, category, month, limit_amount, created_at
        FROM budgets
        WHERE user_id = $1
        ORDER BY month DESC, category
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets for user %s: %w", userID, err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		var b model.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Month, &b.Limit, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan budget for user %s: %w", userID, err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets for user %s: %w", userID, err)
	}
	return budgets, nil
}
