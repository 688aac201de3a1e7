package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository reads the append-only per-user payment history. Writes
// happen exclusively inside UserRepository transactions.
type PaymentRepository interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error)
}

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error) {
	const q = `
        SELECT paid_at, provider, amount, transaction_id, product
        FROM payment_history
        WHERE user_id = $1
        ORDER BY paid_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.Date, &p.Provider, &p.Amount, &p.TransactionID, &p.Product); err != nil {
			return nil, fmt.Errorf("scan payment for user %s: %w", userID, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments for user %s: %w", userID, err)
	}
	return payments, nil
}
