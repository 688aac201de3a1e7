package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PendingSubscriptionRepository stores placeholder subscriptions for payers
// without a user record yet.
type PendingSubscriptionRepository interface {
	// Replace fully overwrites the pending record at its identity key.
	Replace(ctx context.Context, p *model.PendingSubscription) error
	// FindByIdentity looks up a pending record CPF-first, then by email,
	// mirroring webhook identity resolution. Returns nil when none matches.
	FindByIdentity(ctx context.Context, cpf, email string) (*model.PendingSubscription, error)
}

type pendingRepo struct {
	pool *pgxpool.Pool
}

func NewPendingSubscriptionRepo(pool *pgxpool.Pool) PendingSubscriptionRepository {
	return &pendingRepo{pool: pool}
}

func (r *pendingRepo) Replace(ctx context.Context, p *model.PendingSubscription) error {
	paymentJSON, err := json.Marshal(p.LastPayment)
	if err != nil {
		return fmt.Errorf("marshal pending payment %s: %w", p.LastPayment.TransactionID, err)
	}
	const q = `
        INSERT INTO pending_subscriptions (identity_key, cpf, email, subscription_expires_at, status, role, last_payment, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (identity_key) DO UPDATE
        SET cpf = EXCLUDED.cpf,
            email = EXCLUDED.email,
            subscription_expires_at = EXCLUDED.subscription_expires_at,
            status = EXCLUDED.status,
            role = EXCLUDED.role,
            last_payment = EXCLUDED.last_payment,
            created_at = EXCLUDED.created_at
    `
	_, err = r.pool.Exec(ctx, q, p.IdentityKey, p.CPF, p.Email, p.SubscriptionExpiresAt, p.Status, p.Role, paymentJSON, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("replace pending subscription %s: %w", p.IdentityKey, err)
	}
	return nil
}

func (r *pendingRepo) FindByIdentity(ctx context.Context, cpf, email string) (*model.PendingSubscription, error) {
	if cpf != "" {
		p, err := r.findByKey(ctx, cpf)
		if err != nil || p != nil {
			return p, err
		}
	}
	if email != "" {
		return r.findByKey(ctx, email)
	}
	return nil, nil
}

func (r *pendingRepo) findByKey(ctx context.Context, key string) (*model.PendingSubscription, error) {
	const q = `
        SELECT identity_key, cpf, email, subscription_expires_at, status, role, last_payment, created_at
        FROM pending_subscriptions
        WHERE identity_key = $1
    `
	var p model.PendingSubscription
	var rawPayment []byte
	err := r.pool.QueryRow(ctx, q, key).Scan(
		&p.IdentityKey,
		&p.CPF,
		&p.Email,
		&p.SubscriptionExpiresAt,
		&p.Status,
		&p.Role,
		&rawPayment,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch pending subscription %s: %w", key, err)
	}
	if err := json.Unmarshal(rawPayment, &p.LastPayment); err != nil {
		return nil, fmt.Errorf("unmarshal pending payment for %s: %w", key, err)
	}
	return &p, nil
}
