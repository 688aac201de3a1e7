package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplyStatus is the outcome of a transactional payment application.
type ApplyStatus int

const (
	// ApplyOK means the user row was updated and a history row appended.
	ApplyOK ApplyStatus = iota
	// ApplyDuplicate means the transaction id was already recorded; nothing
	// was written.
	ApplyDuplicate
	// ApplyConflict means the user row changed between the identity read and
	// the write; the caller should re-resolve and retry.
	ApplyConflict
)

const userColumns = `id, name, email, cpf, role, status, subscription_expires_at, last_payment, created_at, updated_at`

// UserRepository defines methods for accessing user records and for applying
// reconciled payments to them.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// FindByCPF returns the single user holding the normalized CPF, or nil.
	FindByCPF(ctx context.Context, cpf string) (*model.User, error)
	// FindByEmail returns the first user with the email, or nil.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ApplyPayment appends the payment to the user's history and updates the
	// subscription fields in a single transaction. expectedExpiresAt is the
	// expiry observed during identity resolution; the update is guarded on it
	// so a concurrent reconciliation surfaces as ApplyConflict instead of a
	// lost update. A replayed transaction id surfaces as ApplyDuplicate
	// before any row is written.
	ApplyPayment(ctx context.Context, userID string, newExpiresAt time.Time, expectedExpiresAt *time.Time, cpf string, p *model.Payment) (ApplyStatus, error)
	// AdoptPending transfers a pending subscription onto an existing user and
	// deletes the pending row, all in one transaction. The payment's
	// transaction id is deduplicated the same way ApplyPayment does it: a
	// replayed claim only clears the stale pending row and leaves the user
	// untouched. Returns false when the user does not exist.
	AdoptPending(ctx context.Context, userID string, pending *model.PendingSubscription) (bool, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
        INSERT INTO users (id, name, email, cpf, role, status)
        VALUES ($1, $2, $3, $4, 'user', 'active')
        RETURNING role, status, created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, u.ID, u.Name, u.Email, u.CPF).Scan(&u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepo) FindByCPF(ctx context.Context, cpf string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE cpf = $1 LIMIT 1`, cpf)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
}

func (r *userRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	var rawPayment []byte
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.CPF,
		&u.Role,
		&u.Status,
		&u.SubscriptionExpiresAt,
		&rawPayment,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if len(rawPayment) > 0 {
		var p model.Payment
		if err := json.Unmarshal(rawPayment, &p); err != nil {
			return nil, fmt.Errorf("unmarshal last_payment for user %s: %w", u.ID, err)
		}
		u.LastPayment = &p
	}
	return &u, nil
}

// The history insert runs first: its partial unique index on transaction_id
// (excluding the "unknown" sentinel) makes replayed deliveries bail out
// before the user row is touched.
const insertHistoryQuery = `
    INSERT INTO payment_history (user_id, paid_at, provider, amount, transaction_id, product)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (transaction_id) WHERE transaction_id <> 'unknown' DO NOTHING
`

func (r *userRepo) ApplyPayment(ctx context.Context, userID string, newExpiresAt time.Time, expectedExpiresAt *time.Time, cpf string, p *model.Payment) (ApplyStatus, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ApplyConflict, fmt.Errorf("begin apply payment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, insertHistoryQuery, userID, p.Date, p.Provider, p.Amount, p.TransactionID, p.Product)
	if err != nil {
		return ApplyConflict, fmt.Errorf("append payment history for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ApplyDuplicate, nil
	}

	paymentJSON, err := json.Marshal(p)
	if err != nil {
		return ApplyConflict, fmt.Errorf("marshal payment %s: %w", p.TransactionID, err)
	}

	const updateQuery = `
        UPDATE users SET
            subscription_expires_at = $2,
            status = 'active',
            role = COALESCE(NULLIF(role, ''), 'user'),
            cpf = CASE WHEN cpf IS NULL OR cpf = '' THEN NULLIF($3, '') ELSE cpf END,
            last_payment = $4,
            updated_at = NOW()
        WHERE id = $1 AND subscription_expires_at IS NOT DISTINCT FROM $5
    `
	tag, err = tx.Exec(ctx, updateQuery, userID, newExpiresAt, cpf, paymentJSON, expectedExpiresAt)
	if err != nil {
		return ApplyConflict, fmt.Errorf("update subscription for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		// Another reconciliation moved the expiry under us.
		return ApplyConflict, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return ApplyConflict, fmt.Errorf("commit apply payment for user %s: %w", userID, err)
	}
	return ApplyOK, nil
}

func (r *userRepo) AdoptPending(ctx context.Context, userID string, pending *model.PendingSubscription) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin adopt pending tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Same insert-first dedup as ApplyPayment. A replayed claim (the payment
	// already landed through the webhook or an earlier claim) must not reset
	// the user's expiry to the stale pending value.
	p := pending.LastPayment
	tag, err := tx.Exec(ctx, insertHistoryQuery, userID, p.Date, p.Provider, p.Amount, p.TransactionID, p.Product)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503: the user row is gone, nothing to adopt onto.
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, nil
		}
		return false, fmt.Errorf("append adopted payment history for user %s: %w", userID, err)
	}
	if tag.RowsAffected() > 0 {
		paymentJSON, err := json.Marshal(pending.LastPayment)
		if err != nil {
			return false, fmt.Errorf("marshal pending payment %s: %w", p.TransactionID, err)
		}

		const updateQuery = `
            UPDATE users SET
                subscription_expires_at = $2,
                status = 'active',
                role = COALESCE(NULLIF(role, ''), 'user'),
                cpf = CASE WHEN cpf IS NULL OR cpf = '' THEN NULLIF($3, '') ELSE cpf END,
                last_payment = $4,
                updated_at = NOW()
            WHERE id = $1
        `
		tag, err = tx.Exec(ctx, updateQuery, userID, pending.SubscriptionExpiresAt, pending.CPF, paymentJSON)
		if err != nil {
			return false, fmt.Errorf("adopt pending for user %s: %w", userID, err)
		}
		if tag.RowsAffected() == 0 {
			return false, nil
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pending_subscriptions WHERE identity_key = $1`, pending.IdentityKey); err != nil {
		return false, fmt.Errorf("delete claimed pending subscription %s: %w", pending.IdentityKey, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit adopt pending for user %s: %w", userID, err)
	}
	return true, nil
}
