package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Schema mirror of migrations/00001_init.sql for the tables this repository
// touches, so the tests run against any empty Postgres database without the
// pgmq extension.
const userRepoTestSchema = `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        cpf TEXT,
        role TEXT NOT NULL DEFAULT 'user',
        status TEXT NOT NULL DEFAULT 'active',
        subscription_expires_at TIMESTAMPTZ,
        last_payment JSONB,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE UNIQUE INDEX IF NOT EXISTS users_cpf_key ON users (cpf) WHERE cpf IS NOT NULL AND cpf <> '';
    CREATE TABLE IF NOT EXISTS payment_history (
        id BIGSERIAL PRIMARY KEY,
        user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
        paid_at TIMESTAMPTZ NOT NULL,
        provider TEXT NOT NULL,
        amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
        transaction_id TEXT NOT NULL,
        product TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE UNIQUE INDEX IF NOT EXISTS payment_history_transaction_id_key
        ON payment_history (transaction_id) WHERE transaction_id <> 'unknown';
    CREATE TABLE IF NOT EXISTS pending_subscriptions (
        identity_key TEXT PRIMARY KEY,
        cpf TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        subscription_expires_at TIMESTAMPTZ NOT NULL,
        status TEXT NOT NULL DEFAULT 'active',
        role TEXT NOT NULL DEFAULT 'user',
        last_payment JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
`

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip database integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, userRepoTestSchema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	for _, table := range []string{"payment_history", "pending_subscriptions", "users"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to clear table %s: %v", table, err)
		}
	}
	return pool
}

type userRow struct {
	id        string
	email     string
	cpf       *string
	role      string
	status    string
	expiresAt *time.Time
}

func insertTestUser(t *testing.T, pool *pgxpool.Pool, u userRow) {
	t.Helper()
	const q = `
        INSERT INTO users (id, name, email, cpf, role, status, subscription_expires_at)
        VALUES ($1, $1, $2, $3, $4, $5, $6)
    `
	if _, err := pool.Exec(context.Background(), q, u.id, u.email, u.cpf, u.role, u.status, u.expiresAt); err != nil {
		t.Fatalf("failed to insert user %s: %v", u.id, err)
	}
}

func fetchTestUser(t *testing.T, pool *pgxpool.Pool, id string) (cpf *string, role, status string, expiresAt *time.Time) {
	t.Helper()
	const q = `SELECT cpf, role, status, subscription_expires_at FROM users WHERE id = $1`
	if err := pool.QueryRow(context.Background(), q, id).Scan(&cpf, &role, &status, &expiresAt); err != nil {
		t.Fatalf("failed to fetch user %s: %v", id, err)
	}
	return cpf, role, status, expiresAt
}

func historyCount(t *testing.T, pool *pgxpool.Pool, transactionID string) int {
	t.Helper()
	var n int
	const q = `SELECT COUNT(*) FROM payment_history WHERE transaction_id = $1`
	if err := pool.QueryRow(context.Background(), q, transactionID).Scan(&n); err != nil {
		t.Fatalf("failed to count history rows: %v", err)
	}
	return n
}

func testPayment(transactionID string) *model.Payment {
	return &model.Payment{
		Date:          time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC),
		Provider:      "hotmart",
		Amount:        decimal.NewFromFloat(29.90),
		TransactionID: transactionID,
		Product:       "monthly plan",
	}
}

func ptrStr(s string) *string { return &s }

func ptrTime(t time.Time) *time.Time { return &t }

func TestApplyPaymentActivatesBlockedUser(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	insertTestUser(t, pool, userRow{id: "u-blocked", email: "blocked@example.com", role: "user", status: model.StatusBlocked})

	newExpiry := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	applied, err := repo.ApplyPayment(ctx, "u-blocked", newExpiry, nil, "", testPayment("tx-blocked-1"))
	if err != nil {
		t.Fatalf("ApplyPayment returned error: %v", err)
	}
	if applied != ApplyOK {
		t.Fatalf("expected ApplyOK, got %v", applied)
	}

	_, _, status, expiresAt := fetchTestUser(t, pool, "u-blocked")
	if status != model.StatusActive {
		t.Fatalf("expected blocked user to become active after payment, got status %q", status)
	}
	if expiresAt == nil || !expiresAt.Equal(newExpiry) {
		t.Fatalf("expected expiry %v, got %v", newExpiry, expiresAt)
	}
}

func TestApplyPaymentNeverOverwritesCPF(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	insertTestUser(t, pool, userRow{id: "u-cpf", email: "cpf@example.com", cpf: ptrStr("11122233344"), role: "user", status: model.StatusActive})

	newExpiry := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	applied, err := repo.ApplyPayment(ctx, "u-cpf", newExpiry, nil, "99988877766", testPayment("tx-cpf-1"))
	if err != nil {
		t.Fatalf("ApplyPayment returned error: %v", err)
	}
	if applied != ApplyOK {
		t.Fatalf("expected ApplyOK, got %v", applied)
	}

	cpf, _, _, _ := fetchTestUser(t, pool, "u-cpf")
	if cpf == nil || *cpf != "11122233344" {
		t.Fatalf("existing CPF must never be overwritten, got %v", cpf)
	}
}

func TestApplyPaymentFillsMissingCPF(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	insertTestUser(t, pool, userRow{id: "u-nocpf", email: "nocpf@example.com", role: "user", status: model.StatusActive})

	newExpiry := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	if _, err := repo.ApplyPayment(ctx, "u-nocpf", newExpiry, nil, "99988877766", testPayment("tx-nocpf-1")); err != nil {
		t.Fatalf("ApplyPayment returned error: %v", err)
	}

	cpf, _, _, _ := fetchTestUser(t, pool, "u-nocpf")
	if cpf == nil || *cpf != "99988877766" {
		t.Fatalf("expected CPF to be filled from the payment, got %v", cpf)
	}
}

func TestApplyPaymentPreservesRole(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	insertTestUser(t, pool, userRow{id: "u-admin", email: "admin@example.com", role: model.RoleSupportAdmin, status: model.StatusActive})
	insertTestUser(t, pool, userRow{id: "u-norole", email: "norole@example.com", role: "", status: model.StatusActive})

	newExpiry := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	if _, err := repo.ApplyPayment(ctx, "u-admin", newExpiry, nil, "", testPayment("tx-role-1")); err != nil {
		t.Fatalf("ApplyPayment returned error: %v", err)
	}
	if _, err := repo.ApplyPayment(ctx, "u-norole", newExpiry, nil, "", testPayment("tx-role-2")); err != nil {
		t.Fatalf("ApplyPayment returned error: %v", err)
	}

	_, role, _, _ := fetchTestUser(t, pool, "u-admin")
	if role != model.RoleSupportAdmin {
		t.Fatalf("expected role to be preserved, got %q", role)
	}
	_, role, _, _ = fetchTestUser(t, pool, "u-norole")
	if role != model.RoleUser {
		t.Fatalf("expected empty role to default to user, got %q", role)
	}
}

func TestApplyPaymentDuplicateTransaction(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	insertTestUser(t, pool, userRow{id: "u-dup", email: "dup@example.com", role: "user", status: model.StatusActive})

	firstExpiry := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	applied, err := repo.ApplyPayment(ctx, "u-dup", firstExpiry, nil, "", testPayment("tx-dup-1"))
	if err != nil || applied != ApplyOK {
		t.Fatalf("first ApplyPayment: applied=%v err=%v", applied, err)
	}

	applied, err = repo.ApplyPayment(ctx, "u-dup", firstExpiry.AddDate(0, 1, 0), ptrTime(firstExpiry), "", testPayment("tx-dup-1"))
	if err != nil {
		t.Fatalf("replayed ApplyPayment returned error: %v", err)
	}
	if applied != ApplyDuplicate {
		t.Fatalf("expected ApplyDuplicate on replay, got %v", applied)
	}

	_, _, _, expiresAt := fetchTestUser(t, pool, "u-dup")
	if expiresAt == nil || !expiresAt.Equal(firstExpiry) {
		t.Fatalf("replay must not move the expiry, got %v", expiresAt)
	}
	if n := historyCount(t, pool, "tx-dup-1"); n != 1 {
		t.Fatalf("expected one history row, got %d", n)
	}
}

func TestApplyPaymentConflictOnStaleExpiry(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	current := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	insertTestUser(t, pool, userRow{id: "u-stale", email: "stale@example.com", role: "user", status: model.StatusActive, expiresAt: ptrTime(current)})

	// Guard expects NULL but the row already has an expiry.
	applied, err := repo.ApplyPayment(ctx, "u-stale", current.AddDate(0, 1, 0), nil, "", testPayment("tx-stale-1"))
	if err != nil {
		t.Fatalf("ApplyPayment returned error: %v", err)
	}
	if applied != ApplyConflict {
		t.Fatalf("expected ApplyConflict on stale expected expiry, got %v", applied)
	}

	// The rolled-back attempt must not leave a history row behind.
	if n := historyCount(t, pool, "tx-stale-1"); n != 0 {
		t.Fatalf("conflict must roll back the history insert, found %d rows", n)
	}

	// Matching expected expiry goes through, NULL matching NULL included.
	applied, err = repo.ApplyPayment(ctx, "u-stale", current.AddDate(0, 1, 0), ptrTime(current), "", testPayment("tx-stale-2"))
	if err != nil || applied != ApplyOK {
		t.Fatalf("matching expected expiry: applied=%v err=%v", applied, err)
	}
}

func TestApplyPaymentNullExpectedMatchesNullColumn(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	insertTestUser(t, pool, userRow{id: "u-null", email: "null@example.com", role: "user", status: model.StatusActive})

	newExpiry := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	applied, err := repo.ApplyPayment(ctx, "u-null", newExpiry, nil, "", testPayment("tx-null-1"))
	if err != nil {
		t.Fatalf("ApplyPayment returned error: %v", err)
	}
	if applied != ApplyOK {
		t.Fatalf("expected NULL guard to match NULL column, got %v", applied)
	}
}

func TestAdoptPending(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	insertTestUser(t, pool, userRow{id: "u-adopt", email: "adopt@example.com", role: "user", status: model.StatusBlocked})

	pending := &model.PendingSubscription{
		IdentityKey:           "11122233344",
		CPF:                   "11122233344",
		Email:                 "adopt@example.com",
		SubscriptionExpiresAt: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		Status:                model.StatusActive,
		Role:                  model.RoleUser,
		LastPayment:           *testPayment("tx-adopt-1"),
	}
	insertTestPending(t, pool, pending)

	adopted, err := repo.AdoptPending(ctx, "u-adopt", pending)
	if err != nil {
		t.Fatalf("AdoptPending returned error: %v", err)
	}
	if !adopted {
		t.Fatal("expected pending subscription to be adopted")
	}

	cpf, _, status, expiresAt := fetchTestUser(t, pool, "u-adopt")
	if status != model.StatusActive {
		t.Fatalf("expected adopted user to be active, got %q", status)
	}
	if cpf == nil || *cpf != "11122233344" {
		t.Fatalf("expected CPF from the pending row, got %v", cpf)
	}
	if expiresAt == nil || !expiresAt.Equal(pending.SubscriptionExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", pending.SubscriptionExpiresAt, expiresAt)
	}
	if n := pendingCount(t, pool, pending.IdentityKey); n != 0 {
		t.Fatalf("expected pending row to be deleted, found %d", n)
	}
	if n := historyCount(t, pool, "tx-adopt-1"); n != 1 {
		t.Fatalf("expected one history row, got %d", n)
	}
}

func TestAdoptPendingReplayKeepsCurrentExpiry(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	// The payment already landed through the webhook with a later expiry.
	insertTestUser(t, pool, userRow{id: "u-replay", email: "replay@example.com", role: "user", status: model.StatusActive})
	currentExpiry := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	applied, err := repo.ApplyPayment(ctx, "u-replay", currentExpiry, nil, "", testPayment("tx-replay-1"))
	if err != nil || applied != ApplyOK {
		t.Fatalf("ApplyPayment: applied=%v err=%v", applied, err)
	}

	pending := &model.PendingSubscription{
		IdentityKey:           "55566677788",
		CPF:                   "55566677788",
		Email:                 "replay@example.com",
		SubscriptionExpiresAt: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		Status:                model.StatusActive,
		Role:                  model.RoleUser,
		LastPayment:           *testPayment("tx-replay-1"),
	}
	insertTestPending(t, pool, pending)

	adopted, err := repo.AdoptPending(ctx, "u-replay", pending)
	if err != nil {
		t.Fatalf("AdoptPending returned error: %v", err)
	}
	if !adopted {
		t.Fatal("expected replayed adopt to still clear the pending row")
	}

	_, _, _, expiresAt := fetchTestUser(t, pool, "u-replay")
	if expiresAt == nil || !expiresAt.Equal(currentExpiry) {
		t.Fatalf("replayed adopt must not reset the expiry, got %v", expiresAt)
	}
	if n := historyCount(t, pool, "tx-replay-1"); n != 1 {
		t.Fatalf("expected one history row, got %d", n)
	}
	if n := pendingCount(t, pool, pending.IdentityKey); n != 0 {
		t.Fatalf("expected stale pending row to be deleted, found %d", n)
	}
}

func TestAdoptPendingMissingUser(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	pending := &model.PendingSubscription{
		IdentityKey:           "00011122233",
		CPF:                   "00011122233",
		SubscriptionExpiresAt: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		Status:                model.StatusActive,
		Role:                  model.RoleUser,
		LastPayment:           *testPayment("tx-missing-1"),
	}
	insertTestPending(t, pool, pending)

	adopted, err := repo.AdoptPending(ctx, "nobody", pending)
	if err != nil {
		t.Fatalf("AdoptPending returned error: %v", err)
	}
	if adopted {
		t.Fatal("expected adopt to report false for a missing user")
	}
	if n := pendingCount(t, pool, pending.IdentityKey); n != 1 {
		t.Fatalf("pending row must survive a failed adopt, found %d", n)
	}
}

func insertTestPending(t *testing.T, pool *pgxpool.Pool, p *model.PendingSubscription) {
	t.Helper()
	const q = `
        INSERT INTO pending_subscriptions (identity_key, cpf, email, subscription_expires_at, status, role, last_payment)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	payload, err := json.Marshal(p.LastPayment)
	if err != nil {
		t.Fatalf("failed to marshal pending payment: %v", err)
	}
	if _, err := pool.Exec(context.Background(), q, p.IdentityKey, p.CPF, p.Email, p.SubscriptionExpiresAt, p.Status, p.Role, payload); err != nil {
		t.Fatalf("failed to insert pending subscription %s: %v", p.IdentityKey, err)
	}
}

func pendingCount(t *testing.T, pool *pgxpool.Pool, identityKey string) int {
	t.Helper()
	var n int
	const q = `SELECT COUNT(*) FROM pending_subscriptions WHERE identity_key = $1`
	if err := pool.QueryRow(context.Background(), q, identityKey).Scan(&n); err != nil {
		t.Fatalf("failed to count pending rows: %v", err)
	}
	return n
}
