package pgmq

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func newTestClient(t *testing.T) (*Client, *sql.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip database integration test")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgmq`); err != nil {
		t.Skipf("pgmq extension not available: %v", err)
	}
	return New(db), db
}

func createTestQueue(t *testing.T, db *sql.DB, queue string) {
	t.Helper()
	if _, err := db.Exec(`SELECT pgmq.create($1)`, queue); err != nil {
		t.Fatalf("failed to create queue %s: %v", queue, err)
	}
	t.Cleanup(func() {
		db.Exec(`SELECT pgmq.drop_queue($1)`, queue)
	})
}

func TestSendReadDelete(t *testing.T) {
	client, db := newTestClient(t)
	createTestQueue(t, db, "client_test_ack")
	ctx := context.Background()

	id, err := client.Send(ctx, "client_test_ack", []byte(`{"user_id":"u1"}`))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero message id")
	}

	msgs, err := client.ReadWithPoll(ctx, "client_test_ack", 1, 5)
	if err != nil {
		t.Fatalf("ReadWithPoll returned error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != id {
		t.Fatalf("expected the sent message back, got %+v", msgs)
	}
	if string(msgs[0].Data) != `{"user_id": "u1"}` && string(msgs[0].Data) != `{"user_id":"u1"}` {
		t.Fatalf("unexpected payload: %s", msgs[0].Data)
	}

	if err := client.Delete(ctx, "client_test_ack", id); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	msgs, err = client.ReadWithPoll(ctx, "client_test_ack", 1, 5)
	if err != nil {
		t.Fatalf("ReadWithPoll after delete returned error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty queue after delete, got %d messages", len(msgs))
	}
}

func TestArchiveRemovesFromQueue(t *testing.T) {
	client, db := newTestClient(t)
	createTestQueue(t, db, "client_test_archive")
	ctx := context.Background()

	id, err := client.Send(ctx, "client_test_archive", []byte(`{"user_id":"u2"}`))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if err := client.Archive(ctx, "client_test_archive", id); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}

	msgs, err := client.ReadWithPoll(ctx, "client_test_archive", 1, 5)
	if err != nil {
		t.Fatalf("ReadWithPoll after archive returned error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty queue after archive, got %d messages", len(msgs))
	}

	// The payload must survive in the archive table for inspection.
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pgmq.a_client_test_archive WHERE msg_id = $1`, id).Scan(&n); err != nil {
		t.Fatalf("failed to count archived messages: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the message in the archive table, found %d", n)
	}
}
