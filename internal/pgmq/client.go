package pgmq

import (
	"context"
	"database/sql"
	"fmt"
)

// Client runs the queue operations behind the pending-claim pipeline on top
// of the pgmq Postgres extension. Queues live in the same database as the
// subscription state, so an enqueue commits or fails together with the
// surrounding write.
type Client struct {
	db *sql.DB
}

func New(db *sql.DB) *Client {
	return &Client{db: db}
}

// Message is one job as read from a queue. Data is the raw JSON payload
// (a service.PendingClaimJob on the pending-claim queues).
type Message struct {
	ID   int64
	Data []byte
}

// Send enqueues a JSON payload for immediate delivery and returns the
// message id assigned by pgmq.
func (c *Client) Send(ctx context.Context, queue string, payload []byte) (int64, error) {
	const q = `SELECT pgmq.send($1, $2::jsonb)`
	var id int64
	if err := c.db.QueryRowContext(ctx, q, queue, string(payload)).Scan(&id); err != nil {
		return 0, fmt.Errorf("send to queue %s: %w", queue, err)
	}
	return id, nil
}

// ReadWithPoll reads up to maxMessages from the queue, blocking server-side
// for up to timeoutSec seconds when the queue is empty. Read messages stay
// invisible to other consumers until deleted, archived, or their visibility
// timeout lapses.
func (c *Client) ReadWithPoll(ctx context.Context, queue string, timeoutSec, maxMessages int) ([]*Message, error) {
	const q = `SELECT msg_id, message FROM pgmq.read_with_poll($1, $2, $3)`
	rows, err := c.db.QueryContext(ctx, q, queue, timeoutSec, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("read queue %s: %w", queue, err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Data); err != nil {
			return nil, fmt.Errorf("scan message from queue %s: %w", queue, err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue %s: %w", queue, err)
	}
	return msgs, nil
}

// Delete acknowledges one handled message, removing it permanently.
func (c *Client) Delete(ctx context.Context, queue string, msgID int64) error {
	const q = `SELECT pgmq.delete($1, $2::bigint)`
	if _, err := c.db.ExecContext(ctx, q, queue, msgID); err != nil {
		return fmt.Errorf("delete message %d from queue %s: %w", msgID, queue, err)
	}
	return nil
}

// Archive moves one message to the queue's archive table instead of
// deleting it. Used for poison messages and exhausted jobs, whose payloads
// must stay inspectable.
func (c *Client) Archive(ctx context.Context, queue string, msgID int64) error {
	const q = `SELECT pgmq.archive($1, $2::bigint)`
	if _, err := c.db.ExecContext(ctx, q, queue, msgID); err != nil {
		return fmt.Errorf("archive message %d from queue %s: %w", msgID, queue, err)
	}
	return nil
}
