package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DLQRepository interface {
	Create(ctx context.Context, message *model.DeadLetterMessage) error
}

type dlqRepository struct {
	pool *pgxpool.Pool
}

func NewDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &dlqRepository{pool: pool}
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) error {
	const q = `
        INSERT INTO dead_letter_messages (subscription_name, message_id, payload, attributes, status)
        VALUES ($1, $2, $3, $4, $5)
    `
	var attributes any
	if len(message.Attributes) > 0 {
		attributes = message.Attributes
	}
	_, err := r.pool.Exec(
		ctx,
		q,
		message.SubscriptionName,
		message.MessageID,
		message.Payload,
		attributes,
		message.Status,
	)
	if err != nil {
		return fmt.Errorf("creating dead letter message for subscription %s: %w", message.SubscriptionName, err)
	}
	return nil
}
