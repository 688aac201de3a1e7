package model

import "time"

// DeadLetterMessage is a payment event delivery that exhausted its Pub/Sub
// retries, persisted for manual reconciliation by its transaction id.
type DeadLetterMessage struct {
	ID               int64     `db:"id" json:"id"`
	SubscriptionName string    `db:"subscription_name" json:"subscription_name"`
	MessageID        string    `db:"message_id" json:"message_id"`
	Payload          []byte    `db:"payload" json:"payload"`
	Attributes       []byte    `db:"attributes" json:"attributes,omitempty"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
