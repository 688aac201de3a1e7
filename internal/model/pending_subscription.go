package model

import "time"

// PendingSubscription is a placeholder paid period stored when a provider
// notification cannot be matched to any user. It is keyed by the normalized
// CPF, falling back to the email, and is fully replaced (not merged) on
// every webhook that targets the same identity. The reconciler claims it
// when a matching user eventually registers.
type PendingSubscription struct {
	IdentityKey           string    `db:"identity_key" json:"identity_key"`
	CPF                   string    `db:"cpf" json:"cpf"`
	Email                 string    `db:"email" json:"email"`
	SubscriptionExpiresAt time.Time `db:"subscription_expires_at" json:"subscription_expires_at"`
	Status                string    `db:"status" json:"status"`
	Role                  string    `db:"role" json:"role"`
	LastPayment           Payment   `db:"last_payment" json:"last_payment"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}
