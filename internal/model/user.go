package model

import "time"

// User roles. The payment webhook never changes an existing role; it only
// defaults to RoleUser when the field was never set.
const (
	RoleUser             = "user"
	RoleSupportAdmin     = "support_admin"
	RoleOperationalAdmin = "operational_admin"
	RoleSuperAdmin       = "super_admin"
)

// User statuses. A successful payment always forces StatusActive.
const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User represents a registered person. The ID is the opaque subject issued
// by the external identity provider. CPF, when present, is unique across
// users and is the primary key for payment identity resolution.
type User struct {
	ID                    string     `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Email                 string     `db:"email" json:"email"`
	CPF                   *string    `db:"cpf" json:"cpf,omitempty"`
	Role                  string     `db:"role" json:"role"`
	Status                string     `db:"status" json:"status"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`
	LastPayment           *Payment   `db:"last_payment" json:"last_payment,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}
