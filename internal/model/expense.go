package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single tracked spend, either entered manually or drafted
// from a receipt by the extraction service.
type Expense struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	ReceiptPath *string         `db:"receipt_path" json:"receipt_path,omitempty"`
	SpentAt     time.Time       `db:"spent_at" json:"spent_at"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Budget is a monthly spending cap for one category. Month uses the
// "2006-01" format.
type Budget struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Category  string          `db:"category" json:"category"`
	Month     string          `db:"month" json:"month"`
	Limit     decimal.Decimal `db:"limit_amount" json:"limit"`
	Spent     decimal.Decimal `db:"spent" json:"spent"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
