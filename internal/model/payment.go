package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownTransactionID is stored when the provider omitted a transaction
// identifier. Rows carrying it are exempt from replay deduplication since
// they cannot be told apart.
const UnknownTransactionID = "unknown"

// Payment is one reconciled provider notification. It is embedded on the
// user as the last applied payment and appended to the per-user payment
// history; history rows are immutable once written.
type Payment struct {
	Date          time.Time       `db:"paid_at" json:"date"`
	Provider      string          `db:"provider" json:"provider"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	Product       string          `db:"product" json:"product"`
}
