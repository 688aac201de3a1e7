package dto

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentWebhook is the provider callback body. Providers disagree on field
// names, so every field is optional and read through an accessor that applies
// the documented fallback chain. Unknown fields are ignored.
type PaymentWebhook struct {
	Token             string          `json:"token"`
	StatusField       string          `json:"status"`
	TransactionStatus string          `json:"transaction_status"`
	EmailField        string          `json:"email"`
	Customer          WebhookCustomer `json:"customer"`
	ProductName       string          `json:"product_name"`
	OfferTitle        string          `json:"offer_title"`
	AmountField       decimal.Decimal `json:"amount"`
	IDField           string          `json:"id"`
	TransactionIDAlt  string          `json:"transaction_id"`
}

type WebhookCustomer struct {
	Email    string           `json:"email"`
	CPF      string           `json:"cpf"`
	Document CustomerDocument `json:"document"`
}

type CustomerDocument struct {
	Number string `json:"number"`
}

// Status returns the uppercased payment status, preferring `status` over
// `transaction_status`.
func (p *PaymentWebhook) Status() string {
	if p.StatusField != "" {
		return strings.ToUpper(p.StatusField)
	}
	return strings.ToUpper(p.TransactionStatus)
}

// Email prefers the nested customer email over the top-level one.
func (p *PaymentWebhook) Email() string {
	if p.Customer.Email != "" {
		return p.Customer.Email
	}
	return p.EmailField
}

// CPF returns the raw customer CPF, preferring `customer.cpf` over
// `customer.document.number`. Formatting is left to the caller.
func (p *PaymentWebhook) CPF() string {
	if p.Customer.CPF != "" {
		return p.Customer.CPF
	}
	return p.Customer.Document.Number
}

// Product returns the lowercased product/offer name.
func (p *PaymentWebhook) Product() string {
	if p.ProductName != "" {
		return strings.ToLower(p.ProductName)
	}
	return strings.ToLower(p.OfferTitle)
}

// TransactionID falls back from `id` to `transaction_id`; empty means the
// provider sent neither.
func (p *PaymentWebhook) TransactionID() string {
	if p.IDField != "" {
		return p.IDField
	}
	return p.TransactionIDAlt
}

// Amount is zero when the provider omitted it.
func (p *PaymentWebhook) Amount() decimal.Decimal {
	return p.AmountField
}

// WebhookResponse is the acknowledgement body. The provider only inspects
// the status code; the fields exist for operability.
type WebhookResponse struct {
	Result                string `json:"result"`
	Reason                string `json:"reason,omitempty"`
	SubscriptionExpiresAt string `json:"subscription_expires_at,omitempty"`
}
