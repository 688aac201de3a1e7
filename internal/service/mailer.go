package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/config"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
)

// Mailer sends transactional email. Callers treat delivery as best effort.
type Mailer interface {
	SendPaymentReceipt(ctx context.Context, toEmail, toName, product string, amount decimal.Decimal, expiresAt time.Time) error
}

type sendGridMailer struct {
	apiKey    string
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

// NewSendGridMailer returns a Mailer backed by SendGrid, or nil when no API
// key is configured so callers can skip email entirely.
func NewSendGridMailer(cfg *config.Config, logger zerolog.Logger) Mailer {
	if cfg.SendGridAPIKey == "" {
		return nil
	}
	return &sendGridMailer{
		apiKey:    cfg.SendGridAPIKey,
		fromEmail: cfg.EmailFrom,
		fromName:  cfg.EmailFromName,
		logger:    logger.With().Str("service", "Mailer").Logger(),
	}
}

func (m *sendGridMailer) SendPaymentReceipt(ctx context.Context, toEmail, toName, product string, amount decimal.Decimal, expiresAt time.Time) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	subject := "Pagamento confirmado"
	plain := fmt.Sprintf(
		"Recebemos seu pagamento de R$ %s (%s).\nSua assinatura vale até %s.",
		amount.StringFixed(2), product, expiresAt.Format("02/01/2006"),
	)
	html := fmt.Sprintf(
		"<p>Recebemos seu pagamento de <strong>R$ %s</strong> (%s).</p><p>Sua assinatura vale até <strong>%s</strong>.</p>",
		amount.StringFixed(2), product, expiresAt.Format("02/01/2006"),
	)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("send payment receipt to %s: %w", toEmail, err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("send payment receipt to %s: sendgrid status %d", toEmail, response.StatusCode)
	}
	m.logger.Debug().Str("to", toEmail).Int("status", response.StatusCode).Msg("Payment receipt email sent")
	return nil
}
