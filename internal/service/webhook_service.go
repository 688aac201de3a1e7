package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/config"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ErrMissingIdentity means the notification carried neither a usable CPF nor
// an email; there is nothing to resolve or defer.
var ErrMissingIdentity = errors.New("payment notification carries neither cpf nor email")

// Provider statuses that represent a captured payment. Anything else is
// acknowledged without side effects so the provider stops retrying.
var approvedStatuses = map[string]struct{}{
	"APPROVED":   {},
	"PAID":       {},
	"COMPLETED":  {},
	"AUTHORIZED": {},
}

// maxApplyAttempts bounds the optimistic-concurrency retry loop around
// identity resolution and the subscription update.
const maxApplyAttempts = 3

type ReconcileOutcome string

const (
	// OutcomeIgnored: status not in the approved set, no writes.
	OutcomeIgnored ReconcileOutcome = "ignored"
	// OutcomePending: no matching user; a pending subscription was stored.
	OutcomePending ReconcileOutcome = "pending"
	// OutcomeDuplicate: the transaction id was already applied.
	OutcomeDuplicate ReconcileOutcome = "already_processed"
	// OutcomeApplied: the user's subscription was extended.
	OutcomeApplied ReconcileOutcome = "applied"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome
	// NewExpiresAt is set for OutcomeApplied and OutcomePending.
	NewExpiresAt time.Time
	// IdentityKey is the pending-subscription key for OutcomePending.
	IdentityKey string
}

// WebhookService reconciles payment-provider notifications into user
// subscription state.
type WebhookService interface {
	Process(ctx context.Context, payload *dto.PaymentWebhook) (*ReconcileResult, error)
}

type webhookService struct {
	userRepo       repository.UserRepository
	pendingRepo    repository.PendingSubscriptionRepository
	publisher      pubsub.Publisher
	mailer         Mailer
	provider       string
	annualKeywords []string
	logger         zerolog.Logger
	now            func() time.Time
}

// NewWebhookService creates a WebhookService with a scoped logger. publisher
// and mailer are optional; the reconciliation itself never depends on them.
func NewWebhookService(userRepo repository.UserRepository, pendingRepo repository.PendingSubscriptionRepository, publisher pubsub.Publisher, mailer Mailer, cfg *config.Config, logger zerolog.Logger) WebhookService {
	return &webhookService{
		userRepo:       userRepo,
		pendingRepo:    pendingRepo,
		publisher:      publisher,
		mailer:         mailer,
		provider:       cfg.PaymentProviderName,
		annualKeywords: cfg.AnnualKeywords(),
		logger:         logger.With().Str("service", "WebhookService").Logger(),
		now:            time.Now,
	}
}

func (s *webhookService) Process(ctx context.Context, payload *dto.PaymentWebhook) (*ReconcileResult, error) {
	status := payload.Status()
	if _, ok := approvedStatuses[status]; !ok {
		s.logger.Info().Str("status", status).Msg("Payment status not approved, ignoring notification")
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	cpf := normalizeCPF(payload.CPF())
	email := strings.TrimSpace(payload.Email())
	if cpf == "" && email == "" {
		return nil, ErrMissingIdentity
	}

	product := payload.Product()
	months := s.subscriptionMonths(product)
	now := s.now()

	transactionID := payload.TransactionID()
	if transactionID == "" {
		transactionID = model.UnknownTransactionID
	}
	payment := model.Payment{
		Date:          now,
		Provider:      s.provider,
		Amount:        payload.Amount(),
		TransactionID: transactionID,
		Product:       product,
	}

	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		user, err := s.resolveUser(ctx, cpf, email)
		if err != nil {
			return nil, err
		}

		if user == nil {
			return s.saveToPending(ctx, cpf, email, months, now, payment)
		}

		// A still-active subscription extends from its own expiry so no
		// value is lost by early renewal; a lapsed one restarts from now.
		base := now
		if user.SubscriptionExpiresAt != nil && !dayBefore(*user.SubscriptionExpiresAt, now) {
			base = *user.SubscriptionExpiresAt
		}
		newExpiresAt := truncateToDay(base.AddDate(0, months, 0))

		applied, err := s.userRepo.ApplyPayment(ctx, user.ID, newExpiresAt, user.SubscriptionExpiresAt, cpf, &payment)
		if err != nil {
			return nil, fmt.Errorf("apply payment %s to user %s: %w", payment.TransactionID, user.ID, err)
		}
		switch applied {
		case repository.ApplyDuplicate:
			s.logger.Warn().Str("transaction_id", payment.TransactionID).Str("user_id", user.ID).Msg("Duplicate payment delivery, already processed")
			return &ReconcileResult{Outcome: OutcomeDuplicate}, nil
		case repository.ApplyConflict:
			s.logger.Warn().Str("user_id", user.ID).Int("attempt", attempt).Msg("Concurrent subscription update detected, retrying reconciliation")
			continue
		}

		s.logger.Info().
			Str("user_id", user.ID).
			Str("transaction_id", payment.TransactionID).
			Int("months", months).
			Time("subscription_expires_at", newExpiresAt).
			Msg("Payment reconciled")
		s.afterApply(ctx, user, payment, newExpiresAt)
		return &ReconcileResult{Outcome: OutcomeApplied, NewExpiresAt: newExpiresAt}, nil
	}

	return nil, fmt.Errorf("reconciliation of transaction %s kept conflicting after %d attempts", payment.TransactionID, maxApplyAttempts)
}

// resolveUser maps the provider identity to a user record. CPF is the
// durable unique legal identifier, so it always wins; email is only a
// fallback when CPF is absent or unmatched.
func (s *webhookService) resolveUser(ctx context.Context, cpf, email string) (*model.User, error) {
	if cpf != "" {
		user, err := s.userRepo.FindByCPF(ctx, cpf)
		if err != nil {
			return nil, fmt.Errorf("find user by cpf: %w", err)
		}
		if user != nil {
			return user, nil
		}
	}
	if email != "" {
		user, err := s.userRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("find user by email: %w", err)
		}
		if user != nil {
			return user, nil
		}
	}
	return nil, nil
}

func (s *webhookService) saveToPending(ctx context.Context, cpf, email string, months int, now time.Time, payment model.Payment) (*ReconcileResult, error) {
	identityKey := cpf
	if identityKey == "" {
		identityKey = email
	}
	pending := &model.PendingSubscription{
		IdentityKey:           identityKey,
		CPF:                   cpf,
		Email:                 email,
		SubscriptionExpiresAt: truncateToDay(now.AddDate(0, months, 0)),
		Status:                model.StatusActive,
		Role:                  model.RoleUser,
		LastPayment:           payment,
		CreatedAt:             now,
	}
	if err := s.pendingRepo.Replace(ctx, pending); err != nil {
		return nil, fmt.Errorf("save pending subscription %s: %w", identityKey, err)
	}
	s.logger.Info().
		Str("identity_key", identityKey).
		Str("transaction_id", payment.TransactionID).
		Msg("No matching user, payment saved to pending subscriptions")
	return &ReconcileResult{Outcome: OutcomePending, NewExpiresAt: pending.SubscriptionExpiresAt, IdentityKey: identityKey}, nil
}

// afterApply runs post-commit side channels. Failures are logged, never
// surfaced: the subscription state is already durable.
func (s *webhookService) afterApply(ctx context.Context, user *model.User, payment model.Payment, expiresAt time.Time) {
	if s.publisher != nil {
		event := map[string]string{
			"type":           "payment.reconciled",
			"user_id":        user.ID,
			"transaction_id": payment.TransactionID,
			"product":        payment.Product,
			"amount":         payment.Amount.String(),
			"expires_at":     expiresAt.Format("2006-01-02"),
		}
		payload, _ := json.Marshal(event)
		if _, err := s.publisher.Publish(ctx, payload); err != nil {
			s.logger.Error().Err(err).Msg("Failed to publish payment.reconciled event")
		}
	}
	if s.mailer != nil && user.Email != "" {
		if err := s.mailer.SendPaymentReceipt(ctx, user.Email, user.Name, payment.Product, payment.Amount, expiresAt); err != nil {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send payment receipt email")
		}
	}
}

// subscriptionMonths decides the subscription length from the lowercased
// product name. Provider product names are free text, so this is a substring
// heuristic with a deliberate fallback to monthly.
func (s *webhookService) subscriptionMonths(product string) int {
	for _, kw := range s.annualKeywords {
		if strings.Contains(product, kw) {
			return 12
		}
	}
	return 1
}

// normalizeCPF strips everything but digits. An empty result means "no CPF
// provided".
func normalizeCPF(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayBefore reports whether a's calendar day is strictly before b's,
// ignoring time-of-day on both sides.
func dayBefore(a, b time.Time) bool {
	return truncateToDay(a).Before(truncateToDay(b.In(a.Location())))
}
