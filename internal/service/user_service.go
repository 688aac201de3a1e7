package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrUserNotFound = errors.New("user not found")

// UserService manages user profiles and the reconciliation of pending
// subscriptions onto freshly registered users.
type UserService interface {
	Create(ctx context.Context, u *model.User, cpf string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	GetPayments(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error)
	// ClaimPending looks up a pending subscription for the identity
	// (CPF first, email fallback, the same priority the webhook uses) and
	// applies it to the user. Returns false when nothing was pending.
	ClaimPending(ctx context.Context, userID, cpf, email string) (bool, error)
}

// PendingClaimJob is the queue payload enqueued at registration and consumed
// by the reconciler worker.
type PendingClaimJob struct {
	UserID string `json:"user_id"`
	CPF    string `json:"cpf"`
	Email  string `json:"email"`
}

type userService struct {
	userRepo    repository.UserRepository
	pendingRepo repository.PendingSubscriptionRepository
	paymentRepo repository.PaymentRepository
	queue       *pgmq.Client
	queueName   string
	logger      zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, pendingRepo repository.PendingSubscriptionRepository, paymentRepo repository.PaymentRepository, queue *pgmq.Client, queueName string, logger zerolog.Logger) UserService {
	return &userService{
		userRepo:    userRepo,
		pendingRepo: pendingRepo,
		paymentRepo: paymentRepo,
		queue:       queue,
		queueName:   queueName,
		logger:      logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, u *model.User, cpf string) (*model.User, error) {
	if normalized := normalizeCPF(cpf); normalized != "" {
		u.CPF = &normalized
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	// Hand the pending-subscription lookup to the reconciler so signup
	// latency never depends on it. Enqueue failures are logged only; the
	// pending row stays claimable.
	if s.queue != nil {
		job := PendingClaimJob{UserID: u.ID, CPF: normalizeCPF(cpf), Email: u.Email}
		payload, _ := json.Marshal(job)
		if _, err := s.queue.Send(ctx, s.queueName, payload); err != nil {
			s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to enqueue pending-claim job")
		}
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) GetPayments(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *userService) ClaimPending(ctx context.Context, userID, cpf, email string) (bool, error) {
	pending, err := s.pendingRepo.FindByIdentity(ctx, normalizeCPF(cpf), email)
	if err != nil {
		return false, fmt.Errorf("find pending subscription: %w", err)
	}
	if pending == nil {
		return false, nil
	}
	adopted, err := s.userRepo.AdoptPending(ctx, userID, pending)
	if err != nil {
		return false, fmt.Errorf("adopt pending subscription %s: %w", pending.IdentityKey, err)
	}
	if !adopted {
		s.logger.Warn().Str("user_id", userID).Str("identity_key", pending.IdentityKey).Msg("Pending subscription found but user row missing")
		return false, nil
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("identity_key", pending.IdentityKey).
		Time("subscription_expires_at", pending.SubscriptionExpiresAt).
		Msg("Pending subscription claimed")
	return true, nil
}
