package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrExpenseNotFound = errors.New("expense not found")

type ExpenseService interface {
	Create(ctx context.Context, e *model.Expense) (*model.Expense, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Expense, error)
	Update(ctx context.Context, userID string, e *model.Expense) (*model.Expense, error)
	Delete(ctx context.Context, userID, id string) error
}

type expenseService struct {
	repo         repository.ExpenseRepository
	gamification GamificationService
	logger       zerolog.Logger
}

func NewExpenseService(repo repository.ExpenseRepository, gamification GamificationService, logger zerolog.Logger) ExpenseService {
	return &expenseService{
		repo:         repo,
		gamification: gamification,
		logger:       logger.With().Str("service", "ExpenseService").Logger(),
	}
}

func (s *expenseService) Create(ctx context.Context, e *model.Expense) (*model.Expense, error) {
	e.ID = uuid.NewString()
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	// Tracking an expense earns points; the leaderboard is best effort.
	if s.gamification != nil {
		if err := s.gamification.AwardExpensePoints(ctx, e.UserID); err != nil {
			s.logger.Error().Err(err).Str("user_id", e.UserID).Msg("Failed to award expense points")
		}
	}
	return e, nil
}

func (s *expenseService) List(ctx context.Context, userID string, limit, offset int) ([]model.Expense, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *expenseService) Update(ctx context.Context, userID string, e *model.Expense) (*model.Expense, error) {
	updated, err := s.repo.Update(ctx, userID, e)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

func (s *expenseService) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrExpenseNotFound
	}
	return nil
}
