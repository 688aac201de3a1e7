package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BudgetService interface {
	Upsert(ctx context.Context, b *model.Budget) (*model.Budget, error)
	// List returns the user's budgets with spent-so-far filled in from the
	// expense totals of each budget's month.
	List(ctx context.Context, userID string) ([]model.Budget, error)
}

type budgetService struct {
	repo        repository.BudgetRepository
	expenseRepo repository.ExpenseRepository
	logger      zerolog.Logger
}

func NewBudgetService(repo repository.BudgetRepository, expenseRepo repository.ExpenseRepository, logger zerolog.Logger) BudgetService {
	return &budgetService{
		repo:        repo,
		expenseRepo: expenseRepo,
		logger:      logger.With().Str("service", "BudgetService").Logger(),
	}
}

func (s *budgetService) Upsert(ctx context.Context, b *model.Budget) (*model.Budget, error) {
	b.ID = uuid.NewString()
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *budgetService) List(ctx context.Context, userID string) ([]model.Budget, error) {
	budgets, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		monthStart, err := time.Parse("2006-01", budgets[i].Month)
		if err != nil {
			return nil, fmt.Errorf("budget %s has malformed month %q: %w", budgets[i].ID, budgets[i].Month, err)
		}
		spent, err := s.expenseRepo.SumByCategoryMonth(ctx, userID, budgets[i].Category, monthStart)
		if err != nil {
			return nil, err
		}
		budgets[i].Spent = spent
	}
	return budgets, nil
}
