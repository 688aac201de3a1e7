package service

import (
	"context"
	"fmt"

	"app/internal/api/v1/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	leaderboardKey     = "gamification:leaderboard"
	pointsPerExpense   = 10
	leaderboardMaxSize = 100
)

// GamificationService keeps the points leaderboard. Points live in redis
// only; losing them is acceptable.
type GamificationService interface {
	AwardExpensePoints(ctx context.Context, userID string) error
	Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntryDTO, error)
}

type gamificationService struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewGamificationService(rdb *redis.Client, logger zerolog.Logger) GamificationService {
	return &gamificationService{
		rdb:    rdb,
		logger: logger.With().Str("service", "GamificationService").Logger(),
	}
}

func (s *gamificationService) AwardExpensePoints(ctx context.Context, userID string) error {
	if err := s.rdb.ZIncrBy(ctx, leaderboardKey, pointsPerExpense, userID).Err(); err != nil {
		return fmt.Errorf("award points to user %s: %w", userID, err)
	}
	return nil
}

func (s *gamificationService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntryDTO, error) {
	if limit <= 0 || limit > leaderboardMaxSize {
		limit = leaderboardMaxSize
	}
	entries, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	board := make([]dto.LeaderboardEntryDTO, 0, len(entries))
	for _, e := range entries {
		userID, ok := e.Member.(string)
		if !ok {
			continue
		}
		board = append(board, dto.LeaderboardEntryDTO{UserID: userID, Points: int64(e.Score)})
	}
	return board, nil
}
