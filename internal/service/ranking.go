package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"squares-bot/internal/model"
	"squares-bot/internal/repository"
)

// RankingService serves the balance and daily leaderboards.
type RankingService struct {
	users    *repository.UserRepository
	txs      *repository.TransactionRepository
	timezone *time.Location
}

// NewRankingService creates a new RankingService. Days are cut at midnight
// in timezone, UTC when nil.
func NewRankingService(pool *pgxpool.Pool, timezone *time.Location) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		users:    repository.NewUserRepository(pool),
		txs:      repository.NewTransactionRepository(pool),
		timezone: timezone,
	}
}

func (s *RankingService) today() time.Time {
	return time.Now().In(s.timezone)
}

// GetTopUsers returns the richest users.
func (s *RankingService) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	return s.users.GetTopUsers(ctx, limit)
}

// GetDailyWinners returns today's biggest winners.
func (s *RankingService) GetDailyWinners(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.txs.GetDailyWinners(ctx, s.today(), limit)
}

// GetDailyLosers returns today's biggest losers.
func (s *RankingService) GetDailyLosers(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.txs.GetDailyLosers(ctx, s.today(), limit)
}

// GetUserDailyProfit returns a user's net game result today.
func (s *RankingService) GetUserDailyProfit(ctx context.Context, userID int64) (int64, error) {
	return s.txs.GetUserDailyProfit(ctx, userID, s.today())
}
