// Package service holds the bot's business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"squares-bot/internal/model"
	"squares-bot/internal/pkg/db"
	"squares-bot/internal/repository"
)

var (
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	ErrUserNotFound        = repository.ErrUserNotFound
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Credit is one balance increase applied by CreditMany.
type Credit struct {
	UserID      int64
	Amount      int64
	Type        string
	Description string
}

// AccountService manages balances. Every balance change is written with
// its ledger row in the same database transaction.
type AccountService struct {
	pool        *pgxpool.Pool
	users       *repository.UserRepository
	dailyReward int64
	cooldownHrs int
}

// NewAccountService creates a new AccountService.
func NewAccountService(pool *pgxpool.Pool, dailyReward int64, cooldownHours int) *AccountService {
	return &AccountService{
		pool:        pool,
		users:       repository.NewUserRepository(pool),
		dailyReward: dailyReward,
		cooldownHrs: cooldownHours,
	}
}

// EnsureUser returns the user, creating the account on first contact, and
// keeps the stored username current.
func (s *AccountService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.users.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if !created && username != "" && user.Username != username {
		if err := s.users.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to update username")
		} else {
			user.Username = username
		}
	}
	return user, created, nil
}

// GetBalance returns a user's balance.
func (s *AccountService) GetBalance(ctx context.Context, telegramID int64) (int64, error) {
	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Balance, nil
}

// GetUser returns a user by Telegram id.
func (s *AccountService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByID(ctx, telegramID)
}

// UpdateBalance adds amount, which may be negative, and records it.
func (s *AccountService) UpdateBalance(ctx context.Context, telegramID int64, amount int64, txType string, description *string) (*model.User, error) {
	var user *model.User
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		user, err = repository.NewUserRepository(tx).UpdateBalance(ctx, telegramID, amount)
		if err != nil {
			return err
		}
		_, err = repository.NewTransactionRepository(tx).Create(ctx, telegramID, amount, txType, description)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return user, nil
}

// Debit takes amount from the user and records it as a negative entry.
// It fails with ErrInsufficientBalance without touching the balance.
func (s *AccountService) Debit(ctx context.Context, telegramID int64, amount int64, txType string, description string) (*model.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var user *model.User
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		user, err = repository.NewUserRepository(tx).Debit(ctx, telegramID, amount)
		if err != nil {
			return err
		}
		_, err = repository.NewTransactionRepository(tx).Create(ctx, telegramID, -amount, txType, &description)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	return user, nil
}

// CreditMany applies every credit or none of them.
func (s *AccountService) CreditMany(ctx context.Context, credits []Credit) error {
	if len(credits) == 0 {
		return nil
	}

	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		users := repository.NewUserRepository(tx)
		txs := repository.NewTransactionRepository(tx)
		for _, c := range credits {
			if c.Amount <= 0 {
				continue
			}
			if _, err := users.UpdateBalance(ctx, c.UserID, c.Amount); err != nil {
				return fmt.Errorf("user %d: %w", c.UserID, err)
			}
			desc := c.Description
			if _, err := txs.Create(ctx, c.UserID, c.Amount, c.Type, &desc); err != nil {
				return fmt.Errorf("user %d: %w", c.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply credits: %w", err)
	}
	return nil
}

// ClaimDaily grants the daily reward if the cooldown has passed. When it
// has not, ok is false and remaining is the wait.
func (s *AccountService) ClaimDaily(ctx context.Context, telegramID int64) (ok bool, remaining time.Duration, err error) {
	ok, remaining, err = s.users.CanClaimDaily(ctx, telegramID, s.cooldownHrs)
	if err != nil {
		return false, 0, fmt.Errorf("failed to check daily claim eligibility: %w", err)
	}
	if !ok {
		return false, remaining, nil
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		users := repository.NewUserRepository(tx)
		if _, err := users.UpdateBalance(ctx, telegramID, s.dailyReward); err != nil {
			return err
		}
		if _, err := users.UpdateDailyClaim(ctx, telegramID, time.Now().Unix()); err != nil {
			return err
		}
		desc := "Daily reward"
		_, err := repository.NewTransactionRepository(tx).Create(ctx, telegramID, s.dailyReward, model.TxTypeDaily, &desc)
		return err
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to claim daily reward: %w", err)
	}
	return true, 0, nil
}

// DailyReward returns the configured daily reward.
func (s *AccountService) DailyReward() int64 { return s.dailyReward }

// FormatWait renders a cooldown as "5h 3m 12s".
func FormatWait(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, sec)
}
