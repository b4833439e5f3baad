package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"squares-bot/internal/model"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

const userColumns = `telegram_id, username, balance, last_daily_claim, created_at, updated_at`

// UserRepository handles user persistence.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.TelegramID, &u.Username, &u.Balance, &u.LastDailyClaim, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) one(ctx context.Context, op, query string, args ...any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return u, nil
}

// Create inserts a user with model.InitialBalance.
func (r *UserRepository) Create(ctx context.Context, telegramID int64, username string) (*model.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, balance, last_daily_claim, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, telegramID, username, model.InitialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetByID returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.one(ctx, "get user",
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
}

// GetOrCreate returns the user, creating the account on first contact.
// The bool is true when the account was created.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	const query = `
		INSERT INTO users (telegram_id, username, balance, last_daily_claim, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, telegramID, username, model.InitialBalance))
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	u, err = r.GetByID(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}

// UpdateBalance adds amount, which may be negative, to the balance.
func (r *UserRepository) UpdateBalance(ctx context.Context, telegramID int64, amount int64) (*model.User, error) {
	return r.one(ctx, "update balance", `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING `+userColumns, telegramID, amount)
}

// Debit subtracts amount only if the balance covers it. It returns
// ErrInsufficientBalance otherwise.
func (r *UserRepository) Debit(ctx context.Context, telegramID int64, amount int64) (*model.User, error) {
	u, err := r.one(ctx, "debit balance", `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE telegram_id = $1 AND balance >= $2
		RETURNING `+userColumns, telegramID, amount)
	if errors.Is(err, ErrUserNotFound) {
		if _, getErr := r.GetByID(ctx, telegramID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInsufficientBalance
	}
	return u, err
}

// GetTopUsers returns the limit richest users.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY balance DESC, telegram_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// UpdateDailyClaim records the unix time of the latest daily claim.
func (r *UserRepository) UpdateDailyClaim(ctx context.Context, telegramID int64, claimTime int64) (*model.User, error) {
	return r.one(ctx, "update daily claim", `
		UPDATE users
		SET last_daily_claim = $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING `+userColumns, telegramID, claimTime)
}

// CanClaimDaily reports whether the cooldown since the last claim has
// passed, and how long remains if not.
func (r *UserRepository) CanClaimDaily(ctx context.Context, telegramID int64, cooldownHours int) (bool, time.Duration, error) {
	u, err := r.GetByID(ctx, telegramID)
	if err != nil {
		return false, 0, err
	}
	ok, remaining := DailyClaimEligibility(u.LastDailyClaim, time.Duration(cooldownHours)*time.Hour, time.Now())
	return ok, remaining, nil
}

// DailyClaimEligibility decides a daily claim at now. A lastClaim of 0
// means the user never claimed.
func DailyClaimEligibility(lastClaim int64, cooldown time.Duration, now time.Time) (bool, time.Duration) {
	if lastClaim == 0 {
		return true, 0
	}
	next := time.Unix(lastClaim, 0).Add(cooldown)
	if !now.Before(next) {
		return true, 0
	}
	return false, next.Sub(now)
}

// UpdateUsername stores a changed Telegram username.
func (r *UserRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users
		SET username = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
