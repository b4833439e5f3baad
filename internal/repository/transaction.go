package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"squares-bot/internal/model"
)

const txColumns = `id, user_id, amount, type, description, created_at`

// TransactionRepository handles the balance change ledger.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	if err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description, &tx.CreatedAt); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create records a balance change.
func (r *TransactionRepository) Create(ctx context.Context, userID int64, amount int64, txType string, description *string) (*model.Transaction, error) {
	return r.CreateWithTime(ctx, userID, amount, txType, description, time.Now())
}

// CreateWithTime records a balance change at createdAt.
func (r *TransactionRepository) CreateWithTime(ctx context.Context, userID int64, amount int64, txType string, description *string, createdAt time.Time) (*model.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + txColumns

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, userID, amount, txType, description, createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// GetByUserID returns a user's latest transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return out, nil
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// rankFilter selects which side of zero a daily ranking keeps.
type rankFilter string

const (
	rankAll     rankFilter = ""
	rankWinners rankFilter = "HAVING SUM(t.amount) > 0 ORDER BY net_profit DESC, t.user_id"
	rankLosers  rankFilter = "HAVING SUM(t.amount) < 0 ORDER BY net_profit ASC, t.user_id"
)

func (r *TransactionRepository) dailyRanks(ctx context.Context, date time.Time, filter rankFilter, limit int) ([]*model.DailyRank, error) {
	start, end := dayBounds(date)

	order := string(filter)
	if filter == rankAll {
		order = "ORDER BY net_profit DESC, t.user_id"
	}
	query := `
		SELECT t.user_id, u.username, COALESCE(SUM(t.amount), 0) AS net_profit
		FROM transactions t
		JOIN users u ON t.user_id = u.telegram_id
		WHERE t.type = ANY($1)
		  AND t.created_at >= $2
		  AND t.created_at < $3
		GROUP BY t.user_id, u.username
		` + order
	args := []any{model.GameTransactionTypes(), start, end}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily ranks: %w", err)
	}
	defer rows.Close()

	var ranks []*model.DailyRank
	for rows.Next() {
		var rank model.DailyRank
		if err := rows.Scan(&rank.UserID, &rank.Username, &rank.NetProfit); err != nil {
			return nil, fmt.Errorf("failed to scan daily rank: %w", err)
		}
		ranks = append(ranks, &rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily ranks: %w", err)
	}
	return ranks, nil
}

// GetDailyStats returns every player's net game result for the day of date.
func (r *TransactionRepository) GetDailyStats(ctx context.Context, date time.Time) ([]*model.DailyRank, error) {
	return r.dailyRanks(ctx, date, rankAll, 0)
}

// GetDailyWinners returns players ahead for the day, biggest profit first.
func (r *TransactionRepository) GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	return r.dailyRanks(ctx, date, rankWinners, limit)
}

// GetDailyLosers returns players behind for the day, biggest loss first.
func (r *TransactionRepository) GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	return r.dailyRanks(ctx, date, rankLosers, limit)
}

// GetUserDailyProfit returns one player's net game result for the day.
func (r *TransactionRepository) GetUserDailyProfit(ctx context.Context, userID int64, date time.Time) (int64, error) {
	start, end := dayBounds(date)

	var profit int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1
		  AND type = ANY($2)
		  AND created_at >= $3
		  AND created_at < $4
	`, userID, model.GameTransactionTypes(), start, end).Scan(&profit)
	if err != nil {
		return 0, fmt.Errorf("failed to get user daily profit: %w", err)
	}
	return profit, nil
}
