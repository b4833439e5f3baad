package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"squares-bot/internal/model"
)

const squaresColumns = `id, chat_id, pool_started_at, round, home_score, away_score, cell_row, cell_col,
	winner_id, base_amount, display_amount, coins, is_rollover, unclaimed, created_at`

// SquaresRepository stores resolved squares rounds.
type SquaresRepository struct {
	db DBTX
}

// NewSquaresRepository creates a new SquaresRepository.
func NewSquaresRepository(db DBTX) *SquaresRepository {
	return &SquaresRepository{db: db}
}

// SaveRounds inserts every round of a resolved pool in one batch.
func (r *SquaresRepository) SaveRounds(ctx context.Context, rounds []model.SquaresPayout) error {
	if len(rounds) == 0 {
		return nil
	}

	const query = `
		INSERT INTO squares_payouts (chat_id, pool_started_at, round, home_score, away_score,
			cell_row, cell_col, winner_id, base_amount, display_amount, coins, is_rollover, unclaimed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	batch := &pgx.Batch{}
	for _, p := range rounds {
		batch.Queue(query, p.ChatID, p.PoolStartedAt, p.Round, p.HomeScore, p.AwayScore,
			p.CellRow, p.CellCol, p.WinnerID, p.BaseAmount, p.DisplayAmount, p.Coins, p.IsRollover, p.Unclaimed)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range rounds {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save squares round %d: %w", i, err)
		}
	}
	return nil
}

func (r *SquaresRepository) list(ctx context.Context, query string, args ...any) ([]*model.SquaresPayout, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query squares payouts: %w", err)
	}
	defer rows.Close()

	var out []*model.SquaresPayout
	for rows.Next() {
		var p model.SquaresPayout
		err := rows.Scan(&p.ID, &p.ChatID, &p.PoolStartedAt, &p.Round, &p.HomeScore, &p.AwayScore,
			&p.CellRow, &p.CellCol, &p.WinnerID, &p.BaseAmount, &p.DisplayAmount, &p.Coins,
			&p.IsRollover, &p.Unclaimed, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan squares payout: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating squares payouts: %w", err)
	}
	return out, nil
}

// LastPool returns the rounds of the most recently started pool in chatID,
// in round order. It returns nil when the chat has no history.
func (r *SquaresRepository) LastPool(ctx context.Context, chatID int64) ([]*model.SquaresPayout, error) {
	return r.list(ctx, `
		SELECT `+squaresColumns+`
		FROM squares_payouts
		WHERE chat_id = $1 AND pool_started_at = (
			SELECT MAX(pool_started_at) FROM squares_payouts WHERE chat_id = $1
		)
		ORDER BY round
	`, chatID)
}

// GetWinsByUser returns the rounds a user won, newest first.
func (r *SquaresRepository) GetWinsByUser(ctx context.Context, userID int64, limit int) ([]*model.SquaresPayout, error) {
	return r.list(ctx, `
		SELECT `+squaresColumns+`
		FROM squares_payouts
		WHERE winner_id = $1 AND NOT is_rollover AND NOT unclaimed
		ORDER BY created_at DESC, round DESC
		LIMIT $2
	`, userID, limit)
}
