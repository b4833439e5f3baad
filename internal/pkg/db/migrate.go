package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{"users table", `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 1000,
			last_daily_claim BIGINT DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance DESC);
	`},
	{"transactions table", `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_time ON transactions(type, created_at DESC);
	`},
	{"squares_payouts table", `
		CREATE TABLE IF NOT EXISTS squares_payouts (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			pool_started_at TIMESTAMPTZ NOT NULL,
			round SMALLINT NOT NULL CHECK (round BETWEEN 0 AND 3),
			home_score INT NOT NULL,
			away_score INT NOT NULL,
			cell_row SMALLINT NOT NULL,
			cell_col SMALLINT NOT NULL,
			winner_id BIGINT REFERENCES users(telegram_id) ON DELETE SET NULL,
			base_amount NUMERIC(14,2) NOT NULL,
			display_amount NUMERIC(14,2) NOT NULL,
			coins BIGINT NOT NULL,
			is_rollover BOOLEAN NOT NULL DEFAULT FALSE,
			unclaimed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (chat_id, pool_started_at, round)
		);
		CREATE INDEX IF NOT EXISTS idx_squares_payouts_winner ON squares_payouts(winner_id, created_at DESC);
	`},
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Int("count", len(migrations)).Msg("Running database migrations")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Debug().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("Migrations completed")
	return nil
}
