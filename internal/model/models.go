// Package model defines the records stored by the bot.
package model

import (
	"slices"
	"time"
)

// InitialBalance is credited to every new account.
const InitialBalance int64 = 1000

// User is a Telegram user account.
type User struct {
	TelegramID     int64     `db:"telegram_id"`
	Username       string    `db:"username"`
	Balance        int64     `db:"balance"`
	LastDailyClaim int64     `db:"last_daily_claim"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Transaction is one balance change.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// DailyRank is a user's net game result for one day.
type DailyRank struct {
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	NetProfit int64  `db:"net_profit"`
}

// SquaresPayout is one resolved round of a squares pool.
type SquaresPayout struct {
	ID            int64     `db:"id"`
	ChatID        int64     `db:"chat_id"`
	PoolStartedAt time.Time `db:"pool_started_at"`
	Round         int       `db:"round"`
	HomeScore     int       `db:"home_score"`
	AwayScore     int       `db:"away_score"`
	CellRow       int       `db:"cell_row"`
	CellCol       int       `db:"cell_col"`
	WinnerID      *int64    `db:"winner_id"`
	BaseAmount    float64   `db:"base_amount"`
	DisplayAmount float64   `db:"display_amount"`
	Coins         int64     `db:"coins"`
	IsRollover    bool      `db:"is_rollover"`
	Unclaimed     bool      `db:"unclaimed"`
	CreatedAt     time.Time `db:"created_at"`
}

// Transaction types.
const (
	TxTypeInitial       = "initial"
	TxTypeDaily         = "daily"
	TxTypeBauCuaBet     = "baucua_bet"     // stake taken when the bet is placed
	TxTypeBauCuaWin     = "baucua_win"     // stake plus winnings at settlement
	TxTypeSquaresEntry  = "squares_entry"  // square price
	TxTypeSquaresPayout = "squares_payout" // round award
	TxTypeSquaresRefund = "squares_refund" // released square, cancelled pool or unclaimed final
	TxTypeAdminAdd      = "admin_add"
	TxTypeAdminSub      = "admin_sub"
)

var gameTransactionTypes = []string{
	TxTypeBauCuaBet,
	TxTypeBauCuaWin,
	TxTypeSquaresEntry,
	TxTypeSquaresPayout,
	TxTypeSquaresRefund,
}

// GameTransactionTypes returns the transaction types counted by the daily
// rankings. Daily rewards are excluded.
func GameTransactionTypes() []string {
	return slices.Clone(gameTransactionTypes)
}

// IsGameTransaction reports whether txType counts towards daily rankings.
func IsGameTransaction(txType string) bool {
	return slices.Contains(gameTransactionTypes, txType)
}
