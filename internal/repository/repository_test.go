package repository

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"squares-bot/internal/model"
	"squares-bot/internal/pkg/db"
)

func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupTestDB starts a PostgreSQL container with the bot's schema.
// The test is skipped when Docker is not available.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func TestUserRepository(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		user, err := repo.Create(ctx, 1, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, model.InitialBalance, user.Balance)
		assert.Zero(t, user.LastDailyClaim)

		got, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, user.TelegramID, got.TelegramID)

		_, err = repo.GetByID(ctx, 999)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("get or create", func(t *testing.T) {
		_, created, err := repo.GetOrCreate(ctx, 2, "bob")
		require.NoError(t, err)
		assert.True(t, created)

		user, created, err := repo.GetOrCreate(ctx, 2, "bob")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(2), user.TelegramID)
	})

	t.Run("update balance and debit", func(t *testing.T) {
		user, err := repo.UpdateBalance(ctx, 1, 500)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), user.Balance)

		user, err = repo.Debit(ctx, 1, 1500)
		require.NoError(t, err)
		assert.Zero(t, user.Balance)

		_, err = repo.Debit(ctx, 1, 1)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		_, err = repo.Debit(ctx, 999, 1)
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.UpdateBalance(ctx, 999, 1)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("top users", func(t *testing.T) {
		_, err := repo.Create(ctx, 3, "carol")
		require.NoError(t, err)
		_, err = repo.UpdateBalance(ctx, 3, 5000)
		require.NoError(t, err)

		top, err := repo.GetTopUsers(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, int64(3), top[0].TelegramID)
		assert.GreaterOrEqual(t, top[0].Balance, top[1].Balance)
	})

	t.Run("daily claim", func(t *testing.T) {
		ok, _, err := repo.CanClaimDaily(ctx, 2, 24)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = repo.UpdateDailyClaim(ctx, 2, time.Now().Unix())
		require.NoError(t, err)

		ok, remaining, err := repo.CanClaimDaily(ctx, 2, 24)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Greater(t, remaining, 23*time.Hour)
	})

	t.Run("update username", func(t *testing.T) {
		require.NoError(t, repo.UpdateUsername(ctx, 2, "bobby"))
		user, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "bobby", user.Username)
		assert.ErrorIs(t, repo.UpdateUsername(ctx, 999, "x"), ErrUserNotFound)
	})
}

func TestTransactionRepository(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserRepository(pool)
	txs := NewTransactionRepository(pool)
	ctx := context.Background()

	for id, name := range map[int64]string{1: "alice", 2: "bob", 3: "carol"} {
		_, err := users.Create(ctx, id, name)
		require.NoError(t, err)
	}

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	desc := "Bầu Cua stake"
	mustCreate := func(user, amount int64, typ string, at time.Time) {
		_, err := txs.CreateWithTime(ctx, user, amount, typ, &desc, at)
		require.NoError(t, err)
	}

	mustCreate(1, -100, model.TxTypeBauCuaBet, now)
	mustCreate(1, 400, model.TxTypeBauCuaWin, now)
	mustCreate(2, -50, model.TxTypeSquaresEntry, now)
	mustCreate(3, -300, model.TxTypeBauCuaBet, now)
	mustCreate(3, 500, model.TxTypeDaily, now)
	mustCreate(2, 9999, model.TxTypeSquaresPayout, yesterday)

	t.Run("by user", func(t *testing.T) {
		list, err := txs.GetByUserID(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(400), list[0].Amount)
		require.NotNil(t, list[0].Description)
		assert.Equal(t, desc, *list[0].Description)
	})

	t.Run("daily stats exclude rewards and other days", func(t *testing.T) {
		stats, err := txs.GetDailyStats(ctx, now)
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.Equal(t, int64(1), stats[0].UserID)
		assert.Equal(t, int64(300), stats[0].NetProfit)
		assert.Equal(t, int64(-300), stats[2].NetProfit)
	})

	t.Run("winners and losers", func(t *testing.T) {
		winners, err := txs.GetDailyWinners(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, winners, 1)
		assert.Equal(t, "alice", winners[0].Username)

		losers, err := txs.GetDailyLosers(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, losers, 2)
		assert.Equal(t, int64(3), losers[0].UserID)
		assert.Equal(t, int64(2), losers[1].UserID)
	})

	t.Run("user profit", func(t *testing.T) {
		profit, err := txs.GetUserDailyProfit(ctx, 3, now)
		require.NoError(t, err)
		assert.Equal(t, int64(-300), profit)

		profit, err = txs.GetUserDailyProfit(ctx, 2, yesterday)
		require.NoError(t, err)
		assert.Equal(t, int64(9999), profit)
	})
}

func TestSquaresRepository(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserRepository(pool)
	repo := NewSquaresRepository(pool)
	ctx := context.Background()

	_, err := users.Create(ctx, 1, "alice")
	require.NoError(t, err)

	started := time.Now().UTC().Truncate(time.Microsecond)
	winner := int64(1)
	rounds := []model.SquaresPayout{
		{ChatID: -100, PoolStartedAt: started, Round: 0, HomeScore: 0, AwayScore: 0, IsRollover: true, BaseAmount: 19},
		{ChatID: -100, PoolStartedAt: started, Round: 1, HomeScore: 7, AwayScore: 3, IsRollover: true, BaseAmount: 38},
		{ChatID: -100, PoolStartedAt: started, Round: 2, HomeScore: 14, AwayScore: 10, CellRow: 2, CellCol: 5,
			WinnerID: &winner, BaseAmount: 38, DisplayAmount: 61.75, Coins: 62},
		{ChatID: -100, PoolStartedAt: started, Round: 3, HomeScore: 21, AwayScore: 17, CellRow: 4, CellCol: 1,
			WinnerID: &winner, BaseAmount: 95, DisplayAmount: 128.25, Coins: 128},
	}
	require.NoError(t, repo.SaveRounds(ctx, rounds))
	require.NoError(t, repo.SaveRounds(ctx, nil))

	none, err := repo.LastPool(ctx, -200)
	require.NoError(t, err)
	assert.Empty(t, none)

	older := started.Add(-time.Hour)
	require.NoError(t, repo.SaveRounds(ctx, []model.SquaresPayout{
		{ChatID: -100, PoolStartedAt: older, Round: 0, IsRollover: true},
	}))

	got, err := repo.LastPool(ctx, -100)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[0].IsRollover)
	assert.Nil(t, got[0].WinnerID)
	assert.InDelta(t, 61.75, got[2].DisplayAmount, 1e-9)
	assert.Equal(t, int64(128), got[3].Coins)

	wins, err := repo.GetWinsByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, wins, 2)
	assert.Equal(t, 3, wins[0].Round)

	// A pool is stored once.
	assert.Error(t, repo.SaveRounds(ctx, rounds[:1]))
}

func TestRepositoriesInsideTransaction(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := NewUserRepository(pool).Create(ctx, 1, "alice")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := NewUserRepository(tx).UpdateBalance(ctx, 1, 250); err != nil {
			return err
		}
		if _, err := NewTransactionRepository(tx).Create(ctx, 1, 250, model.TxTypeSquaresPayout, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	user, err := NewUserRepository(pool).GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.InitialBalance, user.Balance)

	list, err := NewTransactionRepository(pool).GetByUserID(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
