package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squares-bot/internal/model"
)

func TestCreditQueue(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger(map[int64]int64{1: 0, 2: 0})
	q := NewCreditQueue()

	n, err := q.Flush(ctx, ledger, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	win := Credit{UserID: 1, Amount: 200, Type: model.TxTypeBauCuaWin}
	ledger.failNext = true
	ledger.creditErr = errors.New("db down")
	_, err = q.Flush(ctx, ledger, []Credit{win})
	require.Error(t, err)
	assert.Len(t, q.Pending(), 1)
	assert.Equal(t, []Credit{win}, q.Pending())
	assert.Zero(t, ledger.balances[1])

	// The next round pays what is owed along with its own credits.
	next := Credit{UserID: 2, Amount: 300, Type: model.TxTypeBauCuaWin}
	n, err = q.Flush(ctx, ledger, []Credit{next})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, q.Pending())
	assert.Equal(t, int64(200), ledger.balances[1])
	assert.Equal(t, int64(300), ledger.balances[2])

	// Nothing is paid twice.
	n, err = q.Flush(ctx, ledger, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(200), ledger.balances[1])
}

func TestCreditQueue_FailedFlushKeepsEverything(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger(map[int64]int64{})
	q := NewCreditQueue()

	q.Push(Credit{UserID: 1, Amount: 10})
	q.Push()
	ledger.failNext = true
	ledger.creditErr = errors.New("db down")

	_, err := q.Flush(ctx, ledger, []Credit{{UserID: 2, Amount: 20}})
	require.Error(t, err)
	assert.Equal(t, []Credit{{UserID: 1, Amount: 10}, {UserID: 2, Amount: 20}}, q.Pending())
}
