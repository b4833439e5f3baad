package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// held reports whether the user's lock is currently held.
func held(ul *UserLock, userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	return ok && len(e.ch) == 1
}

// size returns the number of keys with a holder or waiter.
func size(ul *UserLock) int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.entries)
}

// Concurrent read-modify-write under the lock ends at the sequential result.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		want := initial
		for _, a := range amounts {
			want += a
		}

		ul := NewUserLock()
		balance := initial

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					balance += amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if balance != want {
			t.Fatalf("balance %d, want %d", balance, want)
		}
		if size(ul) != 0 {
			t.Fatalf("%d idle entries left behind", size(ul))
		}
	})
}

// Locks for different users are independent.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := NewUserLock()
		balances := make([]int64, numUsers+1)

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for uid := 1; uid <= numUsers; uid++ {
			for j := 0; j < opsPerUser; j++ {
				go func(uid int) {
					defer wg.Done()
					ul.Lock(int64(uid))
					defer ul.Unlock(int64(uid))
					balances[uid] += 10
				}(uid)
			}
		}
		wg.Wait()

		for uid := 1; uid <= numUsers; uid++ {
			if balances[uid] != int64(opsPerUser)*10 {
				t.Fatalf("user %d balance %d, want %d", uid, balances[uid], opsPerUser*10)
			}
		}
	})
}

// At most one concurrent TryLock wins while the others back off.
func TestTryLockExclusiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		attempts := rapid.IntRange(5, 20).Draw(t, "attempts")

		ul := NewUserLock()
		var holders, maxHolders atomic.Int32
		var wg sync.WaitGroup
		wg.Add(attempts)
		start := make(chan struct{})

		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if ul.TryLock(userID) {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					ul.Unlock(userID)
				}
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() > 1 {
			t.Fatalf("%d holders at once", maxHolders.Load())
		}
		if !ul.TryLock(userID) {
			t.Fatal("lock should be free after all holders released")
		}
		ul.Unlock(userID)
	})
}

func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		cycles := rapid.IntRange(1, 50).Draw(t, "cycles")

		ul := NewUserLock()
		for i := 0; i < cycles; i++ {
			ul.Lock(userID)
			if !held(ul, userID) {
				t.Fatal("lock not reported held")
			}
			ul.Unlock(userID)
		}

		if held(ul, userID) || size(ul) != 0 {
			t.Fatal("lock should be released and dropped")
		}
	})
}

func TestWithLockTimeout(t *testing.T) {
	ul := NewUserLock()
	ctx := context.Background()

	ul.Lock(1)
	called := false
	err := ul.WithLockTimeout(ctx, 1, 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)
	ul.Unlock(1)

	sentinel := errors.New("boom")
	err = ul.WithLockTimeout(ctx, 1, time.Second, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, held(ul, 1))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	ul.Lock(2)
	err = ul.WithLockTimeout(cancelled, 2, time.Second, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	ul.Unlock(2)
	assert.Zero(t, size(ul))
}

func TestUnlockUnheldPanics(t *testing.T) {
	ul := NewUserLock()
	require.Panics(t, func() { ul.Unlock(9) })
}
