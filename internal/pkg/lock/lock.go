// Package lock provides per-key mutexes for balance changes.
//
// A key is a Telegram user id. Claims, bets and payouts that touch the same
// balance are serialised on it; different users never block each other.
package lock

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	ch   chan struct{} // one token: held while locked
	refs int           // holders plus waiters
}

// UserLock is a set of mutexes keyed by user id. Idle entries are dropped.
type UserLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{entries: make(map[int64]*entry)}
}

func (ul *UserLock) acquire(userID int64) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	e, ok := ul.entries[userID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		ul.entries[userID] = e
	}
	e.refs++
	return e
}

func (ul *UserLock) release(userID int64, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(ul.entries, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID int64) {
	e := ul.acquire(userID)
	e.ch <- struct{}{}
}

// Unlock releases the user's lock. Unlocking a key that is not held panics,
// like sync.Mutex.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	e, ok := ul.entries[userID]
	ul.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked user")
	}

	select {
	case <-e.ch:
	default:
		panic("lock: unlock of unlocked user")
	}
	ul.release(userID, e)
}

// TryLock acquires the lock only if it is free.
func (ul *UserLock) TryLock(userID int64) bool {
	e := ul.acquire(userID)
	select {
	case e.ch <- struct{}{}:
		return true
	default:
		ul.release(userID, e)
		return false
	}
}

// LockContext waits for the lock until ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	e := ul.acquire(userID)
	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.release(userID, e)
		return ctx.Err()
	}
}

// WithLock runs fn while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockTimeout runs fn while holding the user's lock, waiting at most
// timeout for it. It returns ErrLockTimeout when the wait runs out.
func (ul *UserLock) WithLockTimeout(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ul.LockContext(waitCtx, userID); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLockTimeout
	}
	defer ul.Unlock(userID)
	return fn()
}
