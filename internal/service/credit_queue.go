package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// CreditQueue holds credits that could not be paid so they can be paid
// later. It is safe for concurrent use.
type CreditQueue struct {
	mu      sync.Mutex
	pending []Credit
}

// NewCreditQueue creates an empty CreditQueue.
func NewCreditQueue() *CreditQueue {
	return &CreditQueue{}
}

// Push queues credits for a later Flush.
func (q *CreditQueue) Push(credits ...Credit) {
	if len(credits) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, credits...)
	q.mu.Unlock()
}

// Pending returns a copy of the queued credits.
func (q *CreditQueue) Pending() []Credit {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Credit(nil), q.pending...)
}

// Flush pays every queued credit together with extra in one transaction and
// returns how many queued credits were paid. On failure nothing is paid and
// extra joins the queue.
func (q *CreditQueue) Flush(ctx context.Context, ledger Ledger, extra []Credit) (int, error) {
	q.mu.Lock()
	queued := q.pending
	q.pending = nil
	q.mu.Unlock()

	all := make([]Credit, 0, len(queued)+len(extra))
	all = append(all, queued...)
	all = append(all, extra...)
	if len(all) == 0 {
		return 0, nil
	}

	if err := ledger.CreditMany(ctx, all); err != nil {
		q.Push(all...)
		log.Error().Err(err).Int("queued", len(all)).Msg("Credits kept for a later retry")
		return 0, err
	}

	if len(queued) > 0 {
		log.Info().Int("count", len(queued)).Msg("Queued credits paid")
	}
	return len(queued), nil
}
