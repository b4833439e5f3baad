package squares

import (
	"fmt"

	"squares-bot/internal/game/payout"
)

// Award is the coins owed to one player for one round.
type Award struct {
	Round  payout.Round
	Owner  Owner
	Cell   Cell
	Amount int64
}

// Result is the closed-out pool.
type Result struct {
	Pot      int64
	Schedule payout.Schedule
	Coins    [payout.NumRounds]int64
	Scores   [payout.NumRounds]RoundScore
	Awards   []Award
	// Refunds holds the unclaimed final split across every square owner,
	// keyed by user id. Empty unless the final round had no winner.
	Refunds map[int64]int64
}

// Paid returns the coins credited to userID across awards and refunds.
func (r *Result) Paid(userID int64) int64 {
	var total int64
	for _, a := range r.Awards {
		if a.Owner.UserID == userID {
			total += a.Amount
		}
	}
	return total + r.Refunds[userID]
}

// Resolve computes the payout schedule once every round has been scored.
// It does not change the pool and may be called more than once.
func (p *Pool) Resolve() (*Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.locked {
		return nil, ErrNotLocked
	}
	if len(p.rounds) < payout.NumRounds {
		return nil, fmt.Errorf("%w: %d of %d", ErrRoundsPending, len(p.rounds), payout.NumRounds)
	}

	var hasWinner [payout.NumRounds]bool
	res := &Result{
		Pot:     int64(p.claimed) * p.Price,
		Refunds: make(map[int64]int64),
	}
	for i, rs := range p.rounds {
		res.Scores[i] = rs
		hasWinner[i] = rs.Winner != nil
	}

	sched, err := payout.Resolve(float64(res.Pot), hasWinner)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payouts: %w", err)
	}
	res.Schedule = sched
	res.Coins = sched.Coins()

	for i, rs := range res.Scores {
		if rs.Winner == nil || res.Coins[i] == 0 {
			continue
		}
		res.Awards = append(res.Awards, Award{
			Round:  rs.Round,
			Owner:  *rs.Winner,
			Cell:   rs.Cell,
			Amount: res.Coins[i],
		})
	}

	if sched.Rounds[payout.RoundFinal].Unclaimed {
		p.refundLocked(res.Coins[payout.RoundFinal], res.Refunds)
	}
	return res, nil
}

// refundLocked splits amount evenly per claimed square. The remainder goes
// one coin at a time to the first squares in board order.
func (p *Pool) refundLocked(amount int64, out map[int64]int64) {
	if amount <= 0 || p.claimed == 0 {
		return
	}

	share := amount / int64(p.claimed)
	extra := amount % int64(p.claimed)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			o := p.board[r][c]
			if o == nil {
				continue
			}
			n := share
			if extra > 0 {
				n++
				extra--
			}
			if n > 0 {
				out[o.UserID] += n
			}
		}
	}
}
