package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"squares-bot/internal/game/payout"
	"squares-bot/internal/game/squares"
	"squares-bot/internal/model"
	"squares-bot/internal/pkg/fairrand"
	"squares-bot/internal/pkg/lock"
)

// ErrPriceTooHigh is returned when a host asks for more than the configured
// maximum square price.
var ErrPriceTooHigh = errors.New("square price above the limit")

// Ledger moves coins for the squares pool.
type Ledger interface {
	Debit(ctx context.Context, userID int64, amount int64, txType string, description string) (*model.User, error)
	CreditMany(ctx context.Context, credits []Credit) error
}

// PayoutStore keeps the history of resolved pools.
type PayoutStore interface {
	SaveRounds(ctx context.Context, rounds []model.SquaresPayout) error
}

// SquaresConfig bounds the pools hosts may open.
type SquaresConfig struct {
	MaxPrice   int64
	MaxPerUser int
}

// SquaresService runs squares pools and keeps balances in step with them.
// Entry fees are taken when a square is claimed and the pot is paid out
// when the final score is recorded.
type SquaresService struct {
	pools    *squares.Manager
	ledger   Ledger
	store    PayoutStore
	userLock *lock.UserLock
	src      fairrand.Source
	cfg      SquaresConfig
}

// NewSquaresService creates a SquaresService. A nil src draws digits from
// crypto/rand.
func NewSquaresService(pools *squares.Manager, ledger Ledger, store PayoutStore, userLock *lock.UserLock, src fairrand.Source, cfg SquaresConfig) *SquaresService {
	if src == nil {
		src = fairrand.Default
	}
	return &SquaresService{
		pools:    pools,
		ledger:   ledger,
		store:    store,
		userLock: userLock,
		src:      src,
		cfg:      cfg,
	}
}

// Pools returns the underlying pool manager.
func (s *SquaresService) Pools() *squares.Manager { return s.pools }

// Open starts a pool in chatID hosted by hostID.
func (s *SquaresService) Open(ctx context.Context, chatID, hostID, price int64) (*squares.Pool, error) {
	if s.cfg.MaxPrice > 0 && price > s.cfg.MaxPrice {
		return nil, fmt.Errorf("%w: max %d", ErrPriceTooHigh, s.cfg.MaxPrice)
	}
	p, err := s.pools.Create(chatID, hostID, price, s.cfg.MaxPerUser)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("chat_id", chatID).Int64("host_id", hostID).Int64("price", price).Msg("Squares pool opened")
	return p, nil
}

// Claim charges the square price and gives the square to the user. The
// charge is refunded if the square cannot be claimed.
func (s *SquaresService) Claim(ctx context.Context, chatID, userID int64, username string, cell squares.Cell) (*squares.Pool, error) {
	p, err := s.pools.Get(chatID)
	if err != nil {
		return nil, err
	}
	if p.Locked() {
		return nil, squares.ErrPoolLocked
	}

	s.userLock.Lock(userID)
	defer s.userLock.Unlock(userID)

	desc := fmt.Sprintf("Squares %s", cell)
	if _, err := s.ledger.Debit(ctx, userID, p.Price, model.TxTypeSquaresEntry, desc); err != nil {
		return nil, err
	}

	if err := p.Claim(userID, username, cell); err != nil {
		refund := []Credit{{UserID: userID, Amount: p.Price, Type: model.TxTypeSquaresRefund, Description: desc + " refund"}}
		if rerr := s.ledger.CreditMany(ctx, refund); rerr != nil {
			log.Error().Err(rerr).Int64("user_id", userID).Int64("amount", p.Price).Msg("Failed to refund rejected square")
		}
		return nil, err
	}

	log.Debug().Int64("chat_id", chatID).Int64("user_id", userID).Stringer("cell", cell).Msg("Square claimed")
	return p, nil
}

// Release gives a square back and refunds its price.
func (s *SquaresService) Release(ctx context.Context, chatID, userID int64, cell squares.Cell) error {
	p, err := s.pools.Get(chatID)
	if err != nil {
		return err
	}

	s.userLock.Lock(userID)
	defer s.userLock.Unlock(userID)

	if err := p.Release(userID, cell); err != nil {
		return err
	}

	refund := []Credit{{UserID: userID, Amount: p.Price, Type: model.TxTypeSquaresRefund, Description: fmt.Sprintf("Squares %s released", cell)}}
	if err := s.ledger.CreditMany(ctx, refund); err != nil {
		return fmt.Errorf("failed to refund square: %w", err)
	}
	return nil
}

// Lock closes the board and draws the digits.
func (s *SquaresService) Lock(ctx context.Context, chatID, userID int64) (*squares.Pool, error) {
	p, err := s.pools.Get(chatID)
	if err != nil {
		return nil, err
	}
	if err := p.Lock(userID, s.src); err != nil {
		return nil, err
	}

	rows, cols := p.Digits()
	log.Info().Int64("chat_id", chatID).Ints("rows", rows).Ints("cols", cols).Int64("pot", p.Pot()).Msg("Squares pool locked")
	return p, nil
}

// Cancel closes an unlocked pool and refunds every square.
func (s *SquaresService) Cancel(ctx context.Context, chatID, userID int64) (int, error) {
	p, err := s.pools.Get(chatID)
	if err != nil {
		return 0, err
	}
	if userID != p.HostID {
		return 0, squares.ErrNotHost
	}
	return s.cancel(ctx, p)
}

// ForceCancel cancels the unlocked pool in chatID whoever hosts it.
func (s *SquaresService) ForceCancel(ctx context.Context, chatID int64) (int, error) {
	p, err := s.pools.Get(chatID)
	if err != nil {
		return 0, err
	}
	return s.cancel(ctx, p)
}

func (s *SquaresService) cancel(ctx context.Context, p *squares.Pool) (int, error) {
	entries, err := p.Cancel()
	if err != nil {
		return 0, err
	}

	perUser := make(map[int64]int64)
	for _, o := range entries {
		perUser[o.UserID] += p.Price
	}
	credits := make([]Credit, 0, len(perUser))
	for id, amount := range perUser {
		credits = append(credits, Credit{UserID: id, Amount: amount, Type: model.TxTypeSquaresRefund, Description: "Squares pool cancelled"})
	}
	if err := s.ledger.CreditMany(ctx, credits); err != nil {
		p.Reopen()
		return 0, err
	}

	s.pools.Close(p.ChatID, p)
	log.Info().Int64("chat_id", p.ChatID).Int("squares", len(entries)).Msg("Squares pool cancelled")
	return len(entries), nil
}

// RecordScore records the next round. After the final round the pool is
// resolved, paid out and closed, and the result is returned. If paying out
// fails the pool stays open and the next call retries the payout.
func (s *SquaresService) RecordScore(ctx context.Context, chatID, userID int64, home, away int) (*squares.RoundScore, *squares.Result, error) {
	p, err := s.pools.Get(chatID)
	if err != nil {
		return nil, nil, err
	}
	if userID != p.HostID {
		return nil, nil, squares.ErrNotHost
	}

	var rs *squares.RoundScore
	if !p.Complete() {
		score, err := p.RecordScore(userID, home, away)
		if err != nil {
			return nil, nil, err
		}
		rs = &score
		log.Info().Int64("chat_id", chatID).Stringer("round", score.Round).Int("home", home).Int("away", away).
			Stringer("cell", score.Cell).Bool("winner", score.Winner != nil).Msg("Squares round scored")

		if !p.Complete() {
			return rs, nil, nil
		}
	}

	res, err := s.settle(ctx, p)
	if err != nil {
		if rs != nil && errors.Is(err, squares.ErrPoolComplete) {
			// Another caller is already paying this pool out.
			return rs, nil, nil
		}
		return rs, nil, err
	}
	return rs, res, nil
}

func (s *SquaresService) settle(ctx context.Context, p *squares.Pool) (*squares.Result, error) {
	if err := p.BeginSettle(); err != nil {
		return nil, err
	}
	res, err := p.Resolve()
	if err != nil {
		p.EndSettle(false)
		return nil, err
	}

	credits := make([]Credit, 0, len(res.Awards)+len(res.Refunds))
	for _, a := range res.Awards {
		credits = append(credits, Credit{
			UserID:      a.Owner.UserID,
			Amount:      a.Amount,
			Type:        model.TxTypeSquaresPayout,
			Description: fmt.Sprintf("Squares %s win %s", a.Round, a.Cell),
		})
	}
	for id, amount := range res.Refunds {
		credits = append(credits, Credit{UserID: id, Amount: amount, Type: model.TxTypeSquaresRefund, Description: "Squares unclaimed final"})
	}
	if err := s.ledger.CreditMany(ctx, credits); err != nil {
		p.EndSettle(false)
		return nil, fmt.Errorf("failed to pay out pool: %w", err)
	}
	p.EndSettle(true)

	if err := s.store.SaveRounds(ctx, PayoutRecords(p, res)); err != nil {
		log.Error().Err(err).Int64("chat_id", p.ChatID).Msg("Failed to save squares history")
	}

	s.pools.Close(p.ChatID, p)
	log.Info().Int64("chat_id", p.ChatID).Int64("pot", res.Pot).Ints64("coins", res.Coins[:]).Msg("Squares pool settled")
	return res, nil
}

// PayoutRecords converts a result into history rows.
func PayoutRecords(p *squares.Pool, res *squares.Result) []model.SquaresPayout {
	out := make([]model.SquaresPayout, 0, payout.NumRounds)
	for r := payout.RoundFirst; r <= payout.RoundFinal; r++ {
		po := res.Schedule.Rounds[r]
		rs := res.Scores[r]

		row := model.SquaresPayout{
			ChatID:        p.ChatID,
			PoolStartedAt: p.CreatedAt,
			Round:         int(r),
			HomeScore:     rs.Home,
			AwayScore:     rs.Away,
			CellRow:       rs.Cell.Row,
			CellCol:       rs.Cell.Col,
			BaseAmount:    po.BaseAmount,
			DisplayAmount: po.DisplayAmount,
			Coins:         res.Coins[r],
			IsRollover:    po.IsRollover,
			Unclaimed:     po.Unclaimed,
		}
		if rs.Winner != nil {
			id := rs.Winner.UserID
			row.WinnerID = &id
		}
		out = append(out, row)
	}
	return out
}
