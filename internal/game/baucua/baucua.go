// Package baucua implements Bầu Cua Tôm Cá, the Vietnamese three-dice
// animal game, as a per-chat multiplayer session.
//
// Players bet on animals during a betting window. When the session settles,
// three dice are thrown with a crypto/rand backed Roller. Every die showing
// an animal pays the stake once more; a bet with no matching die is lost.
package baucua

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultBettingDuration is the betting window in seconds.
const DefaultBettingDuration = 60

// Errors for the Bầu Cua game.
var (
	ErrNoActiveSession = errors.New("no active session in this chat")
	ErrSessionExists   = errors.New("session already exists in this chat")
	ErrBettingEnded    = errors.New("betting phase has ended")
	ErrInvalidAmount   = errors.New("bet amount must be positive")
)

// Bet is the accumulated stake of one player on one animal.
type Bet struct {
	UserID int64
	Symbol Symbol
	Amount int64
}

// Session is an active game in a chat.
type Session struct {
	ChatID         int64
	StartTime      time.Time
	BettingEndTime time.Time
	Bets           map[int64]map[Symbol]*Bet
	Settled        bool
	mu             sync.RWMutex
}

// PlayerResult is one player's outcome after settlement.
type PlayerResult struct {
	UserID   int64
	Username string
	TotalBet int64
	Net      int64 // winnings minus losses
	Credit   int64 // stake returned plus winnings
}

// Settlement is the revealed roll and what every player is owed.
type Settlement struct {
	ChatID  int64
	Roll    Roll
	Symbols [NumDice]Symbol
	Players map[int64]*PlayerResult
}

// Game holds one session per chat.
type Game struct {
	sessions map[int64]*Session
	roller   *Roller
	mu       sync.RWMutex
}

// New creates a Game. A nil roller uses the crypto/rand default.
func New(roller *Roller) *Game {
	if roller == nil {
		roller = defaultRoller
	}
	return &Game{
		sessions: make(map[int64]*Session),
		roller:   roller,
	}
}

// Name returns the game's display name.
func (g *Game) Name() string { return "Bầu Cua" }

// Command returns the command that opens a session.
func (g *Game) Command() string { return "baucua" }

// Description returns a one-line rule summary.
func (g *Game) Description() string {
	return "Bet on animals, three dice are thrown. Each matching die pays your stake again."
}

// StartSession opens a betting window of duration seconds in chatID.
func (g *Game) StartSession(ctx context.Context, chatID int64, duration int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if s, ok := g.sessions[chatID]; ok && !s.Settled {
		return ErrSessionExists
	}
	if duration <= 0 {
		duration = DefaultBettingDuration
	}

	now := time.Now()
	g.sessions[chatID] = &Session{
		ChatID:         chatID,
		StartTime:      now,
		BettingEndTime: now.Add(time.Duration(duration) * time.Second),
		Bets:           make(map[int64]map[Symbol]*Bet),
	}
	return nil
}

func (g *Game) activeSession(chatID int64) (*Session, error) {
	g.mu.RLock()
	s, ok := g.sessions[chatID]
	g.mu.RUnlock()

	if !ok || s.Settled {
		return nil, ErrNoActiveSession
	}
	return s, nil
}

// PlaceBet adds amount to userID's stake on symbol.
// Repeated bets on the same animal accumulate.
func (g *Game) PlaceBet(ctx context.Context, chatID, userID int64, symbol Symbol, amount int64) error {
	s, err := g.activeSession(chatID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Settled {
		return ErrNoActiveSession
	}
	if time.Now().After(s.BettingEndTime) {
		return ErrBettingEnded
	}
	if !symbol.Valid() {
		return ErrUnknownSymbol
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if s.Bets[userID] == nil {
		s.Bets[userID] = make(map[Symbol]*Bet)
	}
	if b, ok := s.Bets[userID][symbol]; ok {
		b.Amount += amount
		return nil
	}
	s.Bets[userID][symbol] = &Bet{UserID: userID, Symbol: symbol, Amount: amount}
	return nil
}

// GetSessionBets returns a copy of the stakes: userID -> animal -> amount.
func (g *Game) GetSessionBets(ctx context.Context, chatID int64) (map[int64]map[Symbol]int64, error) {
	s, err := g.activeSession(chatID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]map[Symbol]int64, len(s.Bets))
	for userID, bets := range s.Bets {
		out[userID] = make(map[Symbol]int64, len(bets))
		for sym, b := range bets {
			out[userID][sym] = b.Amount
		}
	}
	return out, nil
}

// Settle throws the dice and closes the session.
//
// If the dice cannot be thrown the session stays open with every bet in
// place and the error is returned; no result is ever invented.
func (g *Game) Settle(ctx context.Context, chatID int64) (*Settlement, error) {
	s, err := g.activeSession(chatID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Settled {
		return nil, ErrNoActiveSession
	}

	roll, err := g.roller.Roll()
	if err != nil {
		return nil, err
	}
	return g.settleLocked(s, roll)
}

// SettleWithRoll settles the session with a fixed roll (for testing).
func (g *Game) SettleWithRoll(ctx context.Context, chatID int64, roll Roll) (*Settlement, error) {
	s, err := g.activeSession(chatID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Settled {
		return nil, ErrNoActiveSession
	}
	return g.settleLocked(s, roll)
}

func (g *Game) settleLocked(s *Session, roll Roll) (*Settlement, error) {
	symbols, err := DecodeToSymbols(roll)
	if err != nil {
		return nil, err
	}

	result := &Settlement{
		ChatID:  s.ChatID,
		Roll:    roll,
		Symbols: symbols,
		Players: make(map[int64]*PlayerResult, len(s.Bets)),
	}
	for userID, bets := range s.Bets {
		pr := &PlayerResult{UserID: userID}
		for _, b := range bets {
			pr.TotalBet += b.Amount
			pr.Net += CalculatePayout(b.Symbol, roll, b.Amount)
			pr.Credit += CalculateCredit(b.Symbol, roll, b.Amount)
		}
		result.Players[userID] = pr
	}
	s.Settled = true

	g.mu.Lock()
	if g.sessions[s.ChatID] == s {
		delete(g.sessions, s.ChatID)
	}
	g.mu.Unlock()

	return result, nil
}

// IsSessionActive reports whether chatID has an unsettled session.
func (g *Game) IsSessionActive(chatID int64) bool {
	_, err := g.activeSession(chatID)
	return err == nil
}

// Active reports whether chatID has an unsettled session.
func (g *Game) Active(chatID int64) bool { return g.IsSessionActive(chatID) }

// GetSessionTimeRemaining returns whole seconds left in the betting window.
func (g *Game) GetSessionTimeRemaining(chatID int64) int {
	s, err := g.activeSession(chatID)
	if err != nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	remaining := time.Until(s.BettingEndTime)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// GetSessionStats returns the number of players, total staked and bet count.
func (g *Game) GetSessionStats(chatID int64) (playerCount int, totalBetAmount int64, betCount int) {
	s, err := g.activeSession(chatID)
	if err != nil {
		return 0, 0, 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	playerCount = len(s.Bets)
	for _, bets := range s.Bets {
		for _, b := range bets {
			totalBetAmount += b.Amount
			betCount++
		}
	}
	return playerCount, totalBetAmount, betCount
}
