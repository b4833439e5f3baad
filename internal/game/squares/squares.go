// Package squares implements a 10x10 football squares pool.
//
// Players claim cells on the board while it is open. When the host locks
// the pool, a digit 0-9 is drawn for every row (home score) and every column
// (away score). After each quarter the host records the score; the cell at
// the last digits of the two scores wins that round. Rounds without an owner
// roll over through the payout resolver.
package squares

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"squares-bot/internal/game/payout"
	"squares-bot/internal/pkg/fairrand"
)

// BoardSize is the number of rows and columns on the board.
const BoardSize = 10

// Errors for the squares pool.
var (
	ErrPoolLocked    = errors.New("pool is locked")
	ErrCellTaken     = errors.New("square already claimed")
	ErrNotLocked     = errors.New("pool is not locked yet")
	ErrPoolComplete  = errors.New("all rounds have been scored")
	ErrInvalidCell   = errors.New("row and column must be between 0 and 9")
	ErrNotHost       = errors.New("only the host can do that")
	ErrPoolExists    = errors.New("a pool is already running in this chat")
	ErrNoActivePool  = errors.New("no active pool in this chat")
	ErrNotOwner      = errors.New("square is not yours")
	ErrSquareLimit   = errors.New("square limit reached")
	ErrEmptyPool     = errors.New("no squares have been claimed")
	ErrInvalidScore  = errors.New("score must not be negative")
	ErrRoundsPending = errors.New("not every round has been scored")
	ErrInvalidPrice  = errors.New("square price must be positive")
)

// Cell addresses a square on the board.
type Cell struct {
	Row int
	Col int
}

func (c Cell) valid() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Owner is the player holding a square.
type Owner struct {
	UserID   int64
	Username string
}

// RoundScore is a recorded score and the cell it selected.
type RoundScore struct {
	Round  payout.Round
	Home   int
	Away   int
	Cell   Cell
	Winner *Owner // nil when the cell was never claimed
}

// Pool is one squares board. All methods are safe for concurrent use.
type Pool struct {
	ChatID     int64
	HostID     int64
	Price      int64
	MaxPerUser int
	CreatedAt  time.Time

	board     [BoardSize][BoardSize]*Owner
	perUser   map[int64]int
	claimed   int
	locked    bool
	cancelled bool
	settling  bool
	settled   bool
	rowDigits []int
	colDigits []int
	rounds    []RoundScore
	mu        sync.RWMutex
}

// NewPool creates an open pool. maxPerUser <= 0 means no limit.
func NewPool(chatID, hostID, price int64, maxPerUser int) (*Pool, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	return &Pool{
		ChatID:     chatID,
		HostID:     hostID,
		Price:      price,
		MaxPerUser: maxPerUser,
		CreatedAt:  time.Now(),
		perUser:    make(map[int64]int),
	}, nil
}

// Claim gives the square at cell to the player.
func (p *Pool) Claim(userID int64, username string, cell Cell) error {
	if !cell.valid() {
		return ErrInvalidCell
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelled {
		return ErrNoActivePool
	}
	if p.locked {
		return ErrPoolLocked
	}
	if p.board[cell.Row][cell.Col] != nil {
		return ErrCellTaken
	}
	if p.MaxPerUser > 0 && p.perUser[userID] >= p.MaxPerUser {
		return fmt.Errorf("%w: %d per player", ErrSquareLimit, p.MaxPerUser)
	}

	p.board[cell.Row][cell.Col] = &Owner{UserID: userID, Username: username}
	p.perUser[userID]++
	p.claimed++
	return nil
}

// Release gives a claimed square back. Only its owner may release it.
func (p *Pool) Release(userID int64, cell Cell) error {
	if !cell.valid() {
		return ErrInvalidCell
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelled {
		return ErrNoActivePool
	}
	if p.locked {
		return ErrPoolLocked
	}
	o := p.board[cell.Row][cell.Col]
	if o == nil || o.UserID != userID {
		return ErrNotOwner
	}

	p.board[cell.Row][cell.Col] = nil
	p.perUser[userID]--
	if p.perUser[userID] == 0 {
		delete(p.perUser, userID)
	}
	p.claimed--
	return nil
}

// Lock closes the board and draws the row and column digits from src.
// A nil src uses fairrand.Default. The pool stays open on error.
func (p *Pool) Lock(userID int64, src fairrand.Source) error {
	if src == nil {
		src = fairrand.Default
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if userID != p.HostID {
		return ErrNotHost
	}
	if p.cancelled {
		return ErrNoActivePool
	}
	if p.locked {
		return ErrPoolLocked
	}
	if p.claimed == 0 {
		return ErrEmptyPool
	}

	rows, err := fairrand.Shuffle(src, BoardSize)
	if err != nil {
		return fmt.Errorf("draw row digits: %w", err)
	}
	cols, err := fairrand.Shuffle(src, BoardSize)
	if err != nil {
		return fmt.Errorf("draw column digits: %w", err)
	}

	p.rowDigits = rows
	p.colDigits = cols
	p.locked = true
	return nil
}

// Cancel stops an unlocked pool from taking claims and returns the squares
// to refund. Reopen undoes it if the refund could not be made.
func (p *Pool) Cancel() (map[Cell]Owner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelled {
		return nil, ErrNoActivePool
	}
	if p.locked {
		return nil, ErrPoolLocked
	}
	p.cancelled = true
	return p.entriesLocked(), nil
}

// Reopen reverses Cancel.
func (p *Pool) Reopen() {
	p.mu.Lock()
	p.cancelled = false
	p.mu.Unlock()
}

// BeginSettle reserves the payout of a complete pool for one caller. Every
// other caller gets ErrPoolComplete until EndSettle(false) releases it.
func (p *Pool) BeginSettle() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.rounds) < payout.NumRounds {
		return ErrRoundsPending
	}
	if p.settling || p.settled {
		return ErrPoolComplete
	}
	p.settling = true
	return nil
}

// EndSettle ends a payout started by BeginSettle. A pool that was not paid
// can be settled again.
func (p *Pool) EndSettle(paid bool) {
	p.mu.Lock()
	p.settling = false
	p.settled = paid
	p.mu.Unlock()
}

// RecordScore records the score at the end of the next round and returns
// the selected cell and its owner.
func (p *Pool) RecordScore(userID int64, home, away int) (RoundScore, error) {
	if home < 0 || away < 0 {
		return RoundScore{}, ErrInvalidScore
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if userID != p.HostID {
		return RoundScore{}, ErrNotHost
	}
	if !p.locked {
		return RoundScore{}, ErrNotLocked
	}
	if len(p.rounds) >= payout.NumRounds {
		return RoundScore{}, ErrPoolComplete
	}

	cell := Cell{
		Row: indexOf(p.rowDigits, home%10),
		Col: indexOf(p.colDigits, away%10),
	}
	rs := RoundScore{
		Round: payout.Round(len(p.rounds)),
		Home:  home,
		Away:  away,
		Cell:  cell,
	}
	if o := p.board[cell.Row][cell.Col]; o != nil {
		owner := *o
		rs.Winner = &owner
	}
	p.rounds = append(p.rounds, rs)
	return rs, nil
}

func indexOf(digits []int, d int) int {
	for i, v := range digits {
		if v == d {
			return i
		}
	}
	return -1
}

// Pot returns the total staked: claimed squares times the price.
func (p *Pool) Pot() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int64(p.claimed) * p.Price
}

// Claimed returns the number of claimed squares.
func (p *Pool) Claimed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.claimed
}

// Locked reports whether the digits have been drawn.
func (p *Pool) Locked() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.locked
}

// Complete reports whether every round has been scored.
func (p *Pool) Complete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rounds) == payout.NumRounds
}

// Rounds returns the scores recorded so far.
func (p *Pool) Rounds() []RoundScore {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]RoundScore(nil), p.rounds...)
}

// Digits returns the drawn row and column digits, or nil before Lock.
func (p *Pool) Digits() (rows, cols []int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.locked {
		return nil, nil
	}
	return append([]int(nil), p.rowDigits...), append([]int(nil), p.colDigits...)
}

// OwnerAt returns the owner of cell, or nil.
func (p *Pool) OwnerAt(cell Cell) *Owner {
	if !cell.valid() {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if o := p.board[cell.Row][cell.Col]; o != nil {
		owner := *o
		return &owner
	}
	return nil
}

// SquaresOf returns the cells held by userID in board order.
func (p *Pool) SquaresOf(userID int64) []Cell {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var cells []Cell
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if o := p.board[r][c]; o != nil && o.UserID == userID {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

// Entries returns a copy of every claimed square with its owner.
func (p *Pool) Entries() map[Cell]Owner {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entriesLocked()
}

func (p *Pool) entriesLocked() map[Cell]Owner {
	out := make(map[Cell]Owner, p.claimed)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if o := p.board[r][c]; o != nil {
				out[Cell{Row: r, Col: c}] = *o
			}
		}
	}
	return out
}
