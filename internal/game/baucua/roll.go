package baucua

import (
	"fmt"

	"squares-bot/internal/pkg/fairrand"
)

// NumDice is the number of dice thrown each round.
const NumDice = 3

// Roll is the raw outcome of one throw: a face index in [0, NumFaces) per die.
type Roll [NumDice]int

// Roller throws the three dice. It accepts no seed.
type Roller struct {
	src fairrand.Source
}

// NewRoller returns a Roller drawing from src.
// A nil src uses the crypto/rand backed default.
func NewRoller(src fairrand.Source) *Roller {
	if src == nil {
		src = fairrand.Default
	}
	return &Roller{src: src}
}

// Roll throws three independent dice.
// If the entropy source fails no partial result is returned.
func (r *Roller) Roll() (Roll, error) {
	var out Roll
	for i := range out {
		v, err := r.src.Intn(NumFaces)
		if err != nil {
			return Roll{}, fmt.Errorf("roll die %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

var defaultRoller = NewRoller(nil)

// RollDice throws three dice using crypto/rand.
func RollDice() (Roll, error) {
	return defaultRoller.Roll()
}

// Valid reports whether every face index is in range.
func (r Roll) Valid() bool {
	for _, v := range r {
		if v < 0 || v >= NumFaces {
			return false
		}
	}
	return true
}

// DecodeToSymbols maps each face index through the symbol table.
func DecodeToSymbols(r Roll) ([NumDice]Symbol, error) {
	var out [NumDice]Symbol
	for i, v := range r {
		s, err := FaceToSymbol(v)
		if err != nil {
			return out, err
		}
		out[i] = s
	}
	return out, nil
}

// Count returns how many dice show s.
func (r Roll) Count(s Symbol) int {
	n := 0
	for _, v := range r {
		if v == int(s) {
			n++
		}
	}
	return n
}
