package baucua

import (
	"errors"
	"fmt"
	"strings"
)

// Symbol is one of the six animal faces on a Bầu Cua die.
type Symbol int

const (
	Gourd Symbol = iota
	Crab
	Shrimp
	Fish
	Rooster
	Deer
)

// NumFaces is the number of faces on each die.
const NumFaces = 6

// ErrInvalidFace is returned when a die index is outside [0, NumFaces).
var ErrInvalidFace = errors.New("die face must be between 0 and 5")

// ErrUnknownSymbol is returned when a bet names no known animal.
var ErrUnknownSymbol = errors.New("unknown animal")

type face struct {
	key   string
	local string
	emoji string
}

// symbolTable maps die index to animal. The order is fixed; dice indices
// decode through it and callback data refers to the keys.
var symbolTable = [NumFaces]face{
	{key: "gourd", local: "bau", emoji: "🍐"},
	{key: "crab", local: "cua", emoji: "🦀"},
	{key: "shrimp", local: "tom", emoji: "🦐"},
	{key: "fish", local: "ca", emoji: "🐟"},
	{key: "rooster", local: "ga", emoji: "🐓"},
	{key: "deer", local: "nai", emoji: "🦌"},
}

// Symbols lists every animal in table order.
var Symbols = []Symbol{Gourd, Crab, Shrimp, Fish, Rooster, Deer}

// Valid reports whether s is in the symbol table.
func (s Symbol) Valid() bool {
	return s >= 0 && int(s) < NumFaces
}

// String returns the animal key, e.g. "crab".
func (s Symbol) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Symbol(%d)", int(s))
	}
	return symbolTable[s].key
}

// Emoji returns the icon shown to players.
func (s Symbol) Emoji() string {
	if !s.Valid() {
		return "?"
	}
	return symbolTable[s].emoji
}

// Label returns the icon followed by the Vietnamese name, e.g. "🦀 Cua".
func (s Symbol) Label() string {
	if !s.Valid() {
		return s.String()
	}
	f := symbolTable[s]
	return f.emoji + " " + strings.ToUpper(f.local[:1]) + f.local[1:]
}

// FaceToSymbol decodes a single die index.
func FaceToSymbol(idx int) (Symbol, error) {
	if idx < 0 || idx >= NumFaces {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFace, idx)
	}
	return Symbol(idx), nil
}

// ParseSymbol accepts the English key ("crab") or the unaccented
// Vietnamese name ("cua"), case-insensitively.
func ParseSymbol(s string) (Symbol, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, f := range symbolTable {
		if s == f.key || s == f.local {
			return Symbol(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, s)
}
