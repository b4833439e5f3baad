package baucua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCalculatePayout(t *testing.T) {
	tests := []struct {
		name     string
		symbol   Symbol
		roll     Roll
		amount   int64
		expected int64
		credit   int64
	}{
		{"no match", Crab, Roll{0, 2, 3}, 100, -100, 0},
		{"one match", Crab, Roll{1, 2, 3}, 100, 100, 200},
		{"two matches", Fish, Roll{3, 3, 5}, 100, 200, 300},
		{"triple", Deer, Roll{5, 5, 5}, 100, 300, 400},
		{"triple other animal", Gourd, Roll{5, 5, 5}, 50, -50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculatePayout(tt.symbol, tt.roll, tt.amount))
			assert.Equal(t, tt.credit, CalculateCredit(tt.symbol, tt.roll, tt.amount))
		})
	}
}

func TestIsTriple(t *testing.T) {
	assert.True(t, IsTriple(Roll{2, 2, 2}))
	assert.False(t, IsTriple(Roll{2, 2, 3}))
	assert.False(t, IsTriple(Roll{3, 2, 2}))
}

func rollGen() *rapid.Generator[Roll] {
	return rapid.Custom(func(t *rapid.T) Roll {
		return Roll{
			rapid.IntRange(0, NumFaces-1).Draw(t, "d1"),
			rapid.IntRange(0, NumFaces-1).Draw(t, "d2"),
			rapid.IntRange(0, NumFaces-1).Draw(t, "d3"),
		}
	})
}

// For any roll, the net payout on an animal is amount*matches, or -amount
// when no die shows it.
func TestCalculatePayoutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roll := rollGen().Draw(t, "roll")
		amount := rapid.Int64Range(1, 10_000).Draw(t, "amount")

		for _, sym := range Symbols {
			matches := 0
			for _, d := range roll {
				if d == int(sym) {
					matches++
				}
			}

			want := -amount
			if matches > 0 {
				want = amount * int64(matches)
			}
			if got := CalculatePayout(sym, roll, amount); got != want {
				t.Fatalf("bet %s on %v: got %d, want %d", sym, roll, got, want)
			}
		}
	})
}

// Covering all six animals with the same stake: every die pays one stake,
// and every animal that shows up gets its own stake back.
func TestCoverAllAnimalsCreditProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roll := rollGen().Draw(t, "roll")
		amount := rapid.Int64Range(1, 10_000).Draw(t, "amount")

		var credit int64
		for _, sym := range Symbols {
			credit += CalculateCredit(sym, roll, amount)
		}

		missing := 0
		for _, sym := range Symbols {
			if roll.Count(sym) == 0 {
				missing++
			}
		}
		want := amount*NumDice + amount*int64(NumFaces-missing)
		if credit != want {
			t.Fatalf("roll %v: credit %d, want %d", roll, credit, want)
		}
	})
}
