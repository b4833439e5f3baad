package payout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const tolerance = 0.01 * NumRounds

func TestResolve_WorkedExamples(t *testing.T) {
	tests := []struct {
		name     string
		winners  [NumRounds]bool
		expected [NumRounds]float64
	}{
		{"first two rounds roll over", [NumRounds]bool{false, false, true, true}, [NumRounds]float64{0, 0, 61.75, 128.25}},
		{"only first round rolls over", [NumRounds]bool{false, true, true, true}, [NumRounds]float64{0, 47.50, 38.00, 104.50}},
		{"every round has a winner", [NumRounds]bool{true, true, true, true}, [NumRounds]float64{19, 38, 38, 95}},
		{"third round sends everything to final", [NumRounds]bool{true, true, false, true}, [NumRounds]float64{19, 38, 0, 133}},
		{"no winner before final", [NumRounds]bool{false, false, false, true}, [NumRounds]float64{0, 0, 0, 190}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve(190, tt.winners)
			require.NoError(t, err)

			for i, want := range tt.expected {
				assert.InDelta(t, want, s.Rounds[i].DisplayAmount, 1e-9, "round %s", Round(i))
			}
			assert.InDelta(t, 190.0, s.Total(), 1e-9)
		})
	}
}

func TestResolve_BaseAmounts(t *testing.T) {
	s, err := Resolve(190, [NumRounds]bool{false, false, false, false})
	require.NoError(t, err)

	assert.InDelta(t, 19.0, s.Rounds[RoundFirst].BaseAmount, 1e-9)
	assert.InDelta(t, 38.0, s.Rounds[RoundSecond].BaseAmount, 1e-9)
	assert.InDelta(t, 38.0, s.Rounds[RoundThird].BaseAmount, 1e-9)
	assert.InDelta(t, 95.0, s.Rounds[RoundFinal].BaseAmount, 1e-9)
}

func TestResolve_FinalWithoutWinner(t *testing.T) {
	s, err := Resolve(190, [NumRounds]bool{true, true, true, false})
	require.NoError(t, err)

	final := s.Rounds[RoundFinal]
	assert.False(t, final.IsRollover)
	assert.True(t, final.Unclaimed)
	assert.InDelta(t, 95.0, final.DisplayAmount, 1e-9)
	assert.Len(t, s.Winners(), 3)
}

func TestResolve_InvalidPot(t *testing.T) {
	for _, pot := range []float64{-0.01, -100, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Resolve(pot, [NumRounds]bool{true, true, true, true})
		assert.ErrorIs(t, err, ErrInvalidPot, "pot=%v", pot)
	}
}

func TestResolve_ZeroPot(t *testing.T) {
	s, err := Resolve(0, [NumRounds]bool{false, true, false, true})
	require.NoError(t, err)
	assert.Zero(t, s.Total())
}

func outcomesGen() *rapid.Generator[[NumRounds]bool] {
	return rapid.Custom(func(t *rapid.T) [NumRounds]bool {
		var out [NumRounds]bool
		for i := range out {
			out[i] = rapid.Bool().Draw(t, Round(i).String())
		}
		return out
	})
}

// Conservation: no money is created or destroyed.
func TestResolve_ConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pot := rapid.Float64Range(0, 1_000_000).Draw(t, "pot")
		winners := outcomesGen().Draw(t, "winners")

		s, err := Resolve(pot, winners)
		if err != nil {
			t.Fatalf("Resolve(%v, %v) failed: %v", pot, winners, err)
		}
		if math.Abs(s.Total()-pot) > tolerance {
			t.Fatalf("pot %v distributed as %v (sum %v)", pot, s.Rounds, s.Total())
		}
	})
}

func TestResolve_RolloverIffZeroProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pot := rapid.Float64Range(1, 1_000_000).Draw(t, "pot")
		winners := outcomesGen().Draw(t, "winners")

		s, err := Resolve(pot, winners)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		for _, p := range s.Rounds {
			if p.IsRollover != (p.DisplayAmount == 0) {
				t.Fatalf("round %s: IsRollover=%v but DisplayAmount=%v", p.ID, p.IsRollover, p.DisplayAmount)
			}
		}
		if s.Rounds[RoundFinal].IsRollover {
			t.Fatalf("final round must never roll over")
		}
	})
}

func TestResolve_AllWinnersBaselineProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pot := rapid.Float64Range(0, 1_000_000).Draw(t, "pot")

		s, err := Resolve(pot, [NumRounds]bool{true, true, true, true})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		for _, p := range s.Rounds {
			if p.DisplayAmount != p.BaseAmount || p.IsRollover {
				t.Fatalf("round %s paid %v, base %v", p.ID, p.DisplayAmount, p.BaseAmount)
			}
		}
	})
}

func TestResolve_TotalRolloverProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pot := rapid.Float64Range(0, 1_000_000).Draw(t, "pot")

		s, err := Resolve(pot, [NumRounds]bool{false, false, false, true})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if math.Abs(s.Rounds[RoundFinal].DisplayAmount-pot) > tolerance {
			t.Fatalf("final paid %v, want whole pot %v", s.Rounds[RoundFinal].DisplayAmount, pot)
		}
	})
}

// A round's payout depends only on itself and earlier rounds, except the
// final which collects from everything before it.
func TestResolve_LaterOutcomesDoNotAffectEarlierRoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pot := rapid.Float64Range(0, 10_000).Draw(t, "pot")
		a := outcomesGen().Draw(t, "a")
		cut := rapid.IntRange(0, NumRounds-2).Draw(t, "cut")

		b := a
		for i := cut + 1; i < NumRounds; i++ {
			b[i] = !b[i]
		}

		sa, _ := Resolve(pot, a)
		sb, _ := Resolve(pot, b)
		for i := 0; i <= cut; i++ {
			if sa.Rounds[i] != sb.Rounds[i] {
				t.Fatalf("round %d changed when only later rounds changed: %+v vs %+v", i, sa.Rounds[i], sb.Rounds[i])
			}
		}
	})
}

func TestParseOutcomes(t *testing.T) {
	got, err := ParseOutcomes("0011")
	require.NoError(t, err)
	assert.Equal(t, [NumRounds]bool{false, false, true, true}, got)

	for _, bad := range []string{"", "001", "00111", "01x1", "yes!"} {
		_, err := ParseOutcomes(bad)
		assert.ErrorIs(t, err, ErrInvalidOutcomes, "input %q", bad)
	}
}

func TestParseRound(t *testing.T) {
	r, err := ParseRound("final")
	require.NoError(t, err)
	assert.Equal(t, RoundFinal, r)

	r, err = ParseRound("q2")
	require.NoError(t, err)
	assert.Equal(t, RoundSecond, r)

	_, err = ParseRound("q5")
	assert.ErrorIs(t, err, ErrUnknownRound)

	assert.Equal(t, "Round(7)", Round(7).String())
}
