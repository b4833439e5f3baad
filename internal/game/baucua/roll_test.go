package baucua

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squares-bot/internal/pkg/fairrand"
)

// Chi-squared critical values at p = 0.0001.
const (
	chiSq5DoF  = 25.745 // goodness of fit, 6 faces
	chiSq25DoF = 60.4   // 6x6 contingency table
)

const trials = 100_000

type fixedSource struct {
	values []int
	next   int
}

func (f *fixedSource) Intn(n int) (int, error) {
	v := f.values[f.next%len(f.values)]
	f.next++
	return v % n, nil
}

type failingSource struct{ after int }

func (f *failingSource) Intn(n int) (int, error) {
	if f.after == 0 {
		return 0, fairrand.ErrEntropyUnavailable
	}
	f.after--
	return 0, nil
}

func TestRoller_UsesSourceInOrder(t *testing.T) {
	r := NewRoller(&fixedSource{values: []int{1, 4, 5}})

	roll, err := r.Roll()
	require.NoError(t, err)
	assert.Equal(t, Roll{1, 4, 5}, roll)

	symbols, err := DecodeToSymbols(roll)
	require.NoError(t, err)
	assert.Equal(t, [NumDice]Symbol{Crab, Rooster, Deer}, symbols)
}

func TestRoller_RefusesWithoutEntropy(t *testing.T) {
	for after := 0; after < NumDice; after++ {
		r := NewRoller(&failingSource{after: after})

		roll, err := r.Roll()
		require.Error(t, err)
		assert.True(t, errors.Is(err, fairrand.ErrEntropyUnavailable))
		assert.Equal(t, Roll{}, roll, "no partial roll after %d dice", after)
	}
}

func TestDecodeToSymbols_RejectsOutOfRange(t *testing.T) {
	for _, roll := range []Roll{{-1, 0, 0}, {0, 6, 0}, {0, 0, 100}} {
		_, err := DecodeToSymbols(roll)
		assert.ErrorIs(t, err, ErrInvalidFace, "roll %v", roll)
		assert.False(t, roll.Valid())
	}
}

func TestDecodeToSymbols_FixedTable(t *testing.T) {
	got, err := DecodeToSymbols(Roll{0, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, [NumDice]Symbol{Gourd, Shrimp, Fish}, got)

	got, err = DecodeToSymbols(Roll{4, 5, 1})
	require.NoError(t, err)
	assert.Equal(t, [NumDice]Symbol{Rooster, Deer, Crab}, got)
}

func rollMany(t *testing.T, n int) []Roll {
	t.Helper()
	if testing.Short() {
		t.Skip("statistical test skipped in short mode")
	}

	rolls := make([]Roll, n)
	for i := range rolls {
		r, err := RollDice()
		require.NoError(t, err)
		require.True(t, r.Valid(), "roll %v out of range", r)
		rolls[i] = r
	}
	return rolls
}

func chiSquaredUniform(counts [NumFaces]int, total int) float64 {
	expected := float64(total) / NumFaces
	var x2 float64
	for _, c := range counts {
		d := float64(c) - expected
		x2 += d * d / expected
	}
	return x2
}

// chiSquaredIndependence tests a 6x6 contingency table against the
// product of its marginals.
func chiSquaredIndependence(table [NumFaces][NumFaces]int, total int) float64 {
	var rows, cols [NumFaces]int
	for i := 0; i < NumFaces; i++ {
		for j := 0; j < NumFaces; j++ {
			rows[i] += table[i][j]
			cols[j] += table[i][j]
		}
	}

	var x2 float64
	for i := 0; i < NumFaces; i++ {
		for j := 0; j < NumFaces; j++ {
			expected := float64(rows[i]) * float64(cols[j]) / float64(total)
			d := float64(table[i][j]) - expected
			x2 += d * d / expected
		}
	}
	return x2
}

func TestRollDice_Uniformity(t *testing.T) {
	rolls := rollMany(t, trials)

	for pos := 0; pos < NumDice; pos++ {
		var counts [NumFaces]int
		for _, r := range rolls {
			counts[r[pos]]++
		}

		x2 := chiSquaredUniform(counts, trials)
		assert.Less(t, x2, chiSq5DoF, "die %d counts %v", pos+1, counts)
	}
}

func TestRollDice_PositionsIndependent(t *testing.T) {
	rolls := rollMany(t, trials)

	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	for _, p := range pairs {
		var table [NumFaces][NumFaces]int
		for _, r := range rolls {
			table[r[p[0]]][r[p[1]]]++
		}

		x2 := chiSquaredIndependence(table, trials)
		assert.Less(t, x2, chiSq25DoF, "dice %d and %d", p[0]+1, p[1]+1)
	}
}

func TestRollDice_ConsecutiveCallsIndependent(t *testing.T) {
	rolls := rollMany(t, trials+1)

	var table [NumFaces][NumFaces]int
	for i := 0; i < trials; i++ {
		table[rolls[i][0]][rolls[i+1][0]]++
	}

	x2 := chiSquaredIndependence(table, trials)
	assert.Less(t, x2, chiSq25DoF)
}

func TestRoll_Count(t *testing.T) {
	r := Roll{int(Crab), int(Crab), int(Deer)}

	assert.Equal(t, 2, r.Count(Crab))
	assert.Equal(t, 1, r.Count(Deer))
	assert.Equal(t, 0, r.Count(Fish))
}
