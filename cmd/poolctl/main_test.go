package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squares-bot/internal/game/payout"
	"squares-bot/internal/pkg/fairrand"
)

// seqSource returns the queued values in order.
type seqSource struct{ vals []int }

func (s *seqSource) Intn(n int) (int, error) {
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v % n, nil
}

type brokenSource struct{}

func (brokenSource) Intn(int) (int, error) { return 0, fairrand.ErrEntropyUnavailable }

func execute(t *testing.T, src fairrand.Source, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, src)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, nil, "resolve", "--pot", "190", "--winners", "0011", "--coins")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "rollover")
	assert.Contains(t, lines[3], "$61.75")
	assert.Contains(t, lines[4], "$128.25")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[4]), "128"))
	assert.Contains(t, lines[5], "$190.00")
}

func TestResolveCommand_Errors(t *testing.T) {
	_, err := execute(t, nil, "resolve", "--pot", "100", "--winners", "01")
	assert.ErrorIs(t, err, payout.ErrInvalidOutcomes)

	_, err = execute(t, nil, "resolve", "--pot=-5")
	assert.ErrorIs(t, err, payout.ErrInvalidPot)

	_, err = execute(t, nil, "resolve")
	assert.Error(t, err)
}

func TestRollCommand(t *testing.T) {
	out, err := execute(t, &seqSource{vals: []int{1, 1, 3, 0, 5, 2}}, "roll", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "[1 1 3]  🦀 Cua | 🦀 Cua | 🐟 Ca\n[0 5 2]  🍐 Bau | 🦌 Nai | 🦐 Tom\n", out)

	_, err = execute(t, brokenSource{}, "roll")
	assert.ErrorIs(t, err, fairrand.ErrEntropyUnavailable)

	_, err = execute(t, nil, "roll", "--count", "0")
	assert.Error(t, err)
}
