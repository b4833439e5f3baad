// Package payout resolves how a squares pot is paid out across the four
// scoring rounds of a game, carrying unclaimed money forward.
//
// Rules:
//   - Each round nominally owns a fixed share of the pot: 10%, 20%, 20%, 50%.
//   - A round before the final with no winner pays nothing. Whatever it holds
//     (its share plus anything already carried into it) is split in half:
//     one half to the next round, the other half to the final round. For the
//     third round the next round is the final, so all of it moves there.
//   - A round with a winner pays everything it holds.
//   - The final round pays everything it has accumulated. If nobody holds the
//     final cell the amount is flagged Unclaimed; it is never carried further.
//
// Running totals stay in float64. Rounding only happens in Coins and
// FormatAmount so that display rounding cannot compound across rounds.
package payout

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Round identifies one of the four scoring checkpoints.
type Round int

const (
	RoundFirst Round = iota
	RoundSecond
	RoundThird
	RoundFinal
)

// NumRounds is the fixed number of rounds in a pool.
const NumRounds = 4

// BasePercentages is the nominal share of the pot owned by each round.
var BasePercentages = [NumRounds]float64{0.10, 0.20, 0.20, 0.50}

var roundNames = [NumRounds]string{"Q1", "Q2", "Q3", "Final"}

// String returns the short label used in messages ("Q1", ..., "Final").
func (r Round) String() string {
	if r < RoundFirst || r > RoundFinal {
		return fmt.Sprintf("Round(%d)", int(r))
	}
	return roundNames[r]
}

// Errors returned by the resolver.
var (
	ErrInvalidPot      = errors.New("pot must be a finite non-negative amount")
	ErrInvalidOutcomes = errors.New("outcomes must be exactly four of '0' or '1'")
	ErrUnknownRound    = errors.New("unknown round")
)

// ParseRound parses a round label such as "q2" or "final".
func ParseRound(s string) (Round, error) {
	for i, name := range roundNames {
		if strings.EqualFold(s, name) {
			return Round(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRound, s)
}

// Payout is the resolved amount for a single round.
type Payout struct {
	ID            Round
	BaseAmount    float64 // pot × base percentage, never adjusted
	DisplayAmount float64 // what the round actually pays
	IsRollover    bool    // no winner; funds moved to later rounds
	Unclaimed     bool    // final round only: no winner to receive DisplayAmount
}

// Schedule is the full payout plan for a pot.
type Schedule struct {
	Pot    float64
	Rounds [NumRounds]Payout
}

// Resolve computes the payout schedule for totalPot given whether each
// round had a winner. Rounds are folded strictly in order.
func Resolve(totalPot float64, hasWinner [NumRounds]bool) (Schedule, error) {
	if math.IsNaN(totalPot) || math.IsInf(totalPot, 0) || totalPot < 0 {
		return Schedule{}, fmt.Errorf("%w: %v", ErrInvalidPot, totalPot)
	}

	s := Schedule{Pot: totalPot}
	var available [NumRounds]float64
	for i := range s.Rounds {
		base := totalPot * BasePercentages[i]
		s.Rounds[i] = Payout{ID: Round(i), BaseAmount: base}
		available[i] = base
	}

	for r := RoundFirst; r < RoundFinal; r++ {
		if hasWinner[r] {
			s.Rounds[r].DisplayAmount = available[r]
			continue
		}
		half := available[r] / 2
		available[r+1] += half
		available[RoundFinal] += available[r] - half
		available[r] = 0
		s.Rounds[r].IsRollover = true
	}

	final := &s.Rounds[RoundFinal]
	final.DisplayAmount = available[RoundFinal]
	final.Unclaimed = !hasWinner[RoundFinal]

	return s, nil
}

// Total returns the sum of all display amounts.
func (s Schedule) Total() float64 {
	var total float64
	for _, p := range s.Rounds {
		total += p.DisplayAmount
	}
	return total
}

// Winners returns the rounds that pay a winner, in order.
func (s Schedule) Winners() []Payout {
	out := make([]Payout, 0, NumRounds)
	for _, p := range s.Rounds {
		if p.IsRollover || p.Unclaimed {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParseOutcomes parses a four character string such as "0011" into
// per-round winner flags ('1' = the round had a winner).
func ParseOutcomes(s string) ([NumRounds]bool, error) {
	var out [NumRounds]bool
	if len(s) != NumRounds {
		return out, ErrInvalidOutcomes
	}
	for i, ch := range s {
		switch ch {
		case '1':
			out[i] = true
		case '0':
		default:
			return out, ErrInvalidOutcomes
		}
	}
	return out, nil
}
