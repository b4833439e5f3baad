package payout

import (
	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount as dollars and cents, e.g. "$61.75".
func FormatAmount(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixedBank(2)
}

// Coins converts the schedule into whole coins for crediting balances.
//
// The pot is rounded to whole coins first. Rounds before the final are
// rounded half-to-even; the final round takes whatever remains, so the
// returned amounts always add up to the rounded pot.
func (s Schedule) Coins() [NumRounds]int64 {
	var out [NumRounds]int64

	remaining := decimal.NewFromFloat(s.Pot).RoundBank(0)
	for r := RoundFirst; r < RoundFinal; r++ {
		amount := decimal.NewFromFloat(s.Rounds[r].DisplayAmount).RoundBank(0)
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		out[r] = amount.IntPart()
		remaining = remaining.Sub(amount)
	}
	out[RoundFinal] = remaining.IntPart()

	return out
}
