package squares

import (
	"fmt"
	"sort"
	"strings"

	"squares-bot/internal/game/payout"
)

// FormatBoard renders the board as a monospace grid. Claimed squares show
// "X", free squares ".". Once locked, the drawn digits label the axes.
func FormatBoard(p *Pool) string {
	rows, cols := p.Digits()
	entries := p.Entries()

	var b strings.Builder
	b.WriteString("<pre>\n   ")
	for c := 0; c < BoardSize; c++ {
		if cols != nil {
			fmt.Fprintf(&b, "%d", cols[c])
		} else {
			b.WriteString("?")
		}
	}
	b.WriteString("  away\n")

	for r := 0; r < BoardSize; r++ {
		if rows != nil {
			fmt.Fprintf(&b, "%d  ", rows[r])
		} else {
			b.WriteString("?  ")
		}
		for c := 0; c < BoardSize; c++ {
			if _, ok := entries[Cell{Row: r, Col: c}]; ok {
				b.WriteString("X")
			} else {
				b.WriteString(".")
			}
		}
		fmt.Fprintf(&b, "  %d\n", r)
	}
	b.WriteString("home\n</pre>")
	fmt.Fprintf(&b, "\n%d/%d claimed | price %d | pot %d", len(entries), BoardSize*BoardSize, p.Price, p.Pot())
	return b.String()
}

// FormatRoundScore announces the cell selected by a recorded score.
func FormatRoundScore(rs RoundScore) string {
	if rs.Winner == nil {
		return fmt.Sprintf("🏈 %s %d-%d: square %s is empty, the money rolls over",
			rs.Round, rs.Home, rs.Away, rs.Cell)
	}
	return fmt.Sprintf("🏈 %s %d-%d: square %s belongs to %s",
		rs.Round, rs.Home, rs.Away, rs.Cell, ownerName(*rs.Winner))
}

// FormatResult formats the final payout table.
func FormatResult(res *Result) string {
	var b strings.Builder
	b.WriteString("🏆 Squares payouts\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "Pot: %d\n", res.Pot)

	for r := payout.RoundFirst; r <= payout.RoundFinal; r++ {
		po := res.Schedule.Rounds[r]
		rs := res.Scores[r]
		switch {
		case po.IsRollover:
			fmt.Fprintf(&b, "%s %d-%d: rolled over\n", r, rs.Home, rs.Away)
		case po.Unclaimed:
			fmt.Fprintf(&b, "%s %d-%d: no winner, %d refunded to all squares\n", r, rs.Home, rs.Away, res.Coins[r])
		default:
			fmt.Fprintf(&b, "%s %d-%d: %s wins %d (%s)\n",
				r, rs.Home, rs.Away, ownerName(*rs.Winner), res.Coins[r], payout.FormatAmount(po.DisplayAmount))
		}
	}

	if len(res.Refunds) > 0 {
		b.WriteString("━━━━━━━━━━━━━━━\n")
		ids := make([]int64, 0, len(res.Refunds))
		for id := range res.Refunds {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fmt.Fprintf(&b, "↩️ %d: +%d\n", id, res.Refunds[id])
		}
	}

	b.WriteString("━━━━━━━━━━━━━━━\n")
	b.WriteString("Pool closed")
	return b.String()
}

func ownerName(o Owner) string {
	if o.Username == "" {
		return fmt.Sprintf("%d", o.UserID)
	}
	return "@" + strings.TrimPrefix(o.Username, "@")
}
