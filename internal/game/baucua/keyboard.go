package baucua

import (
	"fmt"
	"sort"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// CallbackPrefix is the prefix for all Bầu Cua callback data.
const CallbackPrefix = "baucua_"

// EncodeCallback encodes a bet on symbol into callback data.
func EncodeCallback(symbol Symbol) string {
	return CallbackPrefix + symbol.String()
}

// DecodeCallback extracts the animal from callback data.
func DecodeCallback(data string) (Symbol, error) {
	if !strings.HasPrefix(data, CallbackPrefix) {
		return 0, ErrUnknownSymbol
	}
	return ParseSymbol(strings.TrimPrefix(data, CallbackPrefix))
}

// BuildBoard builds the betting board, two rows of three animals in table
// order.
func BuildBoard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	rows := make([][]tele.InlineButton, 0, 2)
	for i := 0; i < len(Symbols); i += 3 {
		row := make([]tele.InlineButton, 0, 3)
		for _, sym := range Symbols[i : i+3] {
			row = append(row, tele.InlineButton{
				Text: sym.Label(),
				Data: EncodeCallback(sym),
			})
		}
		rows = append(rows, row)
	}
	markup.InlineKeyboard = rows

	return markup
}

// FormatPanelMessage formats the betting panel text.
func FormatPanelMessage(remainingTime int, playerCount int, totalBetAmount int64, betAmount int64) string {
	var b strings.Builder
	b.WriteString("🎲 Bầu Cua - place your bets\n")
	fmt.Fprintf(&b, "⏰ %ds left | 👥 %d | 💰 %d\n\n", remainingTime, playerCount, totalBetAmount)
	fmt.Fprintf(&b, "Tap an animal to bet %d coins", betAmount)
	return b.String()
}

// FormatRoll renders the three dice, e.g. "🦀 Cua | 🦀 Cua | 🐟 Ca".
func FormatRoll(symbols [NumDice]Symbol) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = s.Label()
	}
	return strings.Join(parts, " | ")
}

// FormatSettlementMessage formats the reveal and each player's result.
// Players are listed by net result, best first.
func FormatSettlementMessage(st *Settlement) string {
	var b strings.Builder
	b.WriteString("🎰 Bầu Cua result\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	b.WriteString(FormatRoll(st.Symbols))
	if IsTriple(st.Roll) {
		b.WriteString(" (triple!)")
	}
	b.WriteString("\n━━━━━━━━━━━━━━━\n")

	if len(st.Players) == 0 {
		b.WriteString("No bets this round\n")
	} else {
		results := make([]*PlayerResult, 0, len(st.Players))
		for _, pr := range st.Players {
			results = append(results, pr)
		}
		sort.Slice(results, func(i, j int) bool {
			if results[i].Net != results[j].Net {
				return results[i].Net > results[j].Net
			}
			return results[i].UserID < results[j].UserID
		})

		for _, pr := range results {
			name := displayName(pr)
			switch {
			case pr.Net > 0:
				fmt.Fprintf(&b, "🎉 %s +%d\n", name, pr.Net)
			case pr.Net < 0:
				fmt.Fprintf(&b, "😢 %s %d\n", name, pr.Net)
			default:
				fmt.Fprintf(&b, "😐 %s ±0\n", name)
			}
		}
	}

	b.WriteString("━━━━━━━━━━━━━━━\n")
	b.WriteString("Round over")
	return b.String()
}

func displayName(pr *PlayerResult) string {
	name := pr.Username
	if name == "" {
		name = fmt.Sprintf("%d", pr.UserID)
	}
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return name
}

// FormatMyBets formats one player's open stakes.
func FormatMyBets(bets map[Symbol]int64) string {
	if len(bets) == 0 {
		return "You have no bets yet"
	}

	var b strings.Builder
	b.WriteString("📋 Your bets:\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")

	var total int64
	for _, sym := range Symbols {
		amount, ok := bets[sym]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "• %s: %d\n", sym.Label(), amount)
		total += amount
	}

	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💰 Total: %d", total)
	return b.String()
}
