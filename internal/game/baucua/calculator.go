package baucua

// DefaultBetAmount is the stake placed by one tap on an animal button.
const DefaultBetAmount int64 = 100

// CalculatePayout returns the net result of a bet on symbol.
//
//   - 0 matching dice: -amount (stake lost)
//   - k matching dice: +amount*k
func CalculatePayout(symbol Symbol, roll Roll, amount int64) int64 {
	matches := roll.Count(symbol)
	if matches == 0 {
		return -amount
	}
	return amount * int64(matches)
}

// CalculateCredit returns what goes back to a player whose stake was
// already taken when the bet was placed: stake plus winnings, or nothing.
func CalculateCredit(symbol Symbol, roll Roll, amount int64) int64 {
	net := CalculatePayout(symbol, roll, amount)
	if net < 0 {
		return 0
	}
	return amount + net
}

// IsTriple reports whether all three dice show the same animal.
func IsTriple(roll Roll) bool {
	return roll[0] == roll[1] && roll[1] == roll[2]
}
