// Package game defines what the bot needs to list a game in /games and
// route its command.
package game

// Game is a game the bot can host.
type Game interface {
	// Name returns the game's display name, e.g. "Bầu Cua".
	Name() string

	// Command returns the command that opens it, without the slash.
	Command() string

	// Description returns a one-line rule summary.
	Description() string
}

// Host is a game whose rounds run for a whole chat rather than a single
// player.
type Host interface {
	Game

	// Active reports whether chatID has a round in progress.
	Active(chatID int64) bool
}
