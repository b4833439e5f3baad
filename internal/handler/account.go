// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"squares-bot/internal/game"
	"squares-bot/internal/game/payout"
	"squares-bot/internal/model"
	"squares-bot/internal/pkg/lock"
	"squares-bot/internal/service"
)

// WinHistory lists a user's past squares wins.
type WinHistory interface {
	GetWinsByUser(ctx context.Context, userID int64, limit int) ([]*model.SquaresPayout, error)
}

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
	rankingService *service.RankingService
	history        WinHistory
	registry       *game.Registry
	userLock       *lock.UserLock
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	accountService *service.AccountService,
	rankingService *service.RankingService,
	history WinHistory,
	registry *game.Registry,
	userLock *lock.UserLock,
) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		rankingService: rankingService,
		history:        history,
		registry:       registry,
		userLock:       userLock,
	}
}

// senderName returns the Telegram username, falling back to the first name.
func senderName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// atName renders a stored username as a mention.
func atName(username string, id int64) string {
	if username == "" {
		return fmt.Sprintf("User%d", id)
	}
	if strings.HasPrefix(username, "@") {
		return username
	}
	return "@" + username
}

// HandleStart handles the /start command.
// New users get an account with the starting balance.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	username := senderName(sender)

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	user, created, err := h.accountService.EnsureUser(ctx, sender.ID, username)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to create account")
		return c.Reply("❌ Could not create your account, try again later")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome %s!\n\n"+
				"Your account is ready with %d coins.\n\n"+
				"Send /help to see what you can play.",
			atName(username, sender.ID), user.Balance,
		))
	}

	return c.Reply(fmt.Sprintf("👋 Welcome back %s!\n\nBalance: %d coins", atName(username, sender.ID), user.Balance))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	balance, err := h.accountService.GetBalance(ctx, sender.ID)
	if err != nil {
		user, _, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender))
		if err != nil {
			return c.Reply("❌ Could not read your balance, try again later")
		}
		balance = user.Balance
	}

	return c.Reply(fmt.Sprintf("💰 Balance: %d coins", balance))
}

// HandleMy handles the /my command.
// It shows the balance, today's game result and recent squares wins.
func (h *AccountHandler) HandleMy(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := h.accountService.GetUser(ctx, sender.ID)
	if err != nil {
		user, _, err = h.accountService.EnsureUser(ctx, sender.ID, senderName(sender))
		if err != nil {
			return c.Reply("❌ Could not load your account, try again later")
		}
	}

	dailyProfit, err := h.rankingService.GetUserDailyProfit(ctx, sender.ID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to get daily profit")
	}

	profitStr := fmt.Sprintf("%d", dailyProfit)
	if dailyProfit > 0 {
		profitStr = "+" + profitStr
	}

	var b strings.Builder
	b.WriteString("📊 Account\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "👤 %s\n", atName(user.Username, user.TelegramID))
	fmt.Fprintf(&b, "💰 Balance: %d\n", user.Balance)
	fmt.Fprintf(&b, "📈 Today: %s\n", profitStr)

	if h.history != nil {
		wins, err := h.history.GetWinsByUser(ctx, sender.ID, 5)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to get squares wins")
		} else if len(wins) > 0 {
			b.WriteString("🏈 Recent squares wins:\n")
			for _, w := range wins {
				fmt.Fprintf(&b, "• %s %d-%d: %d coins\n", payout.Round(w.Round), w.HomeScore, w.AwayScore, w.Coins)
			}
		}
	}
	b.WriteString("━━━━━━━━━━━━━━━")

	return c.Reply(b.String())
}

// HandleDaily handles the /daily command.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	// A second /daily sent while the first is still running is dropped.
	if !h.userLock.TryLock(sender.ID) {
		return c.Reply("⏳ Already claiming, one moment")
	}
	defer h.userLock.Unlock(sender.ID)

	if _, _, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender)); err != nil {
		return c.Reply("❌ Something went wrong, try again later")
	}

	ok, remaining, err := h.accountService.ClaimDaily(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to claim daily reward")
		return c.Reply("❌ Could not claim the daily reward, try again later")
	}
	if !ok {
		return c.Reply(fmt.Sprintf("⏰ Already claimed. Come back in %s", service.FormatWait(remaining)))
	}

	balance, _ := h.accountService.GetBalance(ctx, sender.ID)
	return c.Reply(fmt.Sprintf("✅ +%d coins! Balance: %d", h.accountService.DailyReward(), balance))
}

// HandleTop handles the /top command.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	users, err := h.rankingService.GetTopUsers(ctx, 10)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, try again later")
	}
	if len(users) == 0 {
		return c.Reply("📊 Nobody on the board yet")
	}

	var b strings.Builder
	b.WriteString("🏆 Richest TOP 10\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for i, user := range users {
		fmt.Fprintf(&b, "%s %s: %d\n", rankMark(i, true), atName(user.Username, user.TelegramID), user.Balance)
	}
	b.WriteString("━━━━━━━━━━━━━━━")

	return c.Reply(b.String())
}

// HandleGames handles /games [command]. With a command it describes that
// game only.
func (h *AccountHandler) HandleGames(c tele.Context) error {
	chat := c.Chat()

	if args := c.Args(); len(args) > 0 {
		return c.Reply(GameInfo(h.registry, args[0]))
	}

	var b strings.Builder
	b.WriteString("🎮 Games\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for _, g := range h.registry.List() {
		fmt.Fprintf(&b, "/%s %s\n%s\n", g.Command(), g.Name(), g.Description())
	}
	if chat != nil {
		if active := h.registry.ActiveIn(chat.ID); len(active) > 0 {
			names := make([]string, len(active))
			for i, g := range active {
				names[i] = g.Name()
			}
			fmt.Fprintf(&b, "\n▶️ Running here: %s", strings.Join(names, ", "))
		}
	}
	return c.Reply(b.String())
}

// GameInfo describes the game started by command. A leading slash is
// ignored.
func GameInfo(registry *game.Registry, command string) string {
	g, ok := registry.Get(strings.TrimPrefix(strings.ToLower(command), "/"))
	if !ok {
		return fmt.Sprintf("❌ No game called %q, see /games", command)
	}
	return fmt.Sprintf("🎮 %s\n━━━━━━━━━━━━━━━\n%s\n\nStart it with /%s", g.Name(), g.Description(), g.Command())
}

// HandleHelp handles the /help command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

const helpText = `📖 Commands
━━━━━━━━━━━━━━━
/balance - your coins
/my - account summary
/daily - daily reward
/top - richest players
/daily_top - today's winners and losers
/games [name] - list games or describe one

🎲 Bầu Cua
/baucua - open a betting round
/mybets - your bets this round
/baucua_settle - roll now

🏈 Squares
/squares [price] - open a pool
/claim <row> <col> - buy a square
/release <row> <col> - give a square back
/squares_board - show the board
/squares_lock - host: close the board and draw digits
/score <home> <away> - host: record the next quarter
/squares_cancel - host: cancel and refund
/squares_pay - pay links for the host
/squares_last - results of the last pool here`

var medals = []string{"🥇", "🥈", "🥉"}

func rankMark(i int, withMedals bool) string {
	if withMedals && i < len(medals) {
		return medals[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

// replyError maps well-known errors to a message and logs the rest.
func replyError(c tele.Context, err error, known map[error]string) error {
	for target, msg := range known {
		if errors.Is(err, target) {
			return c.Reply("❌ " + msg)
		}
	}
	log.Error().Err(err).Str("command", c.Text()).Msg("Command failed")
	return c.Reply("❌ Something went wrong, try again later")
}
