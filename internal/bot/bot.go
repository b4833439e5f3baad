// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"squares-bot/internal/config"
	"squares-bot/internal/game"
	"squares-bot/internal/game/baucua"
	"squares-bot/internal/handler"
	"squares-bot/internal/pkg/lock"
	"squares-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	cleaner *handler.MessageCleaner
	ctx     context.Context
	cancel  context.CancelFunc

	accountHandler *handler.AccountHandler
	adminHandler   *handler.AdminHandler
	rankingHandler *handler.RankingHandler
	bauCuaHandler  *handler.BauCuaHandler
	squaresHandler *handler.SquaresHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	RankingService *service.RankingService
	SquaresService *service.SquaresService
	WinHistory     handler.WinHistory
	PoolHistory    handler.PoolHistory
	CreditQueue    *service.CreditQueue
	GameRegistry   *game.Registry
	BauCuaGame     *baucua.Game
	UserLock       *lock.UserLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:   deps.Config.Bot.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: onError,
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		cleaner: handler.NewMessageCleaner(handler.MessageDeleteInterval),
		ctx:     ctx,
		cancel:  cancel,
	}

	owed := deps.CreditQueue
	if owed == nil {
		owed = service.NewCreditQueue()
	}

	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.RankingService, deps.WinHistory, deps.GameRegistry, deps.UserLock)
	b.adminHandler = handler.NewAdminHandler(deps.AccountService, deps.SquaresService, deps.UserLock, owed)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.bauCuaHandler = handler.NewBauCuaHandler(deps.Config.Games.BauCua, deps.AccountService, deps.BauCuaGame, deps.UserLock, b.cleaner, owed)
	b.squaresHandler = handler.NewSquaresHandler(deps.Config.Games.Squares, deps.Config.Paylink, deps.AccountService, deps.SquaresService, deps.PoolHistory)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func onError(err error, c tele.Context) {
	ev := log.Error().Err(err)
	if c != nil {
		ev = ev.Str("text", c.Text())
	}
	ev.Msg("Handler returned an error")
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/my", b.accountHandler.HandleMy)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/top", b.accountHandler.HandleTop)
	b.bot.Handle("/games", b.accountHandler.HandleGames)
	b.bot.Handle("/daily_top", b.rankingHandler.HandleDailyTop)

	// Admin
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_sub", b.adminHandler.HandleAdminSub)
	adminGroup.Handle("/admin_cancel", b.adminHandler.HandleAdminCancel)
	adminGroup.Handle("/admin_replay", b.adminHandler.HandleAdminReplay)

	// Bầu Cua
	b.bot.Handle("/baucua", b.bauCuaHandler.HandleStart)
	b.bot.Handle("/baucua_settle", b.bauCuaHandler.HandleSettle)
	b.bot.Handle("/mybets", b.bauCuaHandler.HandleMyBets)

	// Squares
	b.bot.Handle("/squares", b.squaresHandler.HandleOpen)
	b.bot.Handle("/claim", b.squaresHandler.HandleClaim)
	b.bot.Handle("/release", b.squaresHandler.HandleRelease)
	b.bot.Handle("/squares_board", b.squaresHandler.HandleBoard)
	b.bot.Handle("/squares_lock", b.squaresHandler.HandleLock)
	b.bot.Handle("/score", b.squaresHandler.HandleScore)
	b.bot.Handle("/squares_cancel", b.squaresHandler.HandleCancel)
	b.bot.Handle("/squares_pay", b.squaresHandler.HandlePay)
	b.bot.Handle("/squares_last", b.squaresHandler.HandleLast)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// CallbackData strips the marker telebot puts in front of unique callback
// data.
func CallbackData(data string) string {
	return strings.TrimPrefix(data, "\f")
}

// handleCallback routes callbacks by data prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	data := CallbackData(callback.Data)
	switch {
	case strings.HasPrefix(data, baucua.CallbackPrefix):
		return b.bauCuaHandler.HandleCallback(c)
	default:
		log.Debug().Str("data", data).Msg("Unhandled callback")
		return c.Respond()
	}
}

// Start starts the message cleaner and the bot polling. It blocks until
// Stop is called.
func (b *Bot) Start() {
	go b.cleaner.Run(b.ctx, b.bot, 5*time.Minute)
	log.Info().Dur("max_age", handler.MessageDeleteInterval).Msg("Message cleaner started")

	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.cancel()
	b.bot.Stop()
}
