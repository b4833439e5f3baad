// Command bot runs the squares and Bầu Cua Telegram bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"squares-bot/internal/bot"
	"squares-bot/internal/config"
	"squares-bot/internal/game"
	"squares-bot/internal/game/baucua"
	"squares-bot/internal/game/squares"
	"squares-bot/internal/pkg/db"
	"squares-bot/internal/pkg/lock"
	"squares-bot/internal/repository"
	"squares-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	squaresRepo := repository.NewSquaresRepository(dbPool.Pool)

	accountService := service.NewAccountService(dbPool.Pool, cfg.Daily.Reward, cfg.Daily.CooldownHours)
	rankingService := service.NewRankingService(dbPool.Pool, time.Local)

	userLock := lock.NewUserLock()

	bauCuaGame := baucua.New(nil)
	squaresPools := squares.NewManager()
	squaresService := service.NewSquaresService(squaresPools, accountService, squaresRepo, userLock, nil, service.SquaresConfig{
		MaxPrice:   cfg.Games.Squares.MaxPrice,
		MaxPerUser: cfg.Games.Squares.MaxPerUser,
	})

	gameRegistry := game.NewRegistry()
	for _, g := range []game.Game{bauCuaGame, squaresPools} {
		if err := gameRegistry.Register(g); err != nil {
			log.Fatal().Err(err).Str("game", g.Name()).Msg("Failed to register game")
		}
	}
	log.Info().Int("game_count", gameRegistry.Count()).Msg("Games registered")

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		RankingService: rankingService,
		SquaresService: squaresService,
		WinHistory:     squaresRepo,
		PoolHistory:    squaresRepo,
		CreditQueue:    service.NewCreditQueue(),
		GameRegistry:   gameRegistry,
		BauCuaGame:     bauCuaGame,
		UserLock:       userLock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}
