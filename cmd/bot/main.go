// Package main is the entry point for the Royal Market bot.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"royal-market-bot/internal/bot"
	"royal-market-bot/internal/catalog"
	"royal-market-bot/internal/config"
	"royal-market-bot/internal/duel"
	"royal-market-bot/internal/game"
	"royal-market-bot/internal/game/coinflip"
	"royal-market-bot/internal/game/gamble"
	"royal-market-bot/internal/game/slot"
	"royal-market-bot/internal/pkg/db"
	"royal-market-bot/internal/pkg/dice"
	"royal-market-bot/internal/pkg/lock"
	"royal-market-bot/internal/repository"
	"royal-market-bot/internal/scheduler"
	"royal-market-bot/internal/service"
)

func main() {
	configPath := flag.String("config", "config", "directory holding config.yaml")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	configureLogger(cfg.Log)
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Repositories
	accountRepo := repository.NewAccountRepository(dbPool.Pool, cfg.Economy.StartBalance)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)
	cooldownRepo := repository.NewCooldownRepository(dbPool.Pool)
	statsRepo := repository.NewStatsRepository(dbPool.Pool)

	// Validate has already checked both.
	rate, _ := cfg.Economy.Rate()
	loc, _ := cfg.Economy.Location()

	// Services
	src := dice.NewCryptoSource()
	ledgerService := service.NewLedgerService(accountRepo, lock.NewUserLock(), service.LedgerConfig{
		PurseCap:     cfg.Economy.PurseCap,
		InterestRate: rate,
		PrisonDays:   cfg.Economy.PrisonDays,
		Location:     loc,
		LockTimeout:  cfg.Economy.LockTimeout,
	})
	cooldownService := service.NewCooldownService(cooldownRepo, cfg.Cooldowns.Window)
	shopService := service.NewShopService(inventoryRepo, ledgerService, catalog.Default())
	workService := service.NewWorkService(ledgerService, cooldownService, src, cfg.Economy.DailyReward)
	rankingService := service.NewRankingService(ledgerService, statsRepo, txRepo, loc)
	duelService := service.NewDuelService(ledgerService, shopService, cooldownService, statsRepo)

	gameRegistry := game.NewRegistry()
	for _, g := range []game.Game{
		gamble.New(&gamble.Config{MaxBet: cfg.Games.MaxWager}),
		slot.New(&slot.Config{Cost: cfg.Games.SlotsCost}),
		coinflip.New(&coinflip.Config{MaxBet: cfg.Games.MaxWager}),
	} {
		if err := gameRegistry.Register(g); err != nil {
			log.Fatal().Err(err).Str("game", g.Name()).Msg("Failed to register game")
		}
	}
	log.Info().
		Int("game_count", gameRegistry.Count()).
		Strs("games", gameRegistry.Commands()).
		Msg("Games registered")
	gameService := service.NewGameService(gameRegistry, ledgerService, src)

	duelManager := duel.NewManager(
		duel.Deps{Source: src, Armory: duelService, Gate: duelService, Settler: duelService},
		duel.Config{
			AcceptTimeout: cfg.Duel.AcceptTimeout,
			TurnTimeout:   cfg.Duel.TurnTimeout,
			Authorized:    cfg.Duel.IsAuthorized,
		},
	)
	defer duelManager.Close()

	jobs := scheduler.New(ledgerService, scheduler.Config{
		Interval:      cfg.Scheduler.Interval,
		RunOnStart:    cfg.Scheduler.RunOnStart,
		TaxAmount:     cfg.Economy.Tax,
		TaxCollectors: cfg.Economy.TaxCollectors,
	})

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		LedgerService:  ledgerService,
		WorkService:    workService,
		ShopService:    shopService,
		GameService:    gameService,
		RankingService: rankingService,
		DuelManager:    duelManager,
		Scheduler:      jobs,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return jobs.Run(gctx)
	})
	g.Go(func() error {
		telegramBot.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Received shutdown signal")
		telegramBot.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Stopped with error")
	}
	log.Info().Msg("Bot stopped gracefully")
}

func configureLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Console {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
