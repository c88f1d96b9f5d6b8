package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-trade-bot-go/internal/alert"
	"solana-trade-bot-go/internal/bot"
	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/database"
	"solana-trade-bot-go/internal/jupiter"
	"solana-trade-bot-go/internal/logger"
	"solana-trade-bot-go/internal/market"
	"solana-trade-bot-go/internal/safety"
	"solana-trade-bot-go/internal/store"
	"solana-trade-bot-go/internal/wallet"

	"go.uber.org/zap"
)

const feedLimit = 50

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.Int("strategies", len(cfg.Strategies)))

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	st := store.New(db)
	log.Info("Database connection successful and schema migrated.")

	// Wallet signer
	signer, err := wallet.NewSigner(cfg.Wallet.PrivateKey)
	if err != nil {
		log.Fatal("Failed to load wallet", zap.Error(err))
	}
	log.Info("Wallet loaded", zap.String("address", signer.PublicKey()))

	// Collaborator clients
	marketClient := market.NewClient(&cfg.Market, log.Named("market"))
	jupiterClient := jupiter.NewClient(&cfg.Jupiter, log.Named("jupiter"))
	safetyChecker := safety.NewChecker(&cfg.Safety, log.Named("safety"))
	relayClient := bot.NewRelayClient(&cfg.Relay, log.Named("relay"))
	notifier, err := alert.NewTelegram(&cfg.Telegram, log.Named("alert"))
	if err != nil {
		log.Fatal("Failed to initialize alerting", zap.Error(err))
	}

	executor := bot.NewExecutor(jupiterClient, signer, relayClient, cfg.RPC.URL, log.Named("executor"))
	resolver := market.NewResolver(marketClient, feedLimit)
	registry := bot.NewRegistry()

	launcher := bot.NewLauncher(registry, resolver, bot.LoopDeps{
		Data:     marketClient,
		Safety:   safetyChecker,
		Quotes:   jupiterClient,
		Executor: executor,
		Store:    st,
		Notifier: notifier,
		Wallet:   signer.PublicKey(),
		Timeouts: cfg.Timeouts,
	}, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Replay any persisted future-dated launches.
	scheduler := bot.NewScheduler(launcher, st, log.Named("scheduler"))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Launch configured strategies: future-dated ones go through the
	// scheduler, the rest start immediately.
	for _, strategyCfg := range cfg.Strategies {
		if strategyCfg.LaunchAt != "" {
			if err := scheduler.Schedule(ctx, strategyCfg); err != nil {
				log.Error("Failed to schedule strategy",
					zap.String("id", strategyCfg.ID), zap.Error(err))
			}
			continue
		}
		if _, err := launcher.Launch(ctx, strategyCfg); err != nil {
			log.Error("Failed to launch strategy",
				zap.String("id", strategyCfg.ID), zap.Error(err))
		}
	}

	apiServer := bot.NewAPIServer(registry, relayClient, cfg.Server.Port, log)
	apiServer.Start()

	<-ctx.Done()

	registry.StopAll()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
