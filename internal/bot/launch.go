package bot

import (
	"context"
	"fmt"
	"time"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/logger"

	"go.uber.org/zap"
)

// Launcher validates configs and brings strategy loops to life. Fatal
// configuration errors surface here, before anything registers.
type Launcher struct {
	registry *Registry
	resolver CandidateResolver
	deps     LoopDeps
	baseLog  *zap.Logger
}

// NewLauncher wires a launcher over shared collaborators.
func NewLauncher(registry *Registry, resolver CandidateResolver, deps LoopDeps, baseLog *zap.Logger) *Launcher {
	return &Launcher{
		registry: registry,
		resolver: resolver,
		deps:     deps,
		baseLog:  baseLog,
	}
}

// Launch starts one strategy loop. The returned handle is already
// registered; the caller owns neither the loop nor its state.
func (la *Launcher) Launch(ctx context.Context, cfg config.StrategyConfig) (*Handle, error) {
	now := la.deps.now()
	if err := cfg.Validate(now); err != nil {
		return nil, err
	}
	if la.registry.IsRunning(cfg.ID) {
		return nil, fmt.Errorf("bot %s is already running", cfg.ID)
	}

	// An iceberg run's trade budget is its slice count.
	if cfg.Kind == config.KindIceberg && (cfg.MaxTrades == 0 || cfg.MaxTrades > cfg.Slices) {
		cfg.MaxTrades = cfg.Slices
	}

	loopLog := logger.ForStrategy(la.baseLog, cfg.Kind, cfg.ID)
	deps := la.deps
	deps.Logger = loopLog

	policy, err := NewPolicy(PolicyDeps{
		Cfg:      &cfg,
		Resolver: la.resolver,
		Data:     deps.Data,
		Store:    deps.Store,
		Wallet:   deps.Wallet,
		Logger:   loopLog,
		Now:      deps.Now,
	})
	if err != nil {
		return nil, err
	}

	// Seed today's spend from history so a restart cannot blow through
	// the daily cap.
	spentToday, err := deps.Store.SpentSince(deps.Wallet, now.Truncate(24*time.Hour))
	if err != nil {
		loopLog.Warn("Could not seed daily spend from history", zap.Error(err))
	}

	loop := NewStrategyLoop(cfg.ID, &cfg, policy, deps, spentToday)

	runCtx, cancel := context.WithCancel(ctx)
	handle := &Handle{
		BotID:     cfg.ID,
		Kind:      cfg.Kind,
		StartedAt: now,
		cancel:    cancel,
		done:      make(chan struct{}),
		loop:      loop,
	}

	if err := la.registry.Register(cfg.ID, handle); err != nil {
		cancel()
		return nil, err
	}

	go loop.Run(runCtx, handle)
	return handle, nil
}
