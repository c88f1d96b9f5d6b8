package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"solana-trade-bot-go/internal/alert"
	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/models"

	"go.uber.org/zap"
)

// Loop status values.
const (
	StatusRunning   = "running"
	StatusHalted    = "halted"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
)

const lamportsPerSOL = 1e9

// RunState is the mutable bookkeeping of one run. It is owned
// exclusively by the loop goroutine; everyone else reads copies via
// Snapshot.
type RunState struct {
	Status              string
	HaltReason          string
	TradesMade          int
	ConsecutiveFailures int
	SpentTodaySOL       float64
	LastTickAt          time.Time
	LoopDurationMs      int64
	CooldownSkips       int
	GateSkips           int
	SafetySkips         int
	Rejects             map[RejectReason]int
}

// Snapshot is a read-only copy of a loop's state for status display.
type Snapshot struct {
	BotID               string         `json:"bot_id"`
	Kind                string         `json:"kind"`
	Status              string         `json:"status"`
	HaltReason          string         `json:"halt_reason,omitempty"`
	TradesMade          int            `json:"trades_made"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	SpentTodaySOL       float64        `json:"spent_today_sol"`
	LastTickAt          time.Time      `json:"last_tick_at"`
	LoopDurationMs      int64          `json:"loop_duration_ms"`
	StartedAt           time.Time      `json:"started_at"`
	Uptime              string         `json:"uptime"`
	CooldownSkips       int            `json:"cooldown_skips"`
	GateSkips           int            `json:"gate_skips"`
	SafetySkips         int            `json:"safety_skips"`
	Rejects             map[string]int `json:"rejects"`
}

// LoopDeps are the collaborators one strategy loop consumes.
type LoopDeps struct {
	Data     MarketData
	Safety   SafetySource
	Quotes   QuoteSource
	Executor TradeExecutor
	Store    TradeStore
	Notifier alert.Notifier
	Logger   *zap.Logger
	Wallet   string
	Timeouts config.Timeouts
	Now      func() time.Time
}

// StrategyLoop is the shared tick/halt/summary machinery every strategy
// kind runs on. One instance per running bot; the policy supplies the
// strategy-specific parts.
type StrategyLoop struct {
	botID     string
	cfg       *config.StrategyConfig
	policy    Policy
	deps      LoopDeps
	cooldown  *CooldownTracker
	logger    *zap.Logger
	startedAt time.Time
	dayStart  time.Time

	mu    sync.Mutex // guards state for Snapshot readers
	state RunState
}

// NewStrategyLoop builds a loop in the Running state. spentToday seeds
// the daily running total from persisted history after a restart.
func NewStrategyLoop(botID string, cfg *config.StrategyConfig, policy Policy, deps LoopDeps, spentToday float64) *StrategyLoop {
	now := deps.now()
	return &StrategyLoop{
		botID:     botID,
		cfg:       cfg,
		policy:    policy,
		deps:      deps,
		cooldown:  NewCooldownTracker(cfg.Cooldown()),
		logger:    deps.Logger,
		startedAt: now,
		dayStart:  now.Truncate(24 * time.Hour),
		state: RunState{
			Status:        StatusRunning,
			SpentTodaySOL: spentToday,
			Rejects:       make(map[RejectReason]int),
		},
	}
}

func (d *LoopDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Run drives the tick loop until a terminal state or context cancel.
// Each bot runs this in its own goroutine; a slow tick here never
// stalls another bot's timer.
func (l *StrategyLoop) Run(ctx context.Context, handle *Handle) {
	defer close(handle.done)

	ticker := time.NewTicker(l.cfg.TickInterval())
	defer ticker.Stop()

	l.logger.Info("Strategy loop started",
		zap.Duration("interval", l.cfg.TickInterval()),
		zap.Bool("dry_run", l.cfg.DryRun))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Strategy loop stopping")
			l.setStatus(StatusStopped, "")
			l.saveSnapshot()
			return
		case <-ticker.C:
			if handle.Paused() {
				continue
			}
			l.tick(ctx)
			if l.terminal() {
				handle.MarkFinished()
				return
			}
		}
	}
}

// tick runs one evaluation cycle. Transient failures are absorbed here;
// nothing escaping this method may crash the process.
func (l *StrategyLoop) tick(ctx context.Context) {
	started := l.deps.now()
	defer func() {
		l.mu.Lock()
		l.state.LastTickAt = started
		l.state.LoopDurationMs = l.deps.now().Sub(started).Milliseconds()
		l.mu.Unlock()
		l.saveSnapshot()
	}()

	l.rollDay(started)

	// Terminal guards before any work.
	if l.state.Status != StatusRunning {
		return
	}
	if l.cfg.MaxTrades > 0 && l.state.TradesMade >= l.cfg.MaxTrades {
		l.complete()
		return
	}
	if l.cfg.HaltOnFailures > 0 && l.state.ConsecutiveFailures >= l.cfg.HaltOnFailures {
		l.halt("errors")
		return
	}

	tickFailures := 0

	fetchCtx, cancel := context.WithTimeout(ctx, l.deps.Timeouts.Fetch())
	candidates, err := l.policy.Candidates(fetchCtx)
	cancel()
	if err != nil {
		l.noteTransientFailure(fmt.Errorf("candidate resolution failed: %w", err))
		return
	}

	// Most urgent candidate first; the per-tick trade budget may only
	// cover one action.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	for _, candidate := range candidates {
		if ctx.Err() != nil || l.state.Status != StatusRunning {
			return
		}
		if l.cfg.MaxTrades > 0 && l.state.TradesMade >= l.cfg.MaxTrades {
			break
		}

		err := l.processCandidate(ctx, candidate)
		if err == nil {
			continue
		}
		if capErr, ok := AsCapExceeded(err); ok {
			l.logger.Info("Trade guard blocked candidate",
				zap.String("mint", candidate.Mint), zap.String("cap", string(capErr.Kind)))
			// Exhausted run-wide budgets end the tick; a per-candidate
			// cap only skips this candidate.
			if capErr.Kind == CapTotalTrades || capErr.Kind == CapDaily {
				break
			}
			continue
		}
		tickFailures++
		l.noteTransientFailure(err)
		if l.state.Status != StatusRunning {
			return
		}
	}

	// An error-free pass proves the pipeline works end to end, traded
	// or not; only transient exceptions keep the streak alive.
	if tickFailures == 0 {
		l.mu.Lock()
		l.state.ConsecutiveFailures = 0
		l.mu.Unlock()
	}

	if l.cfg.MaxTrades > 0 && l.state.TradesMade >= l.cfg.MaxTrades {
		l.complete()
	}
}

// processCandidate runs one candidate through cooldown, gates, safety,
// guards, quote and execution. A nil return is either a trade or an
// expected skip; CapExceededError and transient errors come back to the
// tick for triage.
func (l *StrategyLoop) processCandidate(ctx context.Context, candidate Candidate) error {
	if wait := l.cooldown.Peek(candidate.Mint); wait > 0 {
		l.bump(func(s *RunState) { s.CooldownSkips++ })
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.deps.Timeouts.Fetch())
	overview := l.deps.Data.Overview(fetchCtx, candidate.Mint)
	cancel()

	if pass, reason := l.policy.Evaluate(ctx, candidate, overview); !pass {
		l.bump(func(s *RunState) { s.GateSkips++ })
		l.logger.Debug("Candidate failed gates",
			zap.String("mint", candidate.Mint), zap.String("reason", reason))
		return nil
	}

	if !l.cfg.DisableSafety {
		checkCtx, cancel := context.WithTimeout(ctx, l.deps.Timeouts.Fetch())
		report, err := l.deps.Safety.Check(checkCtx, candidate.Mint)
		cancel()
		if err != nil {
			return fmt.Errorf("safety check errored for %s: %w", candidate.Mint, err)
		}
		if !report.Passed() {
			// Rejected by policy, not an execution error.
			l.bump(func(s *RunState) { s.SafetySkips++ })
			l.logger.Info("Candidate failed safety checks",
				zap.String("mint", candidate.Mint),
				zap.Strings("reasons", report.FailReasons()))
			return nil
		}
	}

	amountSOL := candidate.AmountSOL
	if amountSOL == 0 {
		amountSOL = l.cfg.PositionSizeSOL
	}
	if amountSOL <= 0 {
		return fmt.Errorf("computed trade size for %s is zero", candidate.Mint)
	}

	if err := CheckTradeCap(l.state.TradesMade, l.cfg.MaxTrades); err != nil {
		return err
	}
	if err := CheckDailyLimit(amountSOL, l.state.SpentTodaySOL, l.cfg.MaxDailyVolumeSOL); err != nil {
		return err
	}
	openCount, err := l.deps.Store.CountOpenTrades(l.cfg.ID, l.deps.Wallet)
	if err != nil {
		return fmt.Errorf("failed to count open trades: %w", err)
	}
	if err := CheckOpenTradeCap(l.cfg.ID, openCount, l.cfg.MaxOpenTrades); err != nil {
		return err
	}

	quoteCtx, cancel := context.WithTimeout(ctx, l.deps.Timeouts.Fetch())
	result := GetSafeQuote(quoteCtx, l.deps.Quotes, SafeQuoteRequest{
		InputMint:      l.cfg.BaseMint,
		OutputMint:     candidate.Mint,
		AmountLamports: uint64(amountSOL * lamportsPerSOL),
		SlippageBps:    l.cfg.SlippageBps,
		MaxImpactPct:   NormalizePct(l.cfg.MaxImpactPct),
	})
	cancel()
	if !result.OK {
		// Quote rejection is expected and normal; count it and move on.
		l.bump(func(s *RunState) { s.Rejects[result.Reason]++ })
		l.logger.Info("Quote refused",
			zap.String("mint", candidate.Mint),
			zap.String("reason", string(result.Reason)),
			zap.String("detail", result.Message))
		return nil
	}

	meta := l.policy.TradeMeta(candidate)
	tradeCtx, cancel := context.WithTimeout(ctx, l.deps.Timeouts.Trade())
	signature, err := l.deps.Executor.Execute(tradeCtx, ExecRequest{
		Quote:  result.Quote,
		Mint:   candidate.Mint,
		Meta:   meta,
		DryRun: l.cfg.DryRun,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("trade execution failed for %s: %w", candidate.Mint, err)
	}

	l.bump(func(s *RunState) {
		s.ConsecutiveFailures = 0
		s.TradesMade++
		s.SpentTodaySOL += amountSOL
	})
	l.cooldown.Hit(candidate.Mint)
	l.policy.OnTrade(candidate)

	outAmount := result.Quote.OutAmountFloat()
	record := &models.Trade{
		Strategy:      l.cfg.ID,
		Mint:          candidate.Mint,
		Wallet:        l.deps.Wallet,
		InAmountSOL:   amountSOL,
		OutAmount:     outAmount,
		RemainingOut:  outAmount,
		ImpactPct:     result.ImpactPct,
		Signature:     signature,
		TakeProfitPct: meta.TakeProfitPct,
		StopLossPct:   meta.StopLossPct,
		Timestamp:     l.deps.now().Unix(),
		IsSimulation:  l.cfg.DryRun,
	}
	if err := l.deps.Store.AppendTrade(record); err != nil {
		// The trade is on chain; losing the record must not unwind it.
		l.logger.Error("Failed to persist trade record", zap.Error(err))
	}

	l.logger.Info("Trade executed",
		zap.String("mint", candidate.Mint),
		zap.Float64("amount_sol", amountSOL),
		zap.Float64("impact_pct", result.ImpactPct),
		zap.String("signature", signature))
	l.deps.Notifier.Notify(ctx, fmt.Sprintf("[%s] %s bought %s for %.4f SOL (impact %.2f%%, tx %s)",
		l.cfg.ID, meta.Category, candidate.Mint, amountSOL, result.ImpactPct*100, signature))

	return nil
}

// noteTransientFailure advances the failure streak and halts once the
// configured threshold is reached.
func (l *StrategyLoop) noteTransientFailure(err error) {
	l.mu.Lock()
	l.state.ConsecutiveFailures++
	failures := l.state.ConsecutiveFailures
	l.mu.Unlock()

	l.logger.Error("Transient failure",
		zap.Int("consecutive_failures", failures), zap.Error(err))
	l.deps.Notifier.Notify(context.Background(),
		fmt.Sprintf("[%s] error (%d in a row): %v", l.cfg.ID, failures, err))

	if l.cfg.HaltOnFailures > 0 && failures >= l.cfg.HaltOnFailures {
		l.halt("errors")
	}
}

// halt is the terminal error-driven stop: final status, one summary.
func (l *StrategyLoop) halt(reason string) {
	l.setStatus(StatusHalted, reason)
	summary := fmt.Sprintf("[%s] halted: %s, %s", l.cfg.ID, reason, l.counters())
	l.logger.Warn("Strategy halted", zap.String("reason", reason))
	l.deps.Notifier.Notify(context.Background(), summary)
	l.saveSnapshot()
}

// complete is the normal terminal state once max trades are done.
func (l *StrategyLoop) complete() {
	l.setStatus(StatusCompleted, "")
	summary := fmt.Sprintf("[%s] completed, %s", l.cfg.ID, l.counters())
	l.logger.Info("Strategy completed")
	l.deps.Notifier.Notify(context.Background(), summary)
	l.saveSnapshot()
}

func (l *StrategyLoop) counters() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("%d trades, %.4f SOL spent today, %d gate skips, %d safety skips",
		l.state.TradesMade, l.state.SpentTodaySOL, l.state.GateSkips, l.state.SafetySkips)
}

func (l *StrategyLoop) setStatus(status, haltReason string) {
	l.mu.Lock()
	l.state.Status = status
	l.state.HaltReason = haltReason
	l.mu.Unlock()
}

func (l *StrategyLoop) terminal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Status == StatusHalted || l.state.Status == StatusCompleted
}

func (l *StrategyLoop) bump(update func(*RunState)) {
	l.mu.Lock()
	update(&l.state)
	l.mu.Unlock()
}

// rollDay resets the daily spend total when the UTC day changes.
func (l *StrategyLoop) rollDay(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if day.After(l.dayStart) {
		l.dayStart = day
		l.bump(func(s *RunState) { s.SpentTodaySOL = 0 })
	}
}

// Snapshot returns a copy of the current state for status display.
func (l *StrategyLoop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	rejects := make(map[string]int, len(l.state.Rejects))
	for reason, count := range l.state.Rejects {
		rejects[string(reason)] = count
	}
	return Snapshot{
		BotID:               l.botID,
		Kind:                l.cfg.Kind,
		Status:              l.state.Status,
		HaltReason:          l.state.HaltReason,
		TradesMade:          l.state.TradesMade,
		ConsecutiveFailures: l.state.ConsecutiveFailures,
		SpentTodaySOL:       l.state.SpentTodaySOL,
		LastTickAt:          l.state.LastTickAt,
		LoopDurationMs:      l.state.LoopDurationMs,
		StartedAt:           l.startedAt,
		Uptime:              l.deps.now().Sub(l.startedAt).String(),
		CooldownSkips:       l.state.CooldownSkips,
		GateSkips:           l.state.GateSkips,
		SafetySkips:         l.state.SafetySkips,
		Rejects:             rejects,
	}
}

// saveSnapshot writes the advisory status row; best effort.
func (l *StrategyLoop) saveSnapshot() {
	snap := l.Snapshot()
	notes := snap.HaltReason
	row := &models.RunSnapshot{
		BotID:               l.botID,
		Strategy:            l.cfg.Kind,
		Status:              snap.Status,
		TradesMade:          snap.TradesMade,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		SpentTodaySOL:       snap.SpentTodaySOL,
		LastTickAt:          snap.LastTickAt.Unix(),
		LoopDurationMs:      snap.LoopDurationMs,
		Notes:               notes,
	}
	if err := l.deps.Store.SaveSnapshot(row); err != nil {
		l.logger.Debug("Failed to save run snapshot", zap.Error(err))
	}
}
