package bot

import (
	"context"
	"fmt"
	"time"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
	"solana-trade-bot-go/internal/models"
	"solana-trade-bot-go/internal/safety"

	"go.uber.org/zap"
)

// MarketData is the slice of the market client the loop and policies
// consume.
type MarketData interface {
	Overview(ctx context.Context, mint string) market.Overview
}

// SafetySource aggregates token safety checks.
type SafetySource interface {
	Check(ctx context.Context, mint string) (safety.Report, error)
}

// CandidateResolver turns a strategy config into candidate mints.
type CandidateResolver interface {
	Resolve(ctx context.Context, cfg *config.StrategyConfig) ([]string, error)
}

// TradeStore is the persistence surface the loop and policies need.
type TradeStore interface {
	AppendTrade(trade *models.Trade) error
	CountOpenTrades(strategy, wallet string) (int, error)
	OpenTrades(strategy, wallet string) ([]models.Trade, error)
	SpentSince(wallet string, since time.Time) (float64, error)
	SaveSnapshot(snap *models.RunSnapshot) error
}

// Candidate is one asset under evaluation this tick. Score orders
// candidates within a tick, highest urgency first. AmountSOL overrides
// the configured position size when nonzero.
type Candidate struct {
	Mint      string
	Score     float64
	AmountSOL float64
	Ref       string // opaque policy-private reference (e.g. a limit tier)
}

// TradeMeta travels with an executed trade for bookkeeping.
type TradeMeta struct {
	Strategy      string
	Category      string
	TakeProfitPct float64
	StopLossPct   float64
}

// Policy is what distinguishes one strategy kind from another. The
// shared tick/halt/summary machinery lives in StrategyLoop; a policy
// only decides what to look at, which gates apply, and what a resulting
// trade means.
type Policy interface {
	// Kind returns the strategy kind this policy implements.
	Kind() string

	// Candidates resolves this tick's candidate list.
	Candidates(ctx context.Context) ([]Candidate, error)

	// Evaluate applies the policy's numeric gates to one candidate,
	// short-circuiting on the first failure. Returns pass plus the
	// failing gate's reason.
	Evaluate(ctx context.Context, c Candidate, ov market.Overview) (bool, string)

	// TradeMeta describes a trade on this candidate for bookkeeping.
	TradeMeta(c Candidate) TradeMeta

	// OnTrade tells the policy a trade on this candidate succeeded, for
	// policies that track per-candidate progress. Most ignore it.
	OnTrade(c Candidate)
}

// PolicyDeps carries the collaborators available to every policy,
// mirroring how the engine hands strategies a shared context.
type PolicyDeps struct {
	Cfg      *config.StrategyConfig
	Resolver CandidateResolver
	Data     MarketData
	Store    TradeStore
	Wallet   string // owning wallet address
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d *PolicyDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewPolicy builds the concrete policy for a validated config.
func NewPolicy(deps PolicyDeps) (Policy, error) {
	switch deps.Cfg.Kind {
	case config.KindSniper:
		return &SniperPolicy{deps: deps}, nil
	case config.KindDipBuyer:
		return &DipBuyerPolicy{deps: deps}, nil
	case config.KindRebalancer:
		return &RebalancerPolicy{deps: deps}, nil
	case config.KindRotation:
		return &RotationPolicy{deps: deps}, nil
	case config.KindScheduled:
		return NewScheduledPolicy(deps), nil
	case config.KindIceberg:
		return &IcebergPolicy{deps: deps}, nil
	default:
		return nil, fmt.Errorf("no policy for strategy kind %q", deps.Cfg.Kind)
	}
}

// basePolicy provides the no-op OnTrade most policies want.
type basePolicy struct{}

func (basePolicy) OnTrade(Candidate) {}
