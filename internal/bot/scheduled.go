package bot

import (
	"context"
	"strconv"
	"sync"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
)

// ScheduledPolicy fills configured limit tiers: each tier buys a fixed
// size once the token's price drops below the tier's level. When
// several tiers trigger at once, the tier the price undercuts by the
// most fills first.
type ScheduledPolicy struct {
	basePolicy
	deps PolicyDeps

	mu     sync.Mutex
	filled []bool
}

// NewScheduledPolicy creates a limit-tier policy with all tiers open.
func NewScheduledPolicy(deps PolicyDeps) *ScheduledPolicy {
	return &ScheduledPolicy{
		deps:   deps,
		filled: make([]bool, len(deps.Cfg.LimitTiers)),
	}
}

func (p *ScheduledPolicy) Kind() string { return config.KindScheduled }

func (p *ScheduledPolicy) Candidates(ctx context.Context) ([]Candidate, error) {
	cfg := p.deps.Cfg
	mint := cfg.Tokens[0]

	ov := p.deps.Data.Overview(ctx, mint)
	if !ov.Fetched || ov.Price <= 0 {
		return nil, nil // no price, nothing triggers this tick
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var candidates []Candidate
	for i, tier := range cfg.LimitTiers {
		if p.filled[i] || tier.PriceBelow <= 0 || ov.Price > tier.PriceBelow {
			continue
		}
		candidates = append(candidates, Candidate{
			Mint:      mint,
			Score:     (tier.PriceBelow - ov.Price) / tier.PriceBelow, // deepest undercut first
			AmountSOL: tier.SizeSOL,
			Ref:       strconv.Itoa(i),
		})
	}
	return candidates, nil
}

func (p *ScheduledPolicy) Evaluate(_ context.Context, _ Candidate, ov market.Overview) (bool, string) {
	// Tier selection already checked the price; only the data gate remains.
	return gateHasPrice(ov)
}

func (p *ScheduledPolicy) TradeMeta(c Candidate) TradeMeta {
	return TradeMeta{
		Strategy:      p.deps.Cfg.ID,
		Category:      "limit-tier-" + c.Ref,
		TakeProfitPct: NormalizePct(p.deps.Cfg.TakeProfitPct),
		StopLossPct:   NormalizePct(p.deps.Cfg.StopLossPct),
	}
}

// OnTrade marks the candidate's tier filled so it never re-fires.
func (p *ScheduledPolicy) OnTrade(c Candidate) {
	idx, err := strconv.Atoi(c.Ref)
	if err != nil || idx < 0 || idx >= len(p.filled) {
		return
	}
	p.mu.Lock()
	p.filled[idx] = true
	p.mu.Unlock()
}
