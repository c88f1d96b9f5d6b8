package bot

import (
	"context"
	"fmt"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
)

// SniperPolicy buys freshly listed tokens that clear the age, volume,
// market-cap and momentum gates. Candidates come from the new-listing
// feed; newer listings rank higher.
type SniperPolicy struct {
	basePolicy
	deps PolicyDeps
}

func (p *SniperPolicy) Kind() string { return config.KindSniper }

func (p *SniperPolicy) Candidates(ctx context.Context) ([]Candidate, error) {
	mints, err := p.deps.Resolver.Resolve(ctx, p.deps.Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sniper candidates: %w", err)
	}
	candidates := make([]Candidate, 0, len(mints))
	for i, mint := range mints {
		candidates = append(candidates, Candidate{
			Mint:  mint,
			Score: float64(len(mints) - i), // feed order: newest first
		})
	}
	return candidates, nil
}

func (p *SniperPolicy) Evaluate(_ context.Context, _ Candidate, ov market.Overview) (bool, string) {
	cfg := p.deps.Cfg
	if ok, reason := gateHasPrice(ov); !ok {
		return false, reason
	}
	if ok, reason := gateTokenAge(ov, p.deps.now(), cfg.MinTokenAgeMin, cfg.MaxTokenAgeMin); !ok {
		return false, reason
	}
	if ok, reason := gateVolumeFloor(ov, cfg.LookbackWindow, cfg.VolumeFloorUSD); !ok {
		return false, reason
	}
	if ok, reason := gateMarketCap(ov, cfg.MinMarketCapUSD, cfg.MaxMarketCapUSD); !ok {
		return false, reason
	}
	if ok, reason := gateChangeAtLeast(ov, cfg.LookbackWindow, cfg.EntryChangePct); !ok {
		return false, reason
	}
	return true, ""
}

func (p *SniperPolicy) TradeMeta(Candidate) TradeMeta {
	return TradeMeta{
		Strategy:      p.deps.Cfg.ID,
		Category:      "snipe",
		TakeProfitPct: NormalizePct(p.deps.Cfg.TakeProfitPct),
		StopLossPct:   NormalizePct(p.deps.Cfg.StopLossPct),
	}
}
