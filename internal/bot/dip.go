package bot

import (
	"context"
	"fmt"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
)

// DipBuyerPolicy buys trending tokens that pulled back hard inside the
// lookback window. Deeper dips rank higher; the overview read here is
// served again from cache when the loop evaluates gates.
type DipBuyerPolicy struct {
	basePolicy
	deps PolicyDeps
}

func (p *DipBuyerPolicy) Kind() string { return config.KindDipBuyer }

func (p *DipBuyerPolicy) Candidates(ctx context.Context) ([]Candidate, error) {
	mints, err := p.deps.Resolver.Resolve(ctx, p.deps.Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dip-buyer candidates: %w", err)
	}
	candidates := make([]Candidate, 0, len(mints))
	for _, mint := range mints {
		ov := p.deps.Data.Overview(ctx, mint)
		change, ok := ov.ChangeIn(p.deps.Cfg.LookbackWindow)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{
			Mint:  mint,
			Score: -change, // deepest dip first
		})
	}
	return candidates, nil
}

func (p *DipBuyerPolicy) Evaluate(_ context.Context, _ Candidate, ov market.Overview) (bool, string) {
	cfg := p.deps.Cfg
	if ok, reason := gateHasPrice(ov); !ok {
		return false, reason
	}
	if ok, reason := gateDipAtLeast(ov, cfg.LookbackWindow, cfg.DipPct); !ok {
		return false, reason
	}
	if ok, reason := gateVolumeFloor(ov, cfg.LookbackWindow, cfg.VolumeFloorUSD); !ok {
		return false, reason
	}
	if ok, reason := gateMarketCap(ov, cfg.MinMarketCapUSD, cfg.MaxMarketCapUSD); !ok {
		return false, reason
	}
	return true, ""
}

func (p *DipBuyerPolicy) TradeMeta(Candidate) TradeMeta {
	return TradeMeta{
		Strategy:      p.deps.Cfg.ID,
		Category:      "dip-buy",
		TakeProfitPct: NormalizePct(p.deps.Cfg.TakeProfitPct),
		StopLossPct:   NormalizePct(p.deps.Cfg.StopLossPct),
	}
}
