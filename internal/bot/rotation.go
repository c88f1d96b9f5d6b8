package bot

import (
	"context"
	"fmt"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
)

// RotationPolicy rotates into the strongest trending token each tick.
// Candidates are scored by lookback momentum so the single most
// attractive rotation happens first when the trade budget is tight.
type RotationPolicy struct {
	basePolicy
	deps PolicyDeps
}

func (p *RotationPolicy) Kind() string { return config.KindRotation }

func (p *RotationPolicy) Candidates(ctx context.Context) ([]Candidate, error) {
	mints, err := p.deps.Resolver.Resolve(ctx, p.deps.Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rotation candidates: %w", err)
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
			Score: change, // strongest momentum first
		})
	}
	return candidates, nil
}

func (p *RotationPolicy) Evaluate(_ context.Context, _ Candidate, ov market.Overview) (bool, string) {
	cfg := p.deps.Cfg
	if ok, reason := gateHasPrice(ov); !ok {
		return false, reason
	}
	if ok, reason := gateChangeAtLeast(ov, cfg.LookbackWindow, cfg.EntryChangePct); !ok {
		return false, reason
	}
	if ok, reason := gateVolumeFloor(ov, cfg.LookbackWindow, cfg.VolumeFloorUSD); !ok {
		return false, reason
	}
	if ok, reason := gateMarketCap(ov, cfg.MinMarketCapUSD, cfg.MaxMarketCapUSD); !ok {
		return false, reason
	}
	if ok, reason := gateTokenAge(ov, p.deps.now(), cfg.MinTokenAgeMin, cfg.MaxTokenAgeMin); !ok {
		return false, reason
	}
	return true, ""
}

func (p *RotationPolicy) TradeMeta(Candidate) TradeMeta {
	return TradeMeta{
		Strategy:      p.deps.Cfg.ID,
		Category:      "rotate",
		TakeProfitPct: NormalizePct(p.deps.Cfg.TakeProfitPct),
		StopLossPct:   NormalizePct(p.deps.Cfg.StopLossPct),
	}
}
