package bot

import (
	"context"
	"fmt"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
)

// RebalancerPolicy tops up portfolio positions that drifted under their
// target weight. Candidates are ordered by distance from target so the
// most underweight asset is corrected first.
type RebalancerPolicy struct {
	basePolicy
	deps PolicyDeps
}

func (p *RebalancerPolicy) Kind() string { return config.KindRebalancer }

func (p *RebalancerPolicy) Candidates(ctx context.Context) ([]Candidate, error) {
	cfg := p.deps.Cfg

	trades, err := p.deps.Store.OpenTrades(cfg.ID, p.deps.Wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to load rebalancer positions: %w", err)
	}

	// Current USD value per held mint.
	valueByMint := make(map[string]float64)
	var totalUSD float64
	for _, t := range trades {
		ov := p.deps.Data.Overview(ctx, t.Mint)
		if !ov.Fetched {
			continue
		}
		v := t.RemainingOut * ov.Price
		valueByMint[t.Mint] += v
		totalUSD += v
	}

	drift := NormalizePct(cfg.DriftPct)
	var candidates []Candidate
	for mint, target := range cfg.TargetWeights {
		targetFrac := NormalizePct(target)
		var weight float64
		if totalUSD > 0 {
			weight = valueByMint[mint] / totalUSD
		}
		gap := targetFrac - weight
		if gap <= drift {
			continue
		}
		// Budget per correction is capped by the configured position
		// size; an empty portfolio buys each target proportionally.
		amount := cfg.PositionSizeSOL
		if totalUSD > 0 && gap < targetFrac {
			amount = cfg.PositionSizeSOL * gap / targetFrac
		}
		candidates = append(candidates, Candidate{
			Mint:      mint,
			Score:     gap, // most underweight first
			AmountSOL: amount,
		})
	}
	return candidates, nil
}

func (p *RebalancerPolicy) Evaluate(_ context.Context, _ Candidate, ov market.Overview) (bool, string) {
	if ok, reason := gateHasPrice(ov); !ok {
		return false, reason
	}
	if ok, reason := gateVolumeFloor(ov, p.deps.Cfg.LookbackWindow, p.deps.Cfg.VolumeFloorUSD); !ok {
		return false, reason
	}
	return true, ""
}

func (p *RebalancerPolicy) TradeMeta(Candidate) TradeMeta {
	return TradeMeta{
		Strategy: p.deps.Cfg.ID,
		Category: "rebalance",
	}
}
