package bot

import (
	"context"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
)

// IcebergPolicy drips a large order into the market as equal slices,
// one per tick. The loop's max-trades budget is the slice count, so the
// run completes when the full size has been worked.
type IcebergPolicy struct {
	basePolicy
	deps PolicyDeps
}

func (p *IcebergPolicy) Kind() string { return config.KindIceberg }

func (p *IcebergPolicy) Candidates(context.Context) ([]Candidate, error) {
	cfg := p.deps.Cfg
	return []Candidate{{
		Mint:      cfg.Tokens[0],
		AmountSOL: cfg.TotalSizeSOL / float64(cfg.Slices),
	}}, nil
}

func (p *IcebergPolicy) Evaluate(_ context.Context, _ Candidate, ov market.Overview) (bool, string) {
	if ok, reason := gateHasPrice(ov); !ok {
		return false, reason
	}
	// A volume floor keeps slices out of dead books where even a small
	// clip would move the price.
	return gateVolumeFloor(ov, p.deps.Cfg.LookbackWindow, p.deps.Cfg.VolumeFloorUSD)
}

func (p *IcebergPolicy) TradeMeta(Candidate) TradeMeta {
	return TradeMeta{
		Strategy: p.deps.Cfg.ID,
		Category: "iceberg-slice",
	}
}
