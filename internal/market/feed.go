package market

import (
	"context"
	"fmt"

	"solana-trade-bot-go/internal/config"
)

// FeedSource is the slice of the market client the resolver needs.
type FeedSource interface {
	Trending(ctx context.Context, limit int) ([]string, error)
	NewListings(ctx context.Context, limit int) ([]string, error)
}

// Resolver turns a strategy config into this tick's candidate mints.
// A user-supplied token list always wins over the default feed for the
// strategy kind.
type Resolver struct {
	source FeedSource
	limit  int
}

// NewResolver creates a Resolver with a per-feed fetch limit.
func NewResolver(source FeedSource, limit int) *Resolver {
	return &Resolver{source: source, limit: limit}
}

// Resolve returns a deduplicated candidate list for one tick.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.StrategyConfig) ([]string, error) {
	if len(cfg.Tokens) > 0 {
		return dedupe(cfg.Tokens), nil
	}

	switch cfg.Kind {
	case config.KindSniper:
		mints, err := r.source.NewListings(ctx, r.limit)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve new-listing feed: %w", err)
		}
		return dedupe(mints), nil
	case config.KindDipBuyer, config.KindRotation:
		mints, err := r.source.Trending(ctx, r.limit)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve trending feed: %w", err)
		}
		return dedupe(mints), nil
	case config.KindRebalancer:
		mints := make([]string, 0, len(cfg.TargetWeights))
		for mint := range cfg.TargetWeights {
			mints = append(mints, mint)
		}
		return dedupe(mints), nil
	default:
		// Scheduled and iceberg strategies act on an explicit token
		// list; reaching here means validation let a bad config through.
		return nil, fmt.Errorf("strategy kind %s has no default feed and no token list", cfg.Kind)
	}
}

func dedupe(mints []string) []string {
	seen := make(map[string]struct{}, len(mints))
	out := make([]string, 0, len(mints))
	for _, m := range mints {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
