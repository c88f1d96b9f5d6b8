package bot

import (
	"context"
	"testing"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/market"
	"solana-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func policyDeps(cfg *config.StrategyConfig, data *stubData) PolicyDeps {
	return PolicyDeps{
		Cfg:      cfg,
		Resolver: &stubResolver{},
		Data:     data,
		Store:    &memStore{},
		Wallet:   "wallet-1",
		Logger:   zap.NewNop(),
	}
}

func TestNewPolicyUnknownKind(t *testing.T) {
	cfg := baseSniperConfig()
	cfg.Kind = "martingale"
	_, err := NewPolicy(policyDeps(cfg, &stubData{}))
	require.Error(t, err)
}

func TestSniperCandidatesRankNewestFirst(t *testing.T) {
	cfg := baseSniperConfig()
	deps := policyDeps(cfg, &stubData{})
	deps.Resolver = &stubResolver{mints: []string{"MintNew", "MintOld"}}
	policy := &SniperPolicy{deps: deps}

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Greater(t, candidates[0].Score, candidates[1].Score)
	assert.Equal(t, "MintNew", candidates[0].Mint)
}

func TestDipBuyerRanksDeepestDipFirst(t *testing.T) {
	cfg := baseSniperConfig()
	cfg.Kind = config.KindDipBuyer
	cfg.DipPct = 5
	data := &stubData{overviews: map[string]market.Overview{
		"MintShallow": {Fetched: true, Price: 1, Change: map[string]float64{"1h": -0.02}},
		"MintDeep":    {Fetched: true, Price: 1, Change: map[string]float64{"1h": -0.15}},
	}}
	deps := policyDeps(cfg, data)
	deps.Resolver = &stubResolver{mints: []string{"MintShallow", "MintDeep"}}
	policy := &DipBuyerPolicy{deps: deps}

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byMint := map[string]float64{}
	for _, c := range candidates {
		byMint[c.Mint] = c.Score
	}
	assert.Greater(t, byMint["MintDeep"], byMint["MintShallow"])

	// Only the deep dip clears the 5% gate.
	ok, _ := policy.Evaluate(context.Background(), Candidate{}, data.overviews["MintDeep"])
	assert.True(t, ok)
	ok, _ = policy.Evaluate(context.Background(), Candidate{}, data.overviews["MintShallow"])
	assert.False(t, ok)
}

func TestRotationRanksStrongestMomentumFirst(t *testing.T) {
	cfg := baseSniperConfig()
	cfg.Kind = config.KindRotation
	data := &stubData{overviews: map[string]market.Overview{
		"MintWeak":   {Fetched: true, Price: 1, Change: map[string]float64{"1h": 0.01}},
		"MintStrong": {Fetched: true, Price: 1, Change: map[string]float64{"1h": 0.2}},
	}}
	deps := policyDeps(cfg, data)
	deps.Resolver = &stubResolver{mints: []string{"MintWeak", "MintStrong"}}
	policy := &RotationPolicy{deps: deps}

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byMint := map[string]float64{}
	for _, c := range candidates {
		byMint[c.Mint] = c.Score
	}
	assert.Greater(t, byMint["MintStrong"], byMint["MintWeak"])
}

func scheduledConfig() *config.StrategyConfig {
	return &config.StrategyConfig{
		ID:              "ladder-1",
		Kind:            config.KindScheduled,
		TickIntervalSec: 1,
		BaseMint:        "So11111111111111111111111111111111111111112",
		Tokens:          []string{"MintA"},
		LimitTiers: []config.LimitTier{
			{PriceBelow: 1.0, SizeSOL: 0.1},
			{PriceBelow: 0.9, SizeSOL: 0.2},
			{PriceBelow: 0.5, SizeSOL: 0.3},
		},
	}
}

func TestScheduledTriggersUndercutTiers(t *testing.T) {
	cfg := scheduledConfig()
	data := &stubData{overviews: map[string]market.Overview{
		"MintA": {Fetched: true, Price: 0.8},
	}}
	policy := NewScheduledPolicy(policyDeps(cfg, data))

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2, "the 0.5 tier has not triggered at price 0.8")

	// Deeper undercut ranks higher: tier 0 is undercut by more.
	byRef := map[string]Candidate{}
	for _, c := range candidates {
		byRef[c.Ref] = c
	}
	assert.Greater(t, byRef["0"].Score, byRef["1"].Score)
	assert.InDelta(t, 0.1, byRef["0"].AmountSOL, 1e-9)
	assert.InDelta(t, 0.2, byRef["1"].AmountSOL, 1e-9)
}

func TestScheduledTierFillsOnce(t *testing.T) {
	cfg := scheduledConfig()
	data := &stubData{overviews: map[string]market.Overview{
		"MintA": {Fetched: true, Price: 0.8},
	}}
	policy := NewScheduledPolicy(policyDeps(cfg, data))

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	policy.OnTrade(candidates[0])

	remaining, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.NotEqual(t, candidates[0].Ref, remaining[0].Ref)
}

func TestScheduledNoPriceNoCandidates(t *testing.T) {
	cfg := scheduledConfig()
	data := &stubData{overviews: map[string]market.Overview{}}
	policy := NewScheduledPolicy(policyDeps(cfg, data))

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestIcebergSlicesEvenly(t *testing.T) {
	cfg := &config.StrategyConfig{
		ID:              "berg-1",
		Kind:            config.KindIceberg,
		TickIntervalSec: 1,
		BaseMint:        "So11111111111111111111111111111111111111112",
		Tokens:          []string{"MintA"},
		TotalSizeSOL:    2,
		Slices:          8,
	}
	policy := &IcebergPolicy{deps: policyDeps(cfg, &stubData{})}

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "MintA", candidates[0].Mint)
	assert.InDelta(t, 0.25, candidates[0].AmountSOL, 1e-9)
}

type positionsStore struct {
	memStore
	positions []models.Trade
}

func (p *positionsStore) OpenTrades(_, _ string) ([]models.Trade, error) {
	return p.positions, nil
}

func TestRebalancerTopsUpUnderweightTargets(t *testing.T) {
	cfg := &config.StrategyConfig{
		ID:              "rebal-1",
		Kind:            config.KindRebalancer,
		TickIntervalSec: 1,
		BaseMint:        "So11111111111111111111111111111111111111112",
		PositionSizeSOL: 1,
		DriftPct:        5,
		TargetWeights:   map[string]float64{"MintA": 50, "MintB": 50},
	}
	data := &stubData{overviews: map[string]market.Overview{
		"MintA": {Fetched: true, Price: 1},
		"MintB": {Fetched: true, Price: 1},
	}}
	// MintA holds 90% of value; MintB is far underweight.
	deps := policyDeps(cfg, data)
	deps.Store = &positionsStore{positions: []models.Trade{
		{Mint: "MintA", RemainingOut: 90},
		{Mint: "MintB", RemainingOut: 10},
	}}
	policy := &RebalancerPolicy{deps: deps}

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "MintB", candidates[0].Mint)
	assert.InDelta(t, 0.4, candidates[0].Score, 1e-9)
	// Budget scales with the gap: 0.4 gap against a 0.5 target.
	assert.InDelta(t, 0.8, candidates[0].AmountSOL, 1e-9)
}

func TestRebalancerBalancedPortfolioIsQuiet(t *testing.T) {
	cfg := &config.StrategyConfig{
		ID:              "rebal-1",
		Kind:            config.KindRebalancer,
		TickIntervalSec: 1,
		BaseMint:        "So11111111111111111111111111111111111111112",
		PositionSizeSOL: 1,
		DriftPct:        5,
		TargetWeights:   map[string]float64{"MintA": 50, "MintB": 50},
	}
	data := &stubData{overviews: map[string]market.Overview{
		"MintA": {Fetched: true, Price: 1},
		"MintB": {Fetched: true, Price: 1},
	}}
	deps := policyDeps(cfg, data)
	deps.Store = &positionsStore{positions: []models.Trade{
		{Mint: "MintA", RemainingOut: 50},
		{Mint: "MintB", RemainingOut: 50},
	}}
	policy := &RebalancerPolicy{deps: deps}

	candidates, err := policy.Candidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestPolicyKindsRoundTrip(t *testing.T) {
	kinds := []string{
		config.KindSniper, config.KindDipBuyer, config.KindRebalancer,
		config.KindRotation, config.KindScheduled, config.KindIceberg,
	}
	for _, kind := range kinds {
		cfg := scheduledConfig()
		cfg.Kind = kind
		cfg.TargetWeights = map[string]float64{"MintA": 100}
		policy, err := NewPolicy(policyDeps(cfg, &stubData{}))
		require.NoError(t, err, kind)
		assert.Equal(t, kind, policy.Kind())
	}
}
