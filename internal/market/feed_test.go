package market

import (
	"context"
	"fmt"
	"testing"

	"solana-trade-bot-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	trending    []string
	newListings []string
	err         error
}

func (s *stubFeed) Trending(context.Context, int) ([]string, error) {
	return s.trending, s.err
}

func (s *stubFeed) NewListings(context.Context, int) ([]string, error) {
	return s.newListings, s.err
}

func TestResolveTokenListOverridesFeed(t *testing.T) {
	resolver := NewResolver(&stubFeed{newListings: []string{"MintFeed"}}, 50)

	mints, err := resolver.Resolve(context.Background(), &config.StrategyConfig{
		Kind:   config.KindSniper,
		Tokens: []string{"MintX", "MintY", "MintX", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"MintX", "MintY"}, mints, "explicit tokens win, deduplicated")
}

func TestResolveFeedByKind(t *testing.T) {
	feed := &stubFeed{
		trending:    []string{"MintHot", "MintHot", "MintWarm"},
		newListings: []string{"MintFresh"},
	}
	resolver := NewResolver(feed, 50)

	mints, err := resolver.Resolve(context.Background(), &config.StrategyConfig{Kind: config.KindSniper})
	require.NoError(t, err)
	assert.Equal(t, []string{"MintFresh"}, mints)

	mints, err = resolver.Resolve(context.Background(), &config.StrategyConfig{Kind: config.KindDipBuyer})
	require.NoError(t, err)
	assert.Equal(t, []string{"MintHot", "MintWarm"}, mints)

	mints, err = resolver.Resolve(context.Background(), &config.StrategyConfig{Kind: config.KindRotation})
	require.NoError(t, err)
	assert.Equal(t, []string{"MintHot", "MintWarm"}, mints)
}

func TestResolveRebalancerUsesTargetWeights(t *testing.T) {
	resolver := NewResolver(&stubFeed{}, 50)

	mints, err := resolver.Resolve(context.Background(), &config.StrategyConfig{
		Kind:          config.KindRebalancer,
		TargetWeights: map[string]float64{"MintA": 60, "MintB": 40},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"MintA", "MintB"}, mints)
}

func TestResolveFeedErrorPropagates(t *testing.T) {
	resolver := NewResolver(&stubFeed{err: fmt.Errorf("rate limited")}, 50)

	_, err := resolver.Resolve(context.Background(), &config.StrategyConfig{Kind: config.KindSniper})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new-listing feed")
}

func TestResolveKindWithoutFeedNeedsTokens(t *testing.T) {
	resolver := NewResolver(&stubFeed{}, 50)

	_, err := resolver.Resolve(context.Background(), &config.StrategyConfig{Kind: config.KindScheduled})
	require.Error(t, err)
}
