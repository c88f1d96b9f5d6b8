package bot

import (
	"context"
	"fmt"
	"testing"

	"solana-trade-bot-go/internal/jupiter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuoteSource struct {
	quote *jupiter.Quote
	err   error
	calls int
}

func (s *stubQuoteSource) GetQuote(_ context.Context, _, _ string, _ uint64, _ int) (*jupiter.Quote, error) {
	s.calls++
	return s.quote, s.err
}

func quoteWithImpact(impact string) *jupiter.Quote {
	return &jupiter.Quote{
		InputMint:      "So11111111111111111111111111111111111111112",
		OutputMint:     "MintA",
		OutAmount:      "1000",
		PriceImpactPct: impact,
		RoutePlan:      make([]jupiter.RouteStep, 1),
	}
}

func TestSafeQuoteSameTokenSkipsNetwork(t *testing.T) {
	src := &stubQuoteSource{quote: quoteWithImpact("0.01")}

	result := GetSafeQuote(context.Background(), src, SafeQuoteRequest{
		InputMint:    "MintA",
		OutputMint:   "MintA",
		MaxImpactPct: 0.05,
	})

	assert.False(t, result.OK)
	assert.Equal(t, ReasonSameToken, result.Reason)
	assert.Equal(t, 0, src.calls, "same-token must be refused before any aggregator call")
}

func TestSafeQuoteTransportError(t *testing.T) {
	src := &stubQuoteSource{err: fmt.Errorf("connection refused")}

	result := GetSafeQuote(context.Background(), src, SafeQuoteRequest{
		InputMint:    "SOL",
		OutputMint:   "MintA",
		MaxImpactPct: 0.05,
	})

	assert.False(t, result.OK)
	assert.Equal(t, ReasonQuoteError, result.Reason)
	assert.Contains(t, result.Message, "connection refused")
}

func TestSafeQuoteNoRoute(t *testing.T) {
	src := &stubQuoteSource{} // nil quote, nil error

	result := GetSafeQuote(context.Background(), src, SafeQuoteRequest{
		InputMint:    "SOL",
		OutputMint:   "MintA",
		MaxImpactPct: 0.05,
	})

	assert.False(t, result.OK)
	assert.Equal(t, ReasonNoRoute, result.Reason)
}

func TestSafeQuoteUnparseableImpact(t *testing.T) {
	src := &stubQuoteSource{quote: quoteWithImpact("not-a-number")}

	result := GetSafeQuote(context.Background(), src, SafeQuoteRequest{
		InputMint:    "SOL",
		OutputMint:   "MintA",
		MaxImpactPct: 0.05,
	})

	assert.False(t, result.OK)
	assert.Equal(t, ReasonInvalidImpact, result.Reason)
}

func TestSafeQuoteImpactCeiling(t *testing.T) {
	testCases := []struct {
		name     string
		impact   string
		ceiling  float64
		expectOK bool
	}{
		{name: "well under ceiling", impact: "0.01", ceiling: 0.05, expectOK: true},
		{name: "exactly at ceiling", impact: "0.05", ceiling: 0.05, expectOK: true},
		{name: "just over ceiling", impact: "0.0501", ceiling: 0.05, expectOK: false},
		{name: "far over ceiling", impact: "0.20", ceiling: 0.05, expectOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := &stubQuoteSource{quote: quoteWithImpact(tc.impact)}
			result := GetSafeQuote(context.Background(), src, SafeQuoteRequest{
				InputMint:    "SOL",
				OutputMint:   "MintA",
				MaxImpactPct: tc.ceiling,
			})

			if tc.expectOK {
				assert.True(t, result.OK)
				require.NotNil(t, result.Quote)
			} else {
				assert.False(t, result.OK)
				assert.Equal(t, ReasonImpact, result.Reason)
				// Impact rejections keep the quote for diagnostics.
				require.NotNil(t, result.Quote)
				assert.Greater(t, result.ImpactPct, tc.ceiling)
			}
		})
	}
}
