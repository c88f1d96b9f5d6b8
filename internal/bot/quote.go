package bot

import (
	"context"
	"fmt"
	"strconv"

	"solana-trade-bot-go/internal/jupiter"
)

// QuoteSource is the slice of the aggregator client SafeQuote consumes.
type QuoteSource interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amountLamports uint64, slippageBps int) (*jupiter.Quote, error)
}

// RejectReason is the closed set of quote rejection reasons.
type RejectReason string

const (
	ReasonSameToken     RejectReason = "same-token"
	ReasonQuoteError    RejectReason = "quoteError"
	ReasonNoRoute       RejectReason = "no-route"
	ReasonInvalidImpact RejectReason = "invalid-impact"
	ReasonImpact        RejectReason = "impact"
)

// QuoteResult is the tagged outcome of a safe quote attempt. When OK is
// true, ImpactPct is a valid fraction at or below the caller's ceiling.
type QuoteResult struct {
	OK        bool
	Quote     *jupiter.Quote
	ImpactPct float64
	Reason    RejectReason
	Message   string
}

// SafeQuoteRequest parameterizes one quote attempt. MaxImpactPct is a
// normalized fraction (0.05 == 5%).
type SafeQuoteRequest struct {
	InputMint      string
	OutputMint     string
	AmountLamports uint64
	SlippageBps    int
	MaxImpactPct   float64
}

// GetSafeQuote fetches a quote and refuses anything unsafe. The gate
// order matters: the same-token check runs before any network call, and
// the impact ceiling is checked last so an impact rejection always
// carries the full quote for diagnostics.
func GetSafeQuote(ctx context.Context, src QuoteSource, req SafeQuoteRequest) QuoteResult {
	if req.InputMint == req.OutputMint {
		return QuoteResult{
			Reason:  ReasonSameToken,
			Message: fmt.Sprintf("refusing circular swap of %s", req.InputMint),
		}
	}

	quote, err := src.GetQuote(ctx, req.InputMint, req.OutputMint, req.AmountLamports, req.SlippageBps)
	if err != nil {
		return QuoteResult{Reason: ReasonQuoteError, Message: err.Error()}
	}
	if quote == nil {
		return QuoteResult{
			Reason:  ReasonNoRoute,
			Message: fmt.Sprintf("no route from %s to %s", req.InputMint, req.OutputMint),
		}
	}

	// A missing or garbled impact field is a refusal, never a zero
	// default: an unreadable impact could hide a drained pool.
	impact, err := strconv.ParseFloat(quote.PriceImpactPct, 64)
	if err != nil {
		return QuoteResult{
			Reason:  ReasonInvalidImpact,
			Message: fmt.Sprintf("unparseable priceImpactPct %q", quote.PriceImpactPct),
		}
	}

	if impact > req.MaxImpactPct {
		return QuoteResult{
			Quote:     quote,
			ImpactPct: impact,
			Reason:    ReasonImpact,
			Message: fmt.Sprintf("impact %.4f exceeds ceiling %.4f (out %s, %d hops)",
				impact, req.MaxImpactPct, quote.OutAmount, len(quote.RoutePlan)),
		}
	}

	return QuoteResult{OK: true, Quote: quote, ImpactPct: impact}
}
