package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"solana-trade-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouteStep is one hop of a quoted swap route.
type RouteStep struct {
	SwapInfo struct {
		Label     string `json:"label"`
		AmmKey    string `json:"ammKey"`
		InAmount  string `json:"inAmount"`
		OutAmount string `json:"outAmount"`
	} `json:"swapInfo"`
}

// Quote is the aggregator's answer for one swap. PriceImpactPct stays a
// string here: deciding whether it parses is the safety layer's job,
// not the transport's. Raw keeps the full response for the swap call.
type Quote struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       string          `json:"inAmount"`
	OutAmount      string          `json:"outAmount"`
	PriceImpactPct string          `json:"priceImpactPct"`
	RoutePlan      []RouteStep     `json:"routePlan"`
	Raw            json.RawMessage `json:"-"`
}

// OutAmountFloat parses the quoted output amount, 0 when unparseable.
func (q *Quote) OutAmountFloat() float64 {
	v, _ := strconv.ParseFloat(q.OutAmount, 64)
	return v
}

// Client talks to a Jupiter-style quote/swap aggregator.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewClient creates an aggregator client from config.
func NewClient(cfg *config.Jupiter, logger *zap.Logger) *Client {
	return &Client{
		client:  resty.New().SetBaseURL(cfg.BaseURL),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// GetQuote fetches a swap quote. A nil quote with nil error means the
// aggregator found no route.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amountLamports uint64, slippageBps int) (*Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   inputMint,
			"outputMint":  outputMint,
			"amount":      strconv.FormatUint(amountLamports, 10),
			"slippageBps": strconv.Itoa(slippageBps),
		}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("quote request failed with status %s: %s", resp.Status(), resp.String())
	}

	var quote Quote
	if err := json.Unmarshal(resp.Body(), &quote); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if len(quote.RoutePlan) == 0 {
		return nil, nil // no route
	}
	quote.Raw = append(json.RawMessage(nil), resp.Body()...)
	return &quote, nil
}

type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// SwapTransaction asks the aggregator to build the swap transaction for
// a previously fetched quote. Returns the unsigned transaction, base64.
func (c *Client) SwapTransaction(ctx context.Context, quote *Quote, userPublicKey string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var body swapResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(swapRequest{
			QuoteResponse:    quote.Raw,
			UserPublicKey:    userPublicKey,
			WrapAndUnwrapSol: true,
		}).
		SetResult(&body).
		Post("/swap")
	if err != nil {
		return "", fmt.Errorf("swap request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("swap request failed with status %s: %s", resp.Status(), resp.String())
	}
	if body.SwapTransaction == "" {
		return "", fmt.Errorf("swap response carried no transaction")
	}
	return body.SwapTransaction, nil
}
