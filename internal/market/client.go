package market

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"solana-trade-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Lookback windows in ascending order. A gate asking for a window the
// provider did not populate falls back to the next larger one.
var windowOrder = []string{"1m", "5m", "15m", "1h", "4h", "24h"}

// Overview is the per-token snapshot the gate evaluation step consumes.
// Change values are fractions (0.05 == 5%), converted once at this
// boundary from the provider's percent units.
type Overview struct {
	Mint         string
	Price        float64
	Change       map[string]float64
	Volume       map[string]float64
	MarketCapUSD float64
	CreatedAt    time.Time
	Fetched      bool // false when the provider was unreachable and defaults are zeroed
}

// ChangeIn returns the price change for the window, falling back to the
// next larger populated window.
func (o Overview) ChangeIn(window string) (float64, bool) {
	return lookup(o.Change, window)
}

// VolumeIn returns the USD volume for the window with the same fallback.
func (o Overview) VolumeIn(window string) (float64, bool) {
	return lookup(o.Volume, window)
}

func lookup(m map[string]float64, window string) (float64, bool) {
	start := 0
	for i, w := range windowOrder {
		if w == window {
			start = i
			break
		}
	}
	for _, w := range windowOrder[start:] {
		if v, ok := m[w]; ok {
			return v, true
		}
	}
	return 0, false
}

type cachedOverview struct {
	overview Overview
	at       time.Time
}

// Client fetches token overviews and candidate feeds from a
// Birdeye-style market-data API.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cachedOverview
}

// NewClient creates a market-data client from config.
func NewClient(cfg *config.Market, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("X-API-KEY", cfg.ApiKey).
		SetHeader("x-chain", "solana")

	return &Client{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		ttl:     time.Duration(cfg.CacheTTLSec) * time.Second,
		cache:   make(map[string]cachedOverview),
	}
}

// doRequest executes a request with rate limiting and retry on 429/5xx.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.SetContext(ctx).Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else {
			// Network or other client-side errors.
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Market data request failed, retrying...",
			zap.String("url", url),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

type overviewResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Price                 float64  `json:"price"`
		PriceChange1mPercent  *float64 `json:"priceChange1mPercent"`
		PriceChange5mPercent  *float64 `json:"priceChange5mPercent"`
		PriceChange15mPercent *float64 `json:"priceChange15mPercent"`
		PriceChange1hPercent  *float64 `json:"priceChange1hPercent"`
		PriceChange4hPercent  *float64 `json:"priceChange4hPercent"`
		PriceChange24hPercent *float64 `json:"priceChange24hPercent"`
		V1mUSD                *float64 `json:"v1mUSD"`
		V5mUSD                *float64 `json:"v5mUSD"`
		V15mUSD               *float64 `json:"v15mUSD"`
		V1hUSD                *float64 `json:"v1hUSD"`
		V4hUSD                *float64 `json:"v4hUSD"`
		V24hUSD               *float64 `json:"v24hUSD"`
		MarketCap             float64  `json:"marketCap"`
	} `json:"data"`
}

type creationResponse struct {
	Success bool `json:"success"`
	Data    struct {
		BlockUnixTime int64 `json:"blockUnixTime"`
	} `json:"data"`
}

// Overview fetches the token snapshot for a mint. A provider failure is
// not an error: a zeroed Overview with Fetched=false comes back so the
// caller can skip the candidate for lack of price data.
func (c *Client) Overview(ctx context.Context, mint string) Overview {
	c.mu.Lock()
	if entry, ok := c.cache[mint]; ok && time.Since(entry.at) < c.ttl {
		c.mu.Unlock()
		return entry.overview
	}
	c.mu.Unlock()

	var body overviewResponse
	req := c.client.R().
		SetQueryParam("address", mint).
		SetResult(&body)

	if _, err := c.doRequest(ctx, "GET", "/defi/token_overview", req); err != nil || !body.Success {
		c.logger.Warn("Overview fetch failed, returning zeroed defaults",
			zap.String("mint", mint), zap.Error(err))
		return Overview{Mint: mint, Change: map[string]float64{}, Volume: map[string]float64{}}
	}

	overview := Overview{
		Mint:         mint,
		Price:        body.Data.Price,
		Change:       make(map[string]float64),
		Volume:       make(map[string]float64),
		MarketCapUSD: body.Data.MarketCap,
		Fetched:      true,
	}
	changes := map[string]*float64{
		"1m": body.Data.PriceChange1mPercent, "5m": body.Data.PriceChange5mPercent,
		"15m": body.Data.PriceChange15mPercent, "1h": body.Data.PriceChange1hPercent,
		"4h": body.Data.PriceChange4hPercent, "24h": body.Data.PriceChange24hPercent,
	}
	volumes := map[string]*float64{
		"1m": body.Data.V1mUSD, "5m": body.Data.V5mUSD, "15m": body.Data.V15mUSD,
		"1h": body.Data.V1hUSD, "4h": body.Data.V4hUSD, "24h": body.Data.V24hUSD,
	}
	for w, v := range changes {
		if v != nil {
			overview.Change[w] = *v / 100 // percent -> fraction
		}
	}
	for w, v := range volumes {
		if v != nil {
			overview.Volume[w] = *v
		}
	}

	if created, err := c.creationTime(ctx, mint); err == nil {
		overview.CreatedAt = created
	}

	c.mu.Lock()
	c.cache[mint] = cachedOverview{overview: overview, at: time.Now()}
	c.mu.Unlock()

	return overview
}

func (c *Client) creationTime(ctx context.Context, mint string) (time.Time, error) {
	var body creationResponse
	req := c.client.R().
		SetQueryParam("address", mint).
		SetResult(&body)

	if _, err := c.doRequest(ctx, "GET", "/defi/token_creation_info", req); err != nil {
		return time.Time{}, err
	}
	if !body.Success || body.Data.BlockUnixTime == 0 {
		return time.Time{}, fmt.Errorf("no creation info for %s", mint)
	}
	return time.Unix(body.Data.BlockUnixTime, 0), nil
}

type trendingResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Tokens []struct {
			Address string `json:"address"`
		} `json:"tokens"`
	} `json:"data"`
}

// Trending returns the trending token feed, most popular first.
func (c *Client) Trending(ctx context.Context, limit int) ([]string, error) {
	var body trendingResponse
	req := c.client.R().
		SetQueryParams(map[string]string{
			"sort_by":   "rank",
			"sort_type": "asc",
			"limit":     strconv.Itoa(limit),
		}).
		SetResult(&body)

	if _, err := c.doRequest(ctx, "GET", "/defi/token_trending", req); err != nil {
		return nil, fmt.Errorf("failed to fetch trending tokens: %w", err)
	}
	mints := make([]string, 0, len(body.Data.Tokens))
	for _, t := range body.Data.Tokens {
		mints = append(mints, t.Address)
	}
	return mints, nil
}

type newListingResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []struct {
			Address string `json:"address"`
		} `json:"items"`
	} `json:"data"`
}

// NewListings returns recently listed tokens, newest first.
func (c *Client) NewListings(ctx context.Context, limit int) ([]string, error) {
	var body newListingResponse
	req := c.client.R().
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&body)

	if _, err := c.doRequest(ctx, "GET", "/defi/v2/tokens/new_listing", req); err != nil {
		return nil, fmt.Errorf("failed to fetch new listings: %w", err)
	}
	mints := make([]string, 0, len(body.Data.Items))
	for _, t := range body.Data.Items {
		mints = append(mints, t.Address)
	}
	return mints, nil
}
