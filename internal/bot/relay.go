package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-trade-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNoRelay is returned when every configured relay endpoint failed.
var ErrNoRelay = errors.New("no relay reachable")

// RelayResult is the outcome of a fan-out submission.
type RelayResult struct {
	Skipped   bool   // relaying disabled or no endpoints configured
	Endpoint  string // the winning endpoint
	Signature string
}

// RelayStats are the per-endpoint submission counters, keyed by
// endpoint URL.
type RelayStats struct {
	Attempts map[string]int64 `json:"attempts"`
	Wins     map[string]int64 `json:"wins"`
}

// RelayClient broadcasts a signed transaction to every configured relay
// in parallel; the first success wins and the rest are abandoned. Safe
// because rebroadcasting a signed transaction is idempotent.
type RelayClient struct {
	client    *resty.Client
	endpoints []string
	enabled   bool
	logger    *zap.Logger

	mu       sync.Mutex
	attempts map[string]int64
	wins     map[string]int64
}

// NewRelayClient creates a relay client from config.
func NewRelayClient(cfg *config.Relay, logger *zap.Logger) *RelayClient {
	return &RelayClient{
		client:    resty.New(),
		endpoints: cfg.Endpoints,
		enabled:   cfg.Enabled,
		logger:    logger,
		attempts:  make(map[string]int64),
		wins:      make(map[string]int64),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type relayAttempt struct {
	endpoint  string
	signature string
	err       error
}

// Send fans the signed transaction out to every endpoint. Returns
// Skipped when relaying is off, the winner's result on first success,
// or ErrNoRelay when everything failed.
func (r *RelayClient) Send(ctx context.Context, signedTxBase64 string) (RelayResult, error) {
	if !r.enabled || len(r.endpoints) == 0 {
		return RelayResult{Skipped: true}, nil
	}

	results := make(chan relayAttempt, len(r.endpoints))
	for _, endpoint := range r.endpoints {
		r.bump(r.attempts, endpoint)
		go func(endpoint string) {
			sig, err := r.submit(ctx, endpoint, signedTxBase64)
			results <- relayAttempt{endpoint: endpoint, signature: sig, err: err}
		}(endpoint)
	}

	var lastErr error
	for range r.endpoints {
		attempt := <-results
		if attempt.err == nil {
			r.bump(r.wins, attempt.endpoint)
			r.logger.Debug("Relay won the submission race",
				zap.String("endpoint", attempt.endpoint),
				zap.String("signature", attempt.signature))
			return RelayResult{Endpoint: attempt.endpoint, Signature: attempt.signature}, nil
		}
		r.logger.Warn("Relay submission failed",
			zap.String("endpoint", attempt.endpoint), zap.Error(attempt.err))
		lastErr = attempt.err
	}

	return RelayResult{}, fmt.Errorf("%w: %v", ErrNoRelay, lastErr)
}

func (r *RelayClient) submit(ctx context.Context, endpoint, signedTxBase64 string) (string, error) {
	var body rpcResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{
			JSONRPC: "2.0",
			ID:      1,
			Method:  "sendTransaction",
			Params:  []any{signedTxBase64, map[string]string{"encoding": "base64"}},
		}).
		SetResult(&body).
		Post(endpoint)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("relay returned status %s", resp.Status())
	}
	if body.Error != nil {
		return "", fmt.Errorf("relay rejected transaction: %s", body.Error.Message)
	}
	if body.Result == "" {
		return "", fmt.Errorf("relay returned no signature")
	}
	return body.Result, nil
}

func (r *RelayClient) bump(counters map[string]int64, endpoint string) {
	r.mu.Lock()
	counters[endpoint]++
	r.mu.Unlock()
}

// Stats returns a copy of the per-endpoint counters.
func (r *RelayClient) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := RelayStats{
		Attempts: make(map[string]int64, len(r.attempts)),
		Wins:     make(map[string]int64, len(r.wins)),
	}
	for k, v := range r.attempts {
		stats.Attempts[k] = v
	}
	for k, v := range r.wins {
		stats.Wins[k] = v
	}
	return stats
}
