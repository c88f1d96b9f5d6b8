package bot

import (
	"context"
	"fmt"
	"sync"

	"solana-trade-bot-go/internal/jupiter"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SwapBuilder turns an accepted quote into an unsigned transaction.
type SwapBuilder interface {
	SwapTransaction(ctx context.Context, quote *jupiter.Quote, userPublicKey string) (string, error)
}

// TransactionSigner is the opaque wallet contract.
type TransactionSigner interface {
	PublicKey() string
	SignTransaction(txBase64 string) (string, error)
}

// Relay fans a signed payload out to expedited submission endpoints.
type Relay interface {
	Send(ctx context.Context, signedTxBase64 string) (RelayResult, error)
}

// ExecRequest is one trade submission.
type ExecRequest struct {
	Quote  *jupiter.Quote
	Mint   string
	Meta   TradeMeta
	DryRun bool
}

// TradeExecutor is the loop's view of trade submission. The dry-run
// path has the identical signature and returns a synthetic reference.
type TradeExecutor interface {
	Execute(ctx context.Context, req ExecRequest) (string, error)
}

// Executor builds, signs and broadcasts swap transactions. Submissions
// through one signer are serialized: two in-flight transactions from
// the same wallet would race on sequencing. The relay fan-out inside a
// single submission is the one deliberate parallelism.
type Executor struct {
	swaps  SwapBuilder
	signer TransactionSigner
	relay  Relay
	rpc    *resty.Client
	rpcURL string
	logger *zap.Logger

	mu sync.Mutex // serializes submissions per signer
}

// NewExecutor creates a live executor.
func NewExecutor(swaps SwapBuilder, signer TransactionSigner, relay Relay, rpcURL string, logger *zap.Logger) *Executor {
	return &Executor{
		swaps:  swaps,
		signer: signer,
		relay:  relay,
		rpc:    resty.New(),
		rpcURL: rpcURL,
		logger: logger,
	}
}

// Execute submits the trade and returns the transaction signature.
func (e *Executor) Execute(ctx context.Context, req ExecRequest) (string, error) {
	if req.DryRun {
		sig := "dry-run-" + uuid.NewString()
		e.logger.Info("Dry run: no transaction submitted",
			zap.String("mint", req.Mint), zap.String("signature", sig))
		return sig, nil
	}

	unsigned, err := e.swaps.SwapTransaction(ctx, req.Quote, e.signer.PublicKey())
	if err != nil {
		return "", fmt.Errorf("failed to build swap transaction: %w", err)
	}

	signed, err := e.signer.SignTransaction(unsigned)
	if err != nil {
		return "", fmt.Errorf("failed to sign swap transaction: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Broadcast on the primary RPC and fan out to relays with the same
	// signed payload; redundant delivery of a signed transaction is safe.
	rpcSig, rpcErr := e.sendRPC(ctx, signed)

	relayResult, relayErr := e.relay.Send(ctx, signed)
	if relayErr != nil {
		e.logger.Warn("Relay fan-out failed", zap.Error(relayErr))
	}

	switch {
	case rpcErr == nil:
		return rpcSig, nil
	case relayErr == nil && !relayResult.Skipped:
		e.logger.Warn("Primary RPC failed, relay carried the transaction",
			zap.String("endpoint", relayResult.Endpoint), zap.Error(rpcErr))
		return relayResult.Signature, nil
	default:
		return "", fmt.Errorf("failed to broadcast transaction: %w", rpcErr)
	}
}

func (e *Executor) sendRPC(ctx context.Context, signedTxBase64 string) (string, error) {
	var body rpcResponse
	resp, err := e.rpc.R().
		SetContext(ctx).
		SetBody(rpcRequest{
			JSONRPC: "2.0",
			ID:      1,
			Method:  "sendTransaction",
			Params:  []any{signedTxBase64, map[string]string{"encoding": "base64"}},
		}).
		SetResult(&body).
		Post(e.rpcURL)
	if err != nil {
		return "", fmt.Errorf("rpc send failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("rpc send failed with status %s", resp.Status())
	}
	if body.Error != nil {
		return "", fmt.Errorf("rpc rejected transaction: %s", body.Error.Message)
	}
	return body.Result, nil
}
