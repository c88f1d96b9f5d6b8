package safety

import (
	"context"
	"fmt"
	"sort"

	"solana-trade-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CheckResult is the outcome of one safety check.
type CheckResult struct {
	Passed bool   `json:"passed"`
	Label  string `json:"label"`
	Reason string `json:"reason,omitempty"`
}

// Report maps check name to result.
type Report map[string]CheckResult

// Passed reports the aggregate: every check passed.
func (r Report) Passed() bool {
	for _, c := range r {
		if !c.Passed {
			return false
		}
	}
	return true
}

// FailReasons lists the reasons of failing checks, sorted for stable logs.
func (r Report) FailReasons() []string {
	var reasons []string
	for _, c := range r {
		if !c.Passed {
			reasons = append(reasons, c.Reason)
		}
	}
	sort.Strings(reasons)
	return reasons
}

type tokenReport struct {
	LiquidityUSD    float64 `json:"liquidityUSD"`
	MintAuthority   string  `json:"mintAuthority"`
	FreezeAuthority string  `json:"freezeAuthority"`
	SimulationOk    bool    `json:"simulationOk"`
	Verified        bool    `json:"verified"`
	TopHolders      []struct {
		Pct float64 `json:"pct"`
	} `json:"topHolders"`
}

// Checker evaluates token safety through an external report service and
// the configured thresholds.
type Checker struct {
	client *resty.Client
	cfg    *config.Safety
	logger *zap.Logger
}

// NewChecker creates a safety checker from config.
func NewChecker(cfg *config.Safety, logger *zap.Logger) *Checker {
	return &Checker{
		client: resty.New().SetBaseURL(cfg.BaseURL),
		cfg:    cfg,
		logger: logger,
	}
}

// Check fetches the token report and applies the configured thresholds.
// A transport failure is an error, not a failed report: the caller
// decides whether to skip or halt.
func (c *Checker) Check(ctx context.Context, mint string) (Report, error) {
	var body tokenReport
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/v1/tokens/%s/report", mint))
	if err != nil {
		return nil, fmt.Errorf("safety report request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("safety report failed with status %s", resp.Status())
	}

	report := Report{
		"liquidity": c.checkLiquidity(body.LiquidityUSD),
		"authority": checkAuthority(body.MintAuthority, body.FreezeAuthority),
		"simulation": CheckResult{
			Passed: body.SimulationOk,
			Label:  "Swap simulation",
			Reason: reasonUnless(body.SimulationOk, "swap simulation failed"),
		},
		"topHolders": c.checkTopHolders(body),
		"verified": CheckResult{
			Passed: body.Verified,
			Label:  "Verified listing",
			Reason: reasonUnless(body.Verified, "token is not verified"),
		},
	}
	return report, nil
}

func (c *Checker) checkLiquidity(liquidityUSD float64) CheckResult {
	if c.cfg.MinLiquidityUSD > 0 && liquidityUSD < c.cfg.MinLiquidityUSD {
		return CheckResult{
			Label:  "Liquidity",
			Reason: fmt.Sprintf("liquidity $%.0f below floor $%.0f", liquidityUSD, c.cfg.MinLiquidityUSD),
		}
	}
	return CheckResult{Passed: true, Label: "Liquidity"}
}

func checkAuthority(mintAuthority, freezeAuthority string) CheckResult {
	if mintAuthority != "" {
		return CheckResult{Label: "Authority", Reason: "mint authority still active"}
	}
	if freezeAuthority != "" {
		return CheckResult{Label: "Authority", Reason: "freeze authority still active"}
	}
	return CheckResult{Passed: true, Label: "Authority"}
}

func (c *Checker) checkTopHolders(body tokenReport) CheckResult {
	if c.cfg.MaxTopHolderPct <= 0 {
		return CheckResult{Passed: true, Label: "Top holders"}
	}
	for _, h := range body.TopHolders {
		if h.Pct > c.cfg.MaxTopHolderPct {
			return CheckResult{
				Label:  "Top holders",
				Reason: fmt.Sprintf("top holder owns %.1f%% (max %.1f%%)", h.Pct, c.cfg.MaxTopHolderPct),
			}
		}
	}
	return CheckResult{Passed: true, Label: "Top holders"}
}

func reasonUnless(passed bool, reason string) string {
	if passed {
		return ""
	}
	return reason
}
