package bot

import (
	"fmt"
	"math"
	"time"

	"solana-trade-bot-go/internal/market"
)

// NormalizePct maps a user-entered threshold to a fraction: "5" and
// "0.05" both mean five percent. This is the single place the rule
// lives; re-implementing it per strategy is how off-by-100 bugs happen.
// Exactly 1 never reaches here: config validation rejects it as
// ambiguous.
func NormalizePct(v float64) float64 {
	if math.Abs(v) >= 1 {
		return v / 100
	}
	return v
}

// Gate helpers below each answer one threshold question with a
// pass/fail and a reason. Callers short-circuit on the first failure.

func gateHasPrice(ov market.Overview) (bool, string) {
	if !ov.Fetched || ov.Price <= 0 {
		return false, "no price data"
	}
	return true, ""
}

func gateChangeAtLeast(ov market.Overview, window string, threshold float64) (bool, string) {
	if threshold == 0 {
		return true, ""
	}
	change, ok := ov.ChangeIn(window)
	if !ok {
		return false, fmt.Sprintf("no price change data for window %s", window)
	}
	if change < NormalizePct(threshold) {
		return false, fmt.Sprintf("change %.4f below entry threshold %.4f", change, NormalizePct(threshold))
	}
	return true, ""
}

func gateDipAtLeast(ov market.Overview, window string, dip float64) (bool, string) {
	if dip == 0 {
		return true, ""
	}
	change, ok := ov.ChangeIn(window)
	if !ok {
		return false, fmt.Sprintf("no price change data for window %s", window)
	}
	want := -math.Abs(NormalizePct(dip))
	if change > want {
		return false, fmt.Sprintf("change %.4f has not dipped to %.4f", change, want)
	}
	return true, ""
}

func gateVolumeFloor(ov market.Overview, window string, floorUSD float64) (bool, string) {
	if floorUSD <= 0 {
		return true, ""
	}
	volume, ok := ov.VolumeIn(window)
	if !ok {
		return false, fmt.Sprintf("no volume data for window %s", window)
	}
	if volume < floorUSD {
		return false, fmt.Sprintf("volume $%.0f below floor $%.0f", volume, floorUSD)
	}
	return true, ""
}

func gateMarketCap(ov market.Overview, minUSD, maxUSD float64) (bool, string) {
	if minUSD > 0 && ov.MarketCapUSD < minUSD {
		return false, fmt.Sprintf("market cap $%.0f below minimum $%.0f", ov.MarketCapUSD, minUSD)
	}
	if maxUSD > 0 && ov.MarketCapUSD > maxUSD {
		return false, fmt.Sprintf("market cap $%.0f above maximum $%.0f", ov.MarketCapUSD, maxUSD)
	}
	return true, ""
}

func gateTokenAge(ov market.Overview, now time.Time, minMinutes, maxMinutes float64) (bool, string) {
	if minMinutes <= 0 && maxMinutes <= 0 {
		return true, ""
	}
	if ov.CreatedAt.IsZero() {
		return false, "token creation time unknown"
	}
	ageMin := now.Sub(ov.CreatedAt).Minutes()
	if minMinutes > 0 && ageMin < minMinutes {
		return false, fmt.Sprintf("token age %.0fm below minimum %.0fm", ageMin, minMinutes)
	}
	if maxMinutes > 0 && ageMin > maxMinutes {
		return false, fmt.Sprintf("token age %.0fm above maximum %.0fm", ageMin, maxMinutes)
	}
	return true, ""
}
