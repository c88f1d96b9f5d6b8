package bot

import (
	"errors"
	"fmt"
)

// CapKind identifies which trading cap was breached.
type CapKind string

const (
	CapDaily       CapKind = "daily"
	CapOpenTrades  CapKind = "openTrades"
	CapTotalTrades CapKind = "totalTrades"
)

// CapExceededError is returned when a risk cap blocks a trade attempt.
// It is capacity exhaustion, not an execution failure: it never counts
// toward a loop's consecutive-failure streak.
type CapExceededError struct {
	Kind    CapKind
	Message string
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("cap exceeded (%s): %s", e.Kind, e.Message)
}

// AsCapExceeded unwraps a CapExceededError if err carries one.
func AsCapExceeded(err error) (*CapExceededError, bool) {
	var capErr *CapExceededError
	if errors.As(err, &capErr) {
		return capErr, true
	}
	return nil, false
}

// CheckDailyLimit fails when spending amount more would push the day's
// total over the cap. A zero cap disables the guard.
func CheckDailyLimit(amountSOL, spentTodaySOL, capSOL float64) error {
	if capSOL <= 0 {
		return nil
	}
	if spentTodaySOL+amountSOL > capSOL {
		return &CapExceededError{
			Kind: CapDaily,
			Message: fmt.Sprintf("spending %.4f SOL would exceed daily cap %.4f (%.4f spent)",
				amountSOL, capSOL, spentTodaySOL),
		}
	}
	return nil
}

// CheckOpenTradeCap fails when the strategy already holds cap open
// positions. The open count is supplied by the caller; the guard does
// no I/O of its own.
func CheckOpenTradeCap(strategy string, openCount, cap int) error {
	if cap <= 0 {
		return nil
	}
	if openCount >= cap {
		return &CapExceededError{
			Kind:    CapOpenTrades,
			Message: fmt.Sprintf("%s already holds %d open positions (cap %d)", strategy, openCount, cap),
		}
	}
	return nil
}

// CheckTradeCap fails when the run has already made cap trades.
func CheckTradeCap(made, cap int) error {
	if cap <= 0 {
		return nil
	}
	if made >= cap {
		return &CapExceededError{
			Kind:    CapTotalTrades,
			Message: fmt.Sprintf("%d trades made (cap %d)", made, cap),
		}
	}
	return nil
}
