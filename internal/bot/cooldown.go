package bot

import (
	"sync"
	"time"
)

// CooldownTracker debounces per-key actions inside a rolling window.
// The invariant: two callers can never both get 0 from Hit for the same
// key within one window, so at most one trade per mint per window.
type CooldownTracker struct {
	window time.Duration

	mu      sync.Mutex
	lastHit map[string]time.Time
}

// NewCooldownTracker creates a tracker with the given window. A zero or
// negative window disables cooldown entirely (Hit always returns 0).
func NewCooldownTracker(window time.Duration) *CooldownTracker {
	return &CooldownTracker{
		window:  window,
		lastHit: make(map[string]time.Time),
	}
}

// Hit returns 0 and stamps now if the previous window has fully
// elapsed, otherwise the remaining wait without mutating. The check and
// the stamp happen under one lock so concurrent callers cannot both
// open a new window.
func (c *CooldownTracker) Hit(key string) time.Duration {
	if c.window <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if last, ok := c.lastHit[key]; ok {
		if remaining := c.window - now.Sub(last); remaining > 0 {
			return remaining
		}
	}
	c.lastHit[key] = now
	return 0
}

// Peek returns the remaining wait for a key without mutating anything.
func (c *CooldownTracker) Peek(key string) time.Duration {
	if c.window <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastHit[key]
	if !ok {
		return 0
	}
	if remaining := c.window - time.Since(last); remaining > 0 {
		return remaining
	}
	return 0
}
