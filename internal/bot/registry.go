package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Handle is the registry's view of one running strategy loop.
type Handle struct {
	BotID     string
	Kind      string
	StartedAt time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	paused   atomic.Bool
	finished atomic.Bool
	loop     *StrategyLoop
}

// Pause suppresses future ticks. The loop itself stays Running; it
// simply skips work while the flag is set.
func (h *Handle) Pause() { h.paused.Store(true) }

// Resume re-enables ticks.
func (h *Handle) Resume() { h.paused.Store(false) }

// Paused reports whether ticks are currently suppressed.
func (h *Handle) Paused() bool { return h.paused.Load() }

// Stop cancels the loop's context. In-flight submissions past the
// submit point complete; nothing new starts.
func (h *Handle) Stop() { h.cancel() }

// Done is closed when the loop goroutine has fully exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// MarkFinished flags the handle terminal so the bot id can be reused.
func (h *Handle) MarkFinished() { h.finished.Store(true) }

// Finished reports whether the loop reached a terminal state.
func (h *Handle) Finished() bool { return h.finished.Load() }

// Registry is the process-wide map of running strategy loops. Its one
// hard rule: registering a bot id that already has a live entry fails,
// so two loops can never trade against the same wallet under one id.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Register inserts a handle. Fails on a live duplicate, leaving the
// existing handle intact; a finished entry may be replaced.
func (r *Registry) Register(botID string, handle *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.handles[botID]; ok && !existing.Finished() {
		return fmt.Errorf("bot %s is already running", botID)
	}
	r.handles[botID] = handle
	return nil
}

// Get returns the handle for a bot id, if present.
func (r *Registry) Get(botID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[botID]
	return h, ok
}

// Unregister removes a handle. Idempotent.
func (r *Registry) Unregister(botID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, botID)
}

// IsRunning reports whether a live (non-finished) entry exists.
func (r *Registry) IsRunning(botID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[botID]
	return ok && !h.Finished()
}

// Handles returns a copy of the current handle set.
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

// StopAll cancels every live loop and waits for each to exit.
func (r *Registry) StopAll() {
	for _, h := range r.Handles() {
		h.Stop()
		<-h.Done()
	}
}
