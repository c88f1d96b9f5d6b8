package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandle(botID string) (*Handle, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		BotID:     botID,
		Kind:      "sniper",
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	return h, ctx
}

func TestRegistryRejectsLiveDuplicate(t *testing.T) {
	registry := NewRegistry()
	first, _ := newTestHandle("bot-1")
	second, _ := newTestHandle("bot-1")

	require.NoError(t, registry.Register("bot-1", first))
	err := registry.Register("bot-1", second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	// The original handle must be untouched by the failed attempt.
	got, ok := registry.Get("bot-1")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.True(t, registry.IsRunning("bot-1"))
}

func TestRegistryReplacesFinishedEntry(t *testing.T) {
	registry := NewRegistry()
	first, _ := newTestHandle("bot-1")
	require.NoError(t, registry.Register("bot-1", first))

	first.MarkFinished()
	assert.False(t, registry.IsRunning("bot-1"))

	second, _ := newTestHandle("bot-1")
	require.NoError(t, registry.Register("bot-1", second))

	got, ok := registry.Get("bot-1")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	h, _ := newTestHandle("bot-1")
	require.NoError(t, registry.Register("bot-1", h))

	registry.Unregister("bot-1")
	registry.Unregister("bot-1")

	_, ok := registry.Get("bot-1")
	assert.False(t, ok)
}

func TestHandlePauseResume(t *testing.T) {
	h, _ := newTestHandle("bot-1")

	assert.False(t, h.Paused())
	h.Pause()
	assert.True(t, h.Paused())
	h.Resume()
	assert.False(t, h.Paused())
}

func TestRegistryStopAllWaitsForExit(t *testing.T) {
	registry := NewRegistry()

	h, ctx := newTestHandle("bot-1")
	require.NoError(t, registry.Register("bot-1", h))

	// Simulate the loop goroutine: exit and close done on cancel.
	go func() {
		<-ctx.Done()
		close(h.done)
	}()

	finished := make(chan struct{})
	go func() {
		registry.StopAll()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAll did not return after the loop exited")
	}
}
