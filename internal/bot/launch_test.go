package bot

import (
	"context"
	"testing"
	"time"

	"solana-trade-bot-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLauncher(f *loopFixture) (*Launcher, *Registry) {
	registry := NewRegistry()
	launcher := NewLauncher(registry, f.resolver, f.deps(), zap.NewNop())
	return launcher, registry
}

func stopHandle(t *testing.T, h *Handle) {
	t.Helper()
	h.Stop()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after stop")
	}
}

func TestLaunchRejectsInvalidConfig(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, registry := newTestLauncher(f)

	cfg := *baseSniperConfig()
	cfg.PositionSizeSOL = 0

	_, err := launcher.Launch(context.Background(), cfg)
	require.Error(t, err)
	assert.False(t, registry.IsRunning(cfg.ID))
}

func TestLaunchRegistersAndRuns(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, registry := newTestLauncher(f)

	handle, err := launcher.Launch(context.Background(), *baseSniperConfig())
	require.NoError(t, err)
	defer stopHandle(t, handle)

	assert.True(t, registry.IsRunning("snipe-1"))
	assert.Equal(t, config.KindSniper, handle.Kind)
}

func TestLaunchRejectsDuplicateBotID(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, registry := newTestLauncher(f)

	handle, err := launcher.Launch(context.Background(), *baseSniperConfig())
	require.NoError(t, err)
	defer stopHandle(t, handle)

	_, err = launcher.Launch(context.Background(), *baseSniperConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	// The first loop keeps its registration.
	got, ok := registry.Get("snipe-1")
	require.True(t, ok)
	assert.Same(t, handle, got)
}

func TestLaunchDerivesIcebergTradeBudget(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, _ := newTestLauncher(f)

	cfg := config.StrategyConfig{
		ID:              "berg-1",
		Kind:            config.KindIceberg,
		TickIntervalSec: 1,
		BaseMint:        "So11111111111111111111111111111111111111112",
		Tokens:          []string{"MintA"},
		TotalSizeSOL:    2,
		Slices:          8,
	}

	handle, err := launcher.Launch(context.Background(), cfg)
	require.NoError(t, err)
	defer stopHandle(t, handle)

	assert.Equal(t, 8, handle.loop.cfg.MaxTrades)
}

func TestLaunchAllowsRelaunchAfterFinish(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, registry := newTestLauncher(f)

	first, err := launcher.Launch(context.Background(), *baseSniperConfig())
	require.NoError(t, err)
	stopHandle(t, first)
	first.MarkFinished()

	second, err := launcher.Launch(context.Background(), *baseSniperConfig())
	require.NoError(t, err)
	defer stopHandle(t, second)

	assert.True(t, registry.IsRunning("snipe-1"))
}
