package bot

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"solana-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memSchedStore struct {
	mu   sync.Mutex
	jobs map[string]models.ScheduledJob
}

func newMemSchedStore() *memSchedStore {
	return &memSchedStore{jobs: make(map[string]models.ScheduledJob)}
}

func (m *memSchedStore) CreateScheduledJob(job *models.ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.BotID] = *job
	return nil
}

func (m *memSchedStore) PendingJobs() ([]models.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ScheduledJob
	for _, j := range m.jobs {
		if !j.Fired {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memSchedStore) MarkJobFired(botID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[botID]
	j.Fired = true
	m.jobs[botID] = j
	return nil
}

func (m *memSchedStore) DeleteScheduledJob(botID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, botID)
	return nil
}

func (m *memSchedStore) fired(botID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[botID].Fired
}

func waitForRunning(t *testing.T, registry *Registry, botID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.IsRunning(botID) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("bot %s never started", botID)
}

func TestScheduleRequiresLaunchAt(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, _ := newTestLauncher(f)
	scheduler := NewScheduler(launcher, newMemSchedStore(), zap.NewNop())

	err := scheduler.Schedule(context.Background(), *baseSniperConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch_at")
}

func TestScheduleFiresAfterWarmupOffset(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, registry := newTestLauncher(f)
	store := newMemSchedStore()
	scheduler := NewScheduler(launcher, store, zap.NewNop())

	// Launch is an hour out but the warm-up equals the lead time, so the
	// timer fires immediately.
	cfg := *baseSniperConfig()
	cfg.LaunchAt = time.Now().Add(time.Hour).Format(time.RFC3339)
	cfg.WarmupMinutes = 60

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, scheduler.Schedule(ctx, cfg))

	waitForRunning(t, registry, "snipe-1")
	assert.True(t, store.fired("snipe-1"))

	h, ok := registry.Get("snipe-1")
	require.True(t, ok)
	stopHandle(t, h)
}

func TestSchedulerStartReplaysPendingJobs(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, registry := newTestLauncher(f)
	store := newMemSchedStore()

	cfg := *baseSniperConfig()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, store.CreateScheduledJob(&models.ScheduledJob{
		BotID:      cfg.ID,
		Kind:       cfg.Kind,
		ConfigJSON: string(raw),
		LaunchAt:   time.Now().Add(-10 * time.Second).Unix(),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := NewScheduler(launcher, store, zap.NewNop())
	require.NoError(t, scheduler.Start(ctx))

	waitForRunning(t, registry, "snipe-1")

	h, ok := registry.Get("snipe-1")
	require.True(t, ok)
	stopHandle(t, h)
}

func TestSchedulerCancelRemovesJob(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, _ := newTestLauncher(f)
	store := newMemSchedStore()
	scheduler := NewScheduler(launcher, store, zap.NewNop())

	store.jobs["snipe-1"] = models.ScheduledJob{BotID: "snipe-1"}
	require.NoError(t, scheduler.Cancel("snipe-1"))

	jobs, err := store.PendingJobs()
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestScheduleRejectsUnreadableConfig(t *testing.T) {
	f := newLoopFixture(baseSniperConfig())
	launcher, registry := newTestLauncher(f)
	store := newMemSchedStore()

	require.NoError(t, store.CreateScheduledJob(&models.ScheduledJob{
		BotID:      "broken",
		ConfigJSON: "{not json",
		LaunchAt:   time.Now().Add(-time.Second).Unix(),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := NewScheduler(launcher, store, zap.NewNop())
	require.NoError(t, scheduler.Start(ctx))

	// The broken job must never launch anything.
	time.Sleep(100 * time.Millisecond)
	assert.False(t, registry.IsRunning("broken"))
}
