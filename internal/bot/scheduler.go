package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/models"

	"go.uber.org/zap"
)

// SchedulerStore is the persistence surface for future-dated launches.
type SchedulerStore interface {
	CreateScheduledJob(job *models.ScheduledJob) error
	PendingJobs() ([]models.ScheduledJob, error)
	MarkJobFired(botID string) error
	DeleteScheduledJob(botID string) error
}

// Scheduler arms timers for future-dated strategy launches. Each timer
// fires the configured warm-up early so data caches and safety checks
// are hot when trading opens.
type Scheduler struct {
	launcher *Launcher
	store    SchedulerStore
	logger   *zap.Logger
}

// NewScheduler creates a scheduler over the launcher.
func NewScheduler(launcher *Launcher, store SchedulerStore, logger *zap.Logger) *Scheduler {
	return &Scheduler{launcher: launcher, store: store, logger: logger}
}

// Start replays persisted pending jobs and arms a timer for each.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.store.PendingJobs()
	if err != nil {
		return fmt.Errorf("failed to replay scheduled jobs: %w", err)
	}
	for _, job := range jobs {
		s.arm(ctx, job)
	}
	s.logger.Info("Scheduler started", zap.Int("pending_jobs", len(jobs)))
	return nil
}

// Schedule persists a future launch and arms its timer.
func (s *Scheduler) Schedule(ctx context.Context, cfg config.StrategyConfig) error {
	if cfg.LaunchAt == "" {
		return fmt.Errorf("strategy %s has no launch_at; launch it directly", cfg.ID)
	}
	if err := cfg.Validate(time.Now()); err != nil {
		return err
	}
	launch, err := time.Parse(time.RFC3339, cfg.LaunchAt)
	if err != nil {
		return fmt.Errorf("invalid launch_at: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize strategy config: %w", err)
	}

	job := models.ScheduledJob{
		BotID:         cfg.ID,
		Kind:          cfg.Kind,
		ConfigJSON:    string(raw),
		LaunchAt:      launch.Unix(),
		WarmupMinutes: cfg.WarmupMinutes,
	}
	if err := s.store.CreateScheduledJob(&job); err != nil {
		return err
	}
	s.arm(ctx, job)
	return nil
}

// Cancel removes a not-yet-fired job.
func (s *Scheduler) Cancel(botID string) error {
	return s.store.DeleteScheduledJob(botID)
}

func (s *Scheduler) arm(ctx context.Context, job models.ScheduledJob) {
	fireAt := time.Unix(job.LaunchAt, 0).Add(-time.Duration(job.WarmupMinutes) * time.Minute)
	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}
	s.logger.Info("Armed scheduled launch",
		zap.String("bot_id", job.BotID),
		zap.Time("fire_at", fireAt))

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.fire(ctx, job)
	}()
}

func (s *Scheduler) fire(ctx context.Context, job models.ScheduledJob) {
	var cfg config.StrategyConfig
	if err := json.Unmarshal([]byte(job.ConfigJSON), &cfg); err != nil {
		s.logger.Error("Scheduled job carries unreadable config",
			zap.String("bot_id", job.BotID), zap.Error(err))
		return
	}
	// The launch moment has arrived; the stored timestamp would now
	// fail the not-in-the-past validation.
	cfg.LaunchAt = ""

	if err := s.store.MarkJobFired(job.BotID); err != nil {
		s.logger.Warn("Failed to mark job fired", zap.String("bot_id", job.BotID), zap.Error(err))
	}
	if _, err := s.launcher.Launch(ctx, cfg); err != nil {
		s.logger.Error("Scheduled launch failed",
			zap.String("bot_id", job.BotID), zap.Error(err))
		return
	}
	s.logger.Info("Scheduled strategy launched", zap.String("bot_id", job.BotID))
}
