package store

import (
	"fmt"
	"time"

	"solana-trade-bot-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps the database with the handful of operations the strategy
// loops need. Trade rows are insert-only from the loop's point of view.
type Store struct {
	db *gorm.DB
}

// New creates a Store on top of an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AppendTrade inserts one trade record.
func (s *Store) AppendTrade(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to save trade record: %w", err)
	}
	return nil
}

// CountOpenTrades returns how many positions for this strategy and
// wallet still hold output tokens.
func (s *Store) CountOpenTrades(strategy, wallet string) (int, error) {
	var count int64
	err := s.db.Model(&models.Trade{}).
		Where("strategy = ? AND wallet = ? AND remaining_out > 0", strategy, wallet).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open trades: %w", err)
	}
	return int(count), nil
}

// OpenTrades returns the open positions for a strategy and wallet.
func (s *Store) OpenTrades(strategy, wallet string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.
		Where("strategy = ? AND wallet = ? AND remaining_out > 0", strategy, wallet).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load open trades: %w", err)
	}
	return trades, nil
}

// SpentSince sums SOL spent by a wallet from the given instant, used to
// seed a loop's daily running total after a restart.
func (s *Store) SpentSince(wallet string, since time.Time) (float64, error) {
	var total float64
	err := s.db.Model(&models.Trade{}).
		Where("wallet = ? AND timestamp >= ?", wallet, since.Unix()).
		Select("COALESCE(SUM(in_amount_sol), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum spent volume: %w", err)
	}
	return total, nil
}

// CreateScheduledJob persists a future-dated launch.
func (s *Store) CreateScheduledJob(job *models.ScheduledJob) error {
	if err := s.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create scheduled job: %w", err)
	}
	return nil
}

// PendingJobs returns all jobs that have not fired yet.
func (s *Store) PendingJobs() ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Where("fired = ?", false).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending jobs: %w", err)
	}
	return jobs, nil
}

// MarkJobFired flags a scheduled job as handed off to the launcher.
func (s *Store) MarkJobFired(botID string) error {
	err := s.db.Model(&models.ScheduledJob{}).
		Where("bot_id = ?", botID).
		Update("fired", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark job fired: %w", err)
	}
	return nil
}

// DeleteScheduledJob removes a job (user cancelled before launch).
func (s *Store) DeleteScheduledJob(botID string) error {
	err := s.db.Where("bot_id = ?", botID).Delete(&models.ScheduledJob{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete scheduled job: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the advisory status row for one bot.
func (s *Store) SaveSnapshot(snap *models.RunSnapshot) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"strategy", "status", "trades_made", "consecutive_failures",
			"spent_today_sol", "last_tick_at", "loop_duration_ms", "notes",
		}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("failed to save run snapshot: %w", err)
	}
	return nil
}
