package models

import "gorm.io/gorm"

// RunSnapshot is the advisory per-bot status row the UI reads. It is
// overwritten on every tick and carries no authority over the loop.
type RunSnapshot struct {
	gorm.Model
	BotID               string `gorm:"uniqueIndex"`
	Strategy            string
	Status              string
	TradesMade          int
	ConsecutiveFailures int
	SpentTodaySOL       float64
	LastTickAt          int64
	LoopDurationMs      int64
	Notes               string
}
