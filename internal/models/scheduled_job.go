package models

import "gorm.io/gorm"

// ScheduledJob is a future-dated strategy launch. The scheduler arms a
// timer that fires WarmupMinutes early and hands the config off to the
// launcher, then marks the row fired.
type ScheduledJob struct {
	gorm.Model
	BotID         string `gorm:"uniqueIndex"`
	Kind          string
	ConfigJSON    string // serialized StrategyConfig
	LaunchAt      int64  // unix seconds
	WarmupMinutes int
	Fired         bool `gorm:"default:false"`
}
