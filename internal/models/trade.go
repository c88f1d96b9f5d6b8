package models

import "gorm.io/gorm"

// Trade is one executed (or simulated) swap. Rows are append-only: the
// loop inserts and never updates; position monitoring happens elsewhere.
type Trade struct {
	gorm.Model
	Strategy      string  `json:"strategy" gorm:"index:idx_strategy_wallet"`
	Mint          string  `json:"mint" gorm:"index"`
	Wallet        string  `json:"wallet" gorm:"index:idx_strategy_wallet"`
	InAmountSOL   float64 `json:"in_amount_sol"`
	OutAmount     float64 `json:"out_amount"`
	RemainingOut  float64 `json:"remaining_out"` // nonzero while the position is open
	ImpactPct     float64 `json:"impact_pct"`
	Signature     string  `json:"signature"`
	TakeProfitPct float64 `json:"take_profit_pct"`
	StopLossPct   float64 `json:"stop_loss_pct"`
	Timestamp     int64   `json:"timestamp"`
	IsSimulation  bool    `json:"is_simulation"`
}
