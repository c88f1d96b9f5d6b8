package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Strategy kinds understood by the launcher.
const (
	KindSniper     = "sniper"
	KindDipBuyer   = "dip-buyer"
	KindRebalancer = "rebalancer"
	KindRotation   = "rotation"
	KindScheduled  = "scheduled"
	KindIceberg    = "iceberg"
)

// Config holds all configuration for the application.
type Config struct {
	Market     Market           `mapstructure:"market"`
	Jupiter    Jupiter          `mapstructure:"jupiter"`
	Safety     Safety           `mapstructure:"safety"`
	Relay      Relay            `mapstructure:"relay"`
	RPC        RPC              `mapstructure:"rpc"`
	Wallet     Wallet           `mapstructure:"wallet"`
	Telegram   Telegram         `mapstructure:"telegram"`
	Logger     Logger           `mapstructure:"logger"`
	Database   Database         `mapstructure:"database"`
	Server     Server           `mapstructure:"server"`
	Timeouts   Timeouts         `mapstructure:"timeouts"`
	Strategies []StrategyConfig `mapstructure:"strategies"`
}

// Market holds the configuration for the market-data provider.
type Market struct {
	BaseURL        string  `mapstructure:"base_url"`
	ApiKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	CacheTTLSec    int     `mapstructure:"cache_ttl_sec"`
}

// Jupiter holds the configuration for the swap aggregator.
type Jupiter struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Safety holds the configuration for the token safety checker.
type Safety struct {
	BaseURL         string  `mapstructure:"base_url"`
	MinLiquidityUSD float64 `mapstructure:"min_liquidity_usd"`
	MaxTopHolderPct float64 `mapstructure:"max_top_holder_pct"`
}

// Relay holds the configuration for transaction relay fan-out.
type Relay struct {
	Enabled   bool     `mapstructure:"enabled"`
	Endpoints []string `mapstructure:"endpoints"`
}

// RPC holds the Solana RPC endpoint configuration.
type RPC struct {
	URL string `mapstructure:"url"`
}

// Wallet holds the signing key configuration.
type Wallet struct {
	PrivateKey string `mapstructure:"private_key"`
}

// Telegram holds the alerting configuration.
type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// Server holds the configuration for the status API.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Timeouts bounds every outbound call made by a strategy loop.
type Timeouts struct {
	FetchSec int `mapstructure:"fetch_sec"`
	TradeSec int `mapstructure:"trade_sec"`
}

// Fetch returns the data-fetch timeout as a duration.
func (t Timeouts) Fetch() time.Duration { return time.Duration(t.FetchSec) * time.Second }

// Trade returns the trade-submission timeout as a duration.
func (t Timeouts) Trade() time.Duration { return time.Duration(t.TradeSec) * time.Second }

// LimitTier is one price level of a scheduled limit-buy strategy.
type LimitTier struct {
	PriceBelow float64 `mapstructure:"price_below"`
	SizeSOL    float64 `mapstructure:"size_sol"`
}

// StrategyConfig is the immutable per-run input of one strategy loop.
// All percentage thresholds accept either a percent ("5") or a fraction
// ("0.05"); a value of exactly 1 is rejected as ambiguous.
type StrategyConfig struct {
	ID   string `mapstructure:"id"`
	Kind string `mapstructure:"kind"`

	// Numeric gates.
	EntryChangePct  float64 `mapstructure:"entry_change_pct"`
	DipPct          float64 `mapstructure:"dip_pct"`
	VolumeFloorUSD  float64 `mapstructure:"volume_floor_usd"`
	MinMarketCapUSD float64 `mapstructure:"min_market_cap_usd"`
	MaxMarketCapUSD float64 `mapstructure:"max_market_cap_usd"`
	MinTokenAgeMin  float64 `mapstructure:"min_token_age_min"`
	MaxTokenAgeMin  float64 `mapstructure:"max_token_age_min"`
	LookbackWindow  string  `mapstructure:"lookback_window"`

	// Timing.
	TickIntervalSec int    `mapstructure:"tick_interval_sec"`
	LaunchAt        string `mapstructure:"launch_at"`
	WarmupMinutes   int    `mapstructure:"warmup_minutes"`

	// Risk limits.
	MaxTrades         int     `mapstructure:"max_trades"`
	MaxDailyVolumeSOL float64 `mapstructure:"max_daily_volume_sol"`
	MaxOpenTrades     int     `mapstructure:"max_open_trades"`
	HaltOnFailures    int     `mapstructure:"halt_on_failures"`
	CooldownMs        int     `mapstructure:"cooldown_ms"`

	// Execution.
	SlippageBps     int      `mapstructure:"slippage_bps"`
	MaxImpactPct    float64  `mapstructure:"max_impact_pct"`
	BaseMint        string   `mapstructure:"base_mint"`
	PositionSizeSOL float64  `mapstructure:"position_size_sol"`
	TakeProfitPct   float64  `mapstructure:"take_profit_pct"`
	StopLossPct     float64  `mapstructure:"stop_loss_pct"`
	Tokens          []string `mapstructure:"tokens"`
	DisableSafety   bool     `mapstructure:"disable_safety"`
	DryRun          bool     `mapstructure:"dry_run"`

	// Rebalancer.
	TargetWeights map[string]float64 `mapstructure:"target_weights"`
	DriftPct      float64            `mapstructure:"drift_pct"`

	// Scheduled limit buys.
	LimitTiers []LimitTier `mapstructure:"limit_tiers"`

	// Iceberg / TWAP.
	TotalSizeSOL float64 `mapstructure:"total_size_sol"`
	Slices       int     `mapstructure:"slices"`
}

// TickInterval returns the tick period as a duration.
func (s *StrategyConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalSec) * time.Second
}

// Cooldown returns the per-mint cooldown window as a duration.
func (s *StrategyConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownMs) * time.Millisecond
}

var validKinds = map[string]bool{
	KindSniper:     true,
	KindDipBuyer:   true,
	KindRebalancer: true,
	KindRotation:   true,
	KindScheduled:  true,
	KindIceberg:    true,
}

// Validate reports fatal configuration errors. It runs before a loop
// registers; a non-nil error prevents the bot from starting at all.
func (s *StrategyConfig) Validate(now time.Time) error {
	if s.ID == "" {
		return fmt.Errorf("strategy config: id is required")
	}
	if !validKinds[s.Kind] {
		return fmt.Errorf("strategy config %s: unknown kind %q", s.ID, s.Kind)
	}
	if s.TickIntervalSec <= 0 {
		return fmt.Errorf("strategy config %s: tick_interval_sec must be positive", s.ID)
	}
	if s.BaseMint == "" {
		return fmt.Errorf("strategy config %s: base_mint is required", s.ID)
	}
	switch s.Kind {
	case KindScheduled:
		if len(s.Tokens) == 0 {
			return fmt.Errorf("strategy config %s: scheduled strategy needs a token to buy", s.ID)
		}
		if len(s.LimitTiers) == 0 {
			return fmt.Errorf("strategy config %s: scheduled strategy needs limit_tiers", s.ID)
		}
		for i, tier := range s.LimitTiers {
			if tier.SizeSOL <= 0 {
				return fmt.Errorf("strategy config %s: limit tier %d has non-positive size", s.ID, i)
			}
		}
	case KindIceberg:
		if len(s.Tokens) == 0 {
			return fmt.Errorf("strategy config %s: iceberg needs a token to buy", s.ID)
		}
		if s.TotalSizeSOL <= 0 || s.Slices <= 0 {
			return fmt.Errorf("strategy config %s: iceberg needs positive total_size_sol and slices", s.ID)
		}
	case KindRebalancer:
		if len(s.TargetWeights) == 0 {
			return fmt.Errorf("strategy config %s: rebalancer needs target_weights", s.ID)
		}
		if s.PositionSizeSOL <= 0 {
			return fmt.Errorf("strategy config %s: position_size_sol must be positive", s.ID)
		}
	default:
		if s.PositionSizeSOL <= 0 {
			return fmt.Errorf("strategy config %s: position_size_sol must be positive", s.ID)
		}
	}
	if s.LaunchAt != "" {
		launch, err := time.Parse(time.RFC3339, s.LaunchAt)
		if err != nil {
			return fmt.Errorf("strategy config %s: invalid launch_at: %w", s.ID, err)
		}
		if launch.Before(now) {
			return fmt.Errorf("strategy config %s: launch_at %s is in the past", s.ID, s.LaunchAt)
		}
	}
	// A threshold of exactly 1 cannot be told apart from 100% under the
	// percent-or-fraction input rule, so it is refused outright.
	for name, v := range map[string]float64{
		"entry_change_pct": s.EntryChangePct,
		"dip_pct":          s.DipPct,
		"max_impact_pct":   s.MaxImpactPct,
		"take_profit_pct":  s.TakeProfitPct,
		"stop_loss_pct":    s.StopLossPct,
		"drift_pct":        s.DriftPct,
	} {
		if v == 1 {
			return fmt.Errorf("strategy config %s: %s=1 is ambiguous (1%% or 100%%?); use 0.01 or 100", s.ID, name)
		}
	}
	return nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("market.base_url", "https://public-api.birdeye.so")
	viper.SetDefault("market.rate_limit", 10) // requests per second
	viper.SetDefault("market.rate_limit_burst", 5)
	viper.SetDefault("market.cache_ttl_sec", 15)
	viper.SetDefault("jupiter.base_url", "https://quote-api.jup.ag/v6")
	viper.SetDefault("jupiter.rate_limit", 10)
	viper.SetDefault("jupiter.rate_limit_burst", 5)
	viper.SetDefault("timeouts.fetch_sec", 8)
	viper.SetDefault("timeouts.trade_sec", 30)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
