package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new zap.Logger instance based on the provided configuration.
func NewLogger(level string, format string) (*zap.Logger, error) {
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Error-level stacktraces drown out the per-tick failure logs.
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// ForStrategy returns a logger scoped to one running strategy instance.
func ForStrategy(base *zap.Logger, kind, botID string) *zap.Logger {
	return base.Named("strategy").With(
		zap.String("kind", kind),
		zap.String("bot_id", botID),
	)
}
