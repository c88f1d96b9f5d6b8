package alert

import (
	"context"

	"solana-trade-bot-go/internal/config"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier is the fire-and-forget alerting side channel. Delivery
// failures are logged and swallowed, never propagated to a loop.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Telegram sends alerts to a configured chat.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegram creates a Telegram notifier. Returns a Nop notifier when
// no token is configured so callers never need a nil check.
func NewTelegram(cfg *config.Telegram, logger *zap.Logger) (Notifier, error) {
	if cfg.Token == "" {
		logger.Info("Telegram alerting disabled (no token configured)")
		return Nop{}, nil
	}
	bot, err := tgbot.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: logger}, nil
}

// Notify sends one message. Errors are swallowed after logging.
func (t *Telegram) Notify(_ context.Context, message string) {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, message)); err != nil {
		t.logger.Warn("Failed to deliver alert", zap.Error(err))
	}
}

// Nop discards all notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string) {}
