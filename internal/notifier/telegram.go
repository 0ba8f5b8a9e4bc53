package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"sentiment-backend/internal/config"

	"github.com/google/uuid"
)

// Notifier pushes operator notifications to a Telegram chat. A nil Notifier
// is valid and drops everything, so callers never need to branch on the
// feature flag.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewNotifier creates a Telegram notifier, or nil when disabled.
func NewNotifier(cfg *config.Config, logger *zap.Logger) (*Notifier, error) {
	if !cfg.Notifications.Enabled || cfg.Notifications.TelegramBotToken == "" {
		logger.Info("Telegram notifications are disabled (notifications.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("username", botAPI.Self.UserName))

	return &Notifier{
		api:    botAPI,
		chatID: cfg.Notifications.TelegramChatID,
		logger: logger,
	}, nil
}

// BatchClassified announces that a batch has finished the classify stage.
func (n *Notifier) BatchClassified(batchID uuid.UUID, count int) {
	n.send(fmt.Sprintf("Batch %s classified: %d comments", batchID, count))
}

// EvaluationReady announces a freshly computed macro-F1 score.
func (n *Notifier) EvaluationReady(batchID uuid.UUID, score float64) {
	n.send(fmt.Sprintf("Batch %s evaluated: macro-F1 %.4f", batchID, score))
}

func (n *Notifier) send(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error("Failed to send Telegram notification", zap.Error(err))
	}
}
