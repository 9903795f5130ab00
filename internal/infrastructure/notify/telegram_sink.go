package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/pkg/metrics"
)

// Sender is the part of the Telegram bot client the sink needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts notifications to a Telegram chat.
type TelegramSink struct {
	bot    Sender
	chatID int64
}

// NewTelegramBot authenticates against the Bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegramSink(bot Sender, chatID int64) *TelegramSink {
	return &TelegramSink{bot: bot, chatID: chatID}
}

func (s *TelegramSink) Send(ctx context.Context, change domain.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, Message(change))); err != nil {
		return fmt.Errorf("telegram send task %d: %w", change.TaskID, err)
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}
