package notify

import (
	"fmt" // Message formatting

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5" // Telegram Bot API
	"github.com/pkg/errors"                                       // Error wrapping
	"github.com/sirupsen/logrus"                                  // Logging library
)

// Telegram sends operator notifications to a fixed chat.
// A nil *Telegram is a no-op, so callers never need to branch on configuration.
type Telegram struct {
	bot    *tgbotapi.BotAPI // Bot API client
	chatID int64            // Operator chat
}

// NewTelegram creates a notifier, or nil when no token is configured
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, nil // Notifications disabled
	}
	bot, err := tgbotapi.NewBotAPI(token) // Authorize the bot
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot auth")
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// WithdrawalRequested notifies the operator about a new withdrawal request
func (t *Telegram) WithdrawalRequested(email string, amount float64, details string) {
	if t == nil {
		return // Notifications disabled
	}
	text := fmt.Sprintf("Новая заявка на вывод\nПользователь: %s\nСумма: %.2f ₽\nРеквизиты: %s", email, amount, details)
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		// Notification failures must not affect the withdrawal itself
		logrus.WithField("error", err.Error()).Warn("Failed to send withdrawal notification")
	}
}
