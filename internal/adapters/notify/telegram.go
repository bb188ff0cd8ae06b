// Package notify delivers classification results to a fixed recipient.
package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// telegramLimit is the maximum message length accepted by the Bot API
const telegramLimit = 4096

// MessageSender is the part of the bot API the notifier uses
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends notifications to one Telegram chat
type TelegramNotifier struct {
	bot    MessageSender
	chatID int64
	logger *zap.Logger
}

// NewTelegramBot authenticates against the Bot API
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// NewTelegramNotifier creates a notifier for chatID
func NewTelegramNotifier(bot MessageSender, chatID int64, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}
}

// Notify sends text, cut to the Bot API limit
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runes := []rune(text)
	if len(runes) > telegramLimit {
		text = string(runes[:telegramLimit-1]) + "…"
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}

	n.logger.Debug("Telegram notification sent", zap.Int64("chat_id", n.chatID))
	return nil
}
