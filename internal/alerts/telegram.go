package alerts

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender delivers alerts to a single Telegram chat.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSender creates a Telegram sender for the given bot token
// and chat.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

// SendMessage sends a plain text message to the configured chat.
func (s *TelegramSender) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(s.chatID, text)
	_, err := s.bot.Send(msg)
	return err
}

var _ Sender = (*TelegramSender)(nil)
