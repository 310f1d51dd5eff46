package chatbot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramProvider defines the contract for Telegram API operations
type TelegramProvider interface {
	// SendMessage sends a plain text message to the specified chat
	SendMessage(chatID int64, text string) error

	// SendMessageWithKeyboard sends a message with an inline keyboard
	SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error

	// AnswerCallback acknowledges a callback query so the client stops its spinner
	AnswerCallback(callbackID string, text string) error

	// SetWebhook configures the webhook URL for receiving updates
	SetWebhook(webhookURL string) error

	// DeleteWebhook removes the configured webhook
	DeleteWebhook() error

	// GetMe returns information about the bot
	GetMe() (*tgbotapi.User, error)

	// GetUpdatesChan starts long polling and streams updates until StopReceivingUpdates
	GetUpdatesChan(timeoutSeconds int) tgbotapi.UpdatesChannel

	// StopReceivingUpdates ends long polling
	StopReceivingUpdates()
}
