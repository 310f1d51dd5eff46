package chatbot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"wellcheck-api/internal/common"
)

// WebhookParser provides utilities for parsing Telegram updates
type WebhookParser struct{}

// NewWebhookParser creates a new WebhookParser instance
func NewWebhookParser() *WebhookParser {
	return &WebhookParser{}
}

// ParseUpdate unmarshals webhook data into a Telegram Update struct
func (p *WebhookParser) ParseUpdate(updateData []byte) (*tgbotapi.Update, error) {
	if len(updateData) == 0 {
		return nil, WebhookParsingError{UpdateType: "unknown", Details: "empty update data"}
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(updateData, &update); err != nil {
		return nil, WrapParsingError(err, "unknown")
	}

	if update.UpdateID == 0 {
		return nil, WebhookParsingError{UpdateType: "unknown", Details: "missing update ID"}
	}

	return &update, nil
}

// ExtractMessage converts a Telegram message to domain Message struct
func (p *WebhookParser) ExtractMessage(update *tgbotapi.Update) (*Message, error) {
	if update == nil || update.Message == nil {
		return nil, WebhookParsingError{UpdateType: "message", Details: "update does not contain a message"}
	}

	msg := update.Message
	if msg.Chat == nil {
		return nil, WebhookParsingError{UpdateType: "message", Details: "message does not contain chat information"}
	}

	text := msg.Text
	if text == "" && msg.Caption != "" {
		text = msg.Caption
	}

	return &Message{
		UserID:      chatUserID(msg.Chat.ID),
		ChatID:      msg.Chat.ID,
		DisplayName: displayName(msg.From),
		Text:        text,
		Timestamp:   time.Unix(int64(msg.Date), 0),
		MessageType: p.DetermineMessageType(update),
	}, nil
}

// ExtractCallbackQuery parses inline keyboard callback data. Payloads that are
// not JSON are treated as a bare action, which covers the plain "ok" and "help" buttons.
func (p *WebhookParser) ExtractCallbackQuery(update *tgbotapi.Update) (*CallbackData, error) {
	if update == nil || update.CallbackQuery == nil {
		return nil, WebhookParsingError{UpdateType: "callback_query", Details: "update does not contain a callback query"}
	}

	raw := update.CallbackQuery.Data
	if raw == "" {
		return nil, WebhookParsingError{UpdateType: "callback_query", Details: "callback query does not contain data"}
	}

	return DecodeCallbackData(raw), nil
}

// DetermineMessageType classifies the update
func (p *WebhookParser) DetermineMessageType(update *tgbotapi.Update) MessageType {
	if update.CallbackQuery != nil {
		return MessageTypeCallback
	}

	if update.Message != nil && update.Message.IsCommand() {
		return MessageTypeCommand
	}

	return MessageTypeText
}

// ExtractCommand parses the bot command and its whitespace separated arguments
func (p *WebhookParser) ExtractCommand(message *tgbotapi.Message) (Command, []string, error) {
	if message == nil || !message.IsCommand() {
		return "", nil, WebhookParsingError{UpdateType: "message", Details: "message is not a command"}
	}

	command := Command("/" + strings.ToLower(message.Command()))
	if !command.IsValid() {
		return "", nil, NewCommandError(string(command), "unknown command", "", nil)
	}

	return command, strings.Fields(message.CommandArguments()), nil
}

// BuildCorrelationID generates a unique correlation ID for tracking
func (p *WebhookParser) BuildCorrelationID(update *tgbotapi.Update) string {
	if update == nil {
		return fmt.Sprintf("corr_%d", time.Now().UnixNano())
	}

	timestamp := time.Now().Unix()

	if update.Message != nil {
		return fmt.Sprintf("msg_%d_%d_%d", update.UpdateID, update.Message.MessageID, timestamp)
	}

	if update.CallbackQuery != nil {
		return fmt.Sprintf("cb_%d_%s_%d", update.UpdateID, update.CallbackQuery.ID, timestamp)
	}

	return fmt.Sprintf("upd_%d_%d", update.UpdateID, timestamp)
}

// GetUserID returns the registry id for the sender, which is their private chat id
func (p *WebhookParser) GetUserID(update *tgbotapi.Update) (common.UserID, error) {
	chatID, err := p.GetChatID(update)
	if err != nil {
		return "", err
	}
	return chatUserID(chatID), nil
}

// GetChatID extracts the chat to reply to
func (p *WebhookParser) GetChatID(update *tgbotapi.Update) (int64, error) {
	if update == nil {
		return 0, WebhookParsingError{UpdateType: "unknown", Details: "update is nil"}
	}

	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID, nil
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID, nil
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		// private chat ids equal the user id
		return update.CallbackQuery.From.ID, nil
	default:
		return 0, WebhookParsingError{UpdateType: "unknown", Details: "no chat information found in update"}
	}
}

// GetDisplayName returns the sender's name as shown to their contacts
func (p *WebhookParser) GetDisplayName(update *tgbotapi.Update) string {
	switch {
	case update == nil:
		return ""
	case update.Message != nil:
		return displayName(update.Message.From)
	case update.CallbackQuery != nil:
		return displayName(update.CallbackQuery.From)
	default:
		return ""
	}
}

func chatUserID(chatID int64) common.UserID {
	return common.UserID(strconv.FormatInt(chatID, 10))
}

// ParseChatID converts a user id or chat contact address back into a Telegram chat id.
// A leading '+' marks a phone number and is rejected.
func ParseChatID(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	chatID, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || strings.HasPrefix(trimmed, "+") {
		return 0, common.ValidationError{Field: "chat_id", Message: fmt.Sprintf("'%s' is not a telegram chat id", value)}
	}
	return chatID, nil
}

func displayName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.UserName
	}
	return name
}
