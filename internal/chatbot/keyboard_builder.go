package chatbot

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"wellcheck-api/internal/common"
	"wellcheck-api/internal/delivery"
)

// maxCallbackDataBytes is Telegram's limit for callback_data
const maxCallbackDataBytes = 64

// KeyboardBuilder provides utilities for creating inline keyboards
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder instance
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// BuildCheckInKeyboard renders the two check-in responses, one button per row
func (kb *KeyboardBuilder) BuildCheckInKeyboard(prompt delivery.Prompt) tgbotapi.InlineKeyboardMarkup {
	okayLabel := prompt.OkayLabel
	if okayLabel == "" {
		okayLabel = "I'm okay"
	}
	helpLabel := prompt.NeedHelpLabel
	if helpLabel == "" {
		helpLabel = "I need help"
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+okayLabel, kb.encodeCallbackData(CallbackActionOkay, prompt.CheckID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆘 "+helpLabel, kb.encodeCallbackData(CallbackActionHelp, prompt.CheckID)),
		),
	)
}

// PromptText renders the check-in question with its response window
func (kb *KeyboardBuilder) PromptText(prompt delivery.Prompt) string {
	text := prompt.Text
	if text == "" {
		text = delivery.DefaultPromptText
	}
	if prompt.TimeoutMinutes > 0 {
		text += fmt.Sprintf("\n\nIf you do not answer within %s, your emergency contacts will be notified.", minutes(prompt.TimeoutMinutes))
	}
	return text
}

// encodeCallbackData encodes action and check id as JSON, falling back to the bare action
func (kb *KeyboardBuilder) encodeCallbackData(action string, checkID common.CheckID) string {
	if checkID == "" {
		return action
	}

	jsonData, err := json.Marshal(CallbackData{Action: action, CheckID: checkID})
	if err != nil || len(jsonData) > maxCallbackDataBytes {
		return action
	}
	return string(jsonData)
}

// DecodeCallbackData decodes callback data produced by the check-in keyboard
func DecodeCallbackData(raw string) *CallbackData {
	var data CallbackData
	if err := json.Unmarshal([]byte(raw), &data); err == nil && data.Action != "" {
		return &data
	}
	return &CallbackData{Action: raw}
}

func minutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
