package chatbot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcheck-api/internal/common"
	"wellcheck-api/internal/delivery"
)

func TestKeyboardBuilder_BuildCheckInKeyboard(t *testing.T) {
	kb := NewKeyboardBuilder()
	checkID := common.NewCheckID()

	keyboard := kb.BuildCheckInKeyboard(delivery.NewPrompt(checkID, 30))
	require.Len(t, keyboard.InlineKeyboard, 2)

	okay := keyboard.InlineKeyboard[0][0]
	help := keyboard.InlineKeyboard[1][0]
	assert.Contains(t, okay.Text, "I'm okay")
	assert.Contains(t, help.Text, "I need help")

	require.NotNil(t, okay.CallbackData)
	require.NotNil(t, help.CallbackData)
	assert.LessOrEqual(t, len(*okay.CallbackData), maxCallbackDataBytes)
	assert.LessOrEqual(t, len(*help.CallbackData), maxCallbackDataBytes)

	decoded := DecodeCallbackData(*help.CallbackData)
	assert.Equal(t, CallbackActionHelp, decoded.Action)
	assert.Equal(t, checkID, decoded.CheckID)
	kind, ok := decoded.ResponseKind()
	assert.True(t, ok)
	assert.Equal(t, common.ResponseNeedHelp, kind)
}

func TestKeyboardBuilder_EncodeFallsBackToAction(t *testing.T) {
	kb := NewKeyboardBuilder()

	assert.Equal(t, CallbackActionOkay, kb.encodeCallbackData(CallbackActionOkay, ""))
	assert.Equal(t, CallbackActionOkay, kb.encodeCallbackData(CallbackActionOkay, common.CheckID(strings.Repeat("x", 80))))
}

func TestKeyboardBuilder_PromptText(t *testing.T) {
	kb := NewKeyboardBuilder()

	tests := []struct {
		name    string
		prompt  delivery.Prompt
		want    string
		notWant string
	}{
		{name: "plural", prompt: delivery.NewPrompt("c1", 30), want: "within 30 minutes"},
		{name: "singular", prompt: delivery.NewPrompt("c1", 1), want: "within 1 minute,"},
		{name: "no timeout", prompt: delivery.Prompt{}, want: delivery.DefaultPromptText, notWant: "within"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := kb.PromptText(tt.prompt)
			assert.Contains(t, text, tt.want)
			if tt.notWant != "" {
				assert.NotContains(t, text, tt.notWant)
			}
		})
	}
}

func TestCallbackData_ResponseKind(t *testing.T) {
	kind, ok := CallbackData{Action: CallbackActionOkay}.ResponseKind()
	assert.True(t, ok)
	assert.Equal(t, common.ResponseOkay, kind)

	_, ok = CallbackData{Action: "snooze"}.ResponseKind()
	assert.False(t, ok)
}
