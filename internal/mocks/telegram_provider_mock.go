package mocks

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MockTelegramProvider records outbound Telegram calls and feeds polling updates.
// It satisfies chatbot.TelegramProvider.
type MockTelegramProvider struct {
	mutex              sync.RWMutex
	sentMessages       []MockMessage
	sentKeyboards      []MockKeyboardMessage
	answeredCallbacks  []string
	webhookURL         string
	botInfo            *tgbotapi.User
	sendMessageError   error
	sendKeyboardError  error
	setWebhookError    error
	deleteWebhookError error
	getMeError         error
	failChats          map[int64]error
	updates            chan tgbotapi.Update
	stopped            bool
	callCounts         map[string]int
}

// MockMessage represents a sent message for testing verification
type MockMessage struct {
	ChatID    int64
	Text      string
	Timestamp time.Time
	MessageID int
	Keyboard  *tgbotapi.InlineKeyboardMarkup
}

// MockKeyboardMessage represents a sent message with keyboard
type MockKeyboardMessage struct {
	ChatID    int64
	Text      string
	Keyboard  tgbotapi.InlineKeyboardMarkup
	Timestamp time.Time
	MessageID int
}

// NewMockTelegramProvider creates a new mock Telegram provider
func NewMockTelegramProvider() *MockTelegramProvider {
	return &MockTelegramProvider{
		botInfo: &tgbotapi.User{
			ID:        123456789,
			UserName:  "wellcheck_test_bot",
			FirstName: "WellCheck",
			IsBot:     true,
		},
		failChats:  make(map[int64]error),
		updates:    make(chan tgbotapi.Update, 100),
		callCounts: make(map[string]int),
	}
}

// SendMessage implements the TelegramProvider interface
func (m *MockTelegramProvider) SendMessage(chatID int64, text string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["SendMessage"]++

	if err := m.failureFor(chatID, m.sendMessageError); err != nil {
		return err
	}

	m.sentMessages = append(m.sentMessages, MockMessage{
		ChatID:    chatID,
		Text:      text,
		Timestamp: time.Now(),
		MessageID: len(m.sentMessages) + 1,
	})
	return nil
}

// SendMessageWithKeyboard implements the TelegramProvider interface
func (m *MockTelegramProvider) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["SendMessageWithKeyboard"]++

	if err := m.failureFor(chatID, m.sendKeyboardError); err != nil {
		return err
	}

	m.sentKeyboards = append(m.sentKeyboards, MockKeyboardMessage{
		ChatID:    chatID,
		Text:      text,
		Keyboard:  keyboard,
		Timestamp: time.Now(),
		MessageID: len(m.sentKeyboards) + 1,
	})

	// Also add to regular messages for unified tracking
	m.sentMessages = append(m.sentMessages, MockMessage{
		ChatID:    chatID,
		Text:      text,
		Timestamp: time.Now(),
		MessageID: len(m.sentMessages) + 1,
		Keyboard:  &keyboard,
	})
	return nil
}

func (m *MockTelegramProvider) AnswerCallback(callbackID string, text string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["AnswerCallback"]++
	m.answeredCallbacks = append(m.answeredCallbacks, callbackID)
	return nil
}

// SetWebhook implements the TelegramProvider interface
func (m *MockTelegramProvider) SetWebhook(webhookURL string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["SetWebhook"]++
	if m.setWebhookError != nil {
		return m.setWebhookError
	}
	m.webhookURL = webhookURL
	return nil
}

// DeleteWebhook implements the TelegramProvider interface
func (m *MockTelegramProvider) DeleteWebhook() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["DeleteWebhook"]++
	if m.deleteWebhookError != nil {
		return m.deleteWebhookError
	}
	m.webhookURL = ""
	return nil
}

// GetMe implements the TelegramProvider interface
func (m *MockTelegramProvider) GetMe() (*tgbotapi.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["GetMe"]++
	if m.getMeError != nil {
		return nil, m.getMeError
	}
	return m.botInfo, nil
}

// GetUpdatesChan returns the channel fed by PushUpdate
func (m *MockTelegramProvider) GetUpdatesChan(timeoutSeconds int) tgbotapi.UpdatesChannel {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["GetUpdatesChan"]++
	return m.updates
}

// StopReceivingUpdates closes the update channel once
func (m *MockTelegramProvider) StopReceivingUpdates() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callCounts["StopReceivingUpdates"]++
	if !m.stopped {
		m.stopped = true
		close(m.updates)
	}
}

// PushUpdate queues an update for the polling loop
func (m *MockTelegramProvider) PushUpdate(update tgbotapi.Update) {
	m.updates <- update
}

func (m *MockTelegramProvider) failureFor(chatID int64, fallback error) error {
	if err, ok := m.failChats[chatID]; ok {
		return err
	}
	return fallback
}

// GetSentMessages returns all sent messages
func (m *MockTelegramProvider) GetSentMessages() []MockMessage {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	messages := make([]MockMessage, len(m.sentMessages))
	copy(messages, m.sentMessages)
	return messages
}

// GetSentKeyboards returns all sent keyboard messages
func (m *MockTelegramProvider) GetSentKeyboards() []MockKeyboardMessage {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	keyboards := make([]MockKeyboardMessage, len(m.sentKeyboards))
	copy(keyboards, m.sentKeyboards)
	return keyboards
}

// GetLastMessage returns the most recently sent message
func (m *MockTelegramProvider) GetLastMessage() *MockMessage {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if len(m.sentMessages) == 0 {
		return nil
	}
	last := m.sentMessages[len(m.sentMessages)-1]
	return &last
}

// GetMessagesForChat returns all messages sent to a specific chat
func (m *MockTelegramProvider) GetMessagesForChat(chatID int64) []MockMessage {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var messages []MockMessage
	for _, msg := range m.sentMessages {
		if msg.ChatID == chatID {
			messages = append(messages, msg)
		}
	}
	return messages
}

// GetAnsweredCallbacks returns the acknowledged callback query ids
func (m *MockTelegramProvider) GetAnsweredCallbacks() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	answered := make([]string, len(m.answeredCallbacks))
	copy(answered, m.answeredCallbacks)
	return answered
}

// GetWebhookURL returns the configured webhook URL
func (m *MockTelegramProvider) GetWebhookURL() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.webhookURL
}

// GetCallCount returns how many times method was called
func (m *MockTelegramProvider) GetCallCount(method string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.callCounts[method]
}

// Error simulation methods

func (m *MockTelegramProvider) SetSendMessageError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sendMessageError = err
}

func (m *MockTelegramProvider) SetSendKeyboardError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sendKeyboardError = err
}

// FailChat makes every send to chatID fail with err
func (m *MockTelegramProvider) FailChat(chatID int64, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failChats[chatID] = err
}

func (m *MockTelegramProvider) SetWebhookError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.setWebhookError = err
}

func (m *MockTelegramProvider) SetDeleteWebhookError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.deleteWebhookError = err
}

func (m *MockTelegramProvider) SetGetMeError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.getMeError = err
}

// ClearHistory clears all sent messages and call counts
func (m *MockTelegramProvider) ClearHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sentMessages = nil
	m.sentKeyboards = nil
	m.answeredCallbacks = nil
	m.callCounts = make(map[string]int)
}

// NewTestMessageUpdate builds a private-chat message update. Text starting
// with '/' carries a bot_command entity so Message.IsCommand reports true.
func NewTestMessageUpdate(updateID int, chatID int64, firstName, text string) tgbotapi.Update {
	message := &tgbotapi.Message{
		MessageID: updateID,
		From: &tgbotapi.User{
			ID:        chatID,
			UserName:  fmt.Sprintf("user_%d", chatID),
			FirstName: firstName,
		},
		Chat: &tgbotapi.Chat{
			ID:   chatID,
			Type: "private",
		},
		Text: text,
		Date: int(time.Now().Unix()),
	}

	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i >= 0 {
			length = i
		}
		message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}

	return tgbotapi.Update{UpdateID: updateID, Message: message}
}

// NewTestCallbackUpdate builds a callback query update for a private chat
func NewTestCallbackUpdate(updateID int, chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID: fmt.Sprintf("callback_%d", updateID),
			From: &tgbotapi.User{
				ID:        chatID,
				UserName:  fmt.Sprintf("user_%d", chatID),
				FirstName: "Test User",
			},
			Message: &tgbotapi.Message{
				MessageID: updateID,
				Chat: &tgbotapi.Chat{
					ID:   chatID,
					Type: "private",
				},
			},
			Data: data,
		},
	}
}

// SimulateWebhookUpdate encodes a test update the way Telegram posts it
func SimulateWebhookUpdate(updateType string, chatID int64, text string) []byte {
	var update tgbotapi.Update

	switch updateType {
	case "message":
		update = NewTestMessageUpdate(123456, chatID, "Test User", text)
	case "callback":
		update = NewTestCallbackUpdate(123456, chatID, text)
	}

	jsonData, _ := json.Marshal(update)
	return jsonData
}
