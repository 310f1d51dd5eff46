package chatbot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/config"
	"wellcheck-api/internal/escalation"
	"wellcheck-api/internal/events"
	"wellcheck-api/internal/mocks"
	"wellcheck-api/internal/registry"
)

const (
	userChat    int64 = 1001
	contactChat int64 = 2002
)

type serviceFixture struct {
	provider *mocks.MockTelegramProvider
	clock    *common.MockClock
	users    *registry.MemoryRepository
	checks   *checkin.MemoryRepository
	manager  checkin.Manager
	service  ChatbotService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	provider := mocks.NewMockTelegramProvider()
	clock := common.NewMockClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	users := registry.NewMemoryRepository()
	checks := checkin.NewMemoryRepository()

	bus := events.NewMockEventBus()
	bus.SetSynchronousMode(true)
	publisher := events.NewPublisher(bus, logger)

	gateway := NewTelegramGateway(provider, logger)
	manager := checkin.NewManager(checkin.Dependencies{
		Checks:    checks,
		Users:     users,
		Gateway:   gateway,
		Escalator: escalation.NewNotifier(users, gateway, publisher, logger),
		Clock:     clock,
		Publisher: publisher,
		Logger:    logger,
	})
	t.Cleanup(manager.Stop)

	service, err := NewChatbotService(Dependencies{
		Provider: provider,
		Users:    registry.NewService(users, registry.Defaults{CheckHour: 9, TimeoutMinutes: 30}, logger),
		Checks:   manager,
		EventBus: bus,
		Config:   config.ChatbotConfig{Mode: config.ModePolling, PollTimeout: 1},
		Logger:   logger,
	})
	require.NoError(t, err)

	return &serviceFixture{
		provider: provider,
		clock:    clock,
		users:    users,
		checks:   checks,
		manager:  manager,
		service:  service,
	}
}

func (f *serviceFixture) send(t *testing.T, text string) {
	t.Helper()
	update := mocks.NewTestMessageUpdate(1, userChat, "Una", text)
	require.NoError(t, f.service.HandleUpdate(context.Background(), &update))
	f.manager.Wait()
}

func (f *serviceFixture) press(t *testing.T, data string) {
	t.Helper()
	update := mocks.NewTestCallbackUpdate(2, userChat, data)
	require.NoError(t, f.service.HandleUpdate(context.Background(), &update))
	f.manager.Wait()
}

func (f *serviceFixture) textsFor(chatID int64) []string {
	var texts []string
	for _, msg := range f.provider.GetMessagesForChat(chatID) {
		texts = append(texts, msg.Text)
	}
	return texts
}

func containsText(texts []string, fragment string) bool {
	for _, text := range texts {
		if strings.Contains(text, fragment) {
			return true
		}
	}
	return false
}

func TestChatbotService_StartRegistersAndPrompts(t *testing.T) {
	f := newServiceFixture(t)

	f.send(t, "/start")

	user, err := f.users.GetUser(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "Una", user.DisplayName)
	assert.Equal(t, 9, user.CheckHour)
	assert.Equal(t, 30, user.TimeoutMinutes)

	keyboards := f.provider.GetSentKeyboards()
	require.Len(t, keyboards, 1)
	assert.Equal(t, userChat, keyboards[0].ChatID)

	texts := f.textsFor(userChat)
	assert.True(t, containsText(texts, "Welcome to WellCheck"))

	latest, err := f.checks.GetLatestCheckInstance(context.Background(), "1001")
	require.NoError(t, err)
	assert.True(t, latest.IsPending())
	assert.Equal(t, checkin.SourceOnDemand, latest.Source)

	// the button carries the id of the check it was sent for
	data := DecodeCallbackData(*keyboards[0].Keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, latest.ID, data.CheckID)
}

func TestChatbotService_OkayResolvesCheck(t *testing.T) {
	f := newServiceFixture(t)
	f.send(t, "/start")

	f.press(t, "ok")

	assert.Equal(t, ReplyOkay, f.provider.GetLastMessage().Text)
	assert.Equal(t, []string{"callback_2"}, f.provider.GetAnsweredCallbacks())

	latest, err := f.checks.GetLatestCheckInstance(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, common.CheckStatusResponded, latest.Status)
	assert.Equal(t, checkin.ResolutionOkay, latest.Resolution)

	// a second press finds nothing open
	f.press(t, "ok")
	assert.Equal(t, ReplyNothingOpen, f.provider.GetLastMessage().Text)

	// nobody was alerted
	f.clock.Advance(time.Hour)
	f.manager.Wait()
	assert.Empty(t, f.textsFor(contactChat))
}

func TestChatbotService_NeedHelpAlertsContacts(t *testing.T) {
	f := newServiceFixture(t)
	f.send(t, "/start")
	f.send(t, "/addcontact 2002 Sister")

	f.press(t, `{"a":"help"}`)

	alerts := f.textsFor(contactChat)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Una")
	assert.Contains(t, alerts[0], "right away")

	texts := f.textsFor(userChat)
	assert.True(t, containsText(texts, ReplyNeedHelp))
	assert.True(t, containsText(texts, "1 of your emergency contacts have been notified"))
}

func TestChatbotService_NeedHelpWithoutOpenCheck(t *testing.T) {
	f := newServiceFixture(t)
	f.send(t, "/addcontact 2002")

	f.press(t, "help")

	assert.Len(t, f.textsFor(contactChat), 1)
	assert.True(t, containsText(f.textsFor(userChat), ReplyNeedHelp))
}

func TestChatbotService_TimeoutTellsUser(t *testing.T) {
	f := newServiceFixture(t)
	f.send(t, "/settimeout 5")
	f.send(t, "/addcontact 2002")
	f.send(t, "/check")

	f.clock.Advance(5 * time.Minute)
	f.manager.Wait()

	alerts := f.textsFor(contactChat)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "within 5 minutes")

	texts := f.textsFor(userChat)
	assert.True(t, containsText(texts, "You did not answer your check-in within 5 minutes"))
	assert.True(t, containsText(texts, "1 of your emergency contacts have been notified"))
}

func TestChatbotService_EscalationWithoutContacts(t *testing.T) {
	f := newServiceFixture(t)
	f.send(t, "/check")

	f.clock.Advance(30 * time.Minute)
	f.manager.Wait()

	assert.True(t, containsText(f.textsFor(userChat), "You did not answer your check-in within 30 minutes"))
}

func TestChatbotService_SettingsCommands(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	tests := []struct {
		command string
		reply   string
	}{
		{command: "/help", reply: "WellCheck Help"},
		{command: "/sethour 7", reply: "moved to 07:00"},
		{command: "/sethour 24", reply: "must be between 0 and 23"},
		{command: "/sethour soon", reply: "is not a number"},
		{command: "/sethour", reply: "Usage: /sethour"},
		{command: "/settimeout 45", reply: "45 minutes"},
		{command: "/settimeout 0", reply: "must be positive"},
		{command: "/pause", reply: "paused"},
		{command: "/status", reply: "(paused)"},
		{command: "/resume", reply: "resumed"},
		{command: "/addcontact", reply: "Usage: /addcontact"},
		{command: "/addcontact abc", reply: "numeric chat ids"},
		{command: "/addcontact +15551234567 Mum", reply: "cannot message them yet"},
		{command: "/contacts", reply: "Mum"},
		{command: "/removecontact nope", reply: "not found"},
		{command: "/list", reply: "Unknown command"},
		{command: "just chatting", reply: "I did not understand"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			f.send(t, tt.command)
			last := f.provider.GetLastMessage()
			require.NotNil(t, last)
			assert.Contains(t, last.Text, tt.reply)
		})
	}

	user, err := f.users.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 7, user.CheckHour)
	assert.Equal(t, 45, user.TimeoutMinutes)
	assert.True(t, user.IsActive)

	contacts, err := f.users.GetContacts(ctx, "1001")
	require.NoError(t, err)
	require.Len(t, contacts, 1)

	f.send(t, "/removecontact "+string(contacts[0].ID))
	assert.Contains(t, f.provider.GetLastMessage().Text, "Contact removed")
}

func TestChatbotService_HandleWebhook(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.HandleWebhook(ctx, mocks.SimulateWebhookUpdate("message", userChat, "/help")))
	assert.Contains(t, f.provider.GetLastMessage().Text, "WellCheck Help")

	err := f.service.HandleWebhook(ctx, []byte(`not json`))
	assert.True(t, IsWebhookParsingError(err))
}

func TestChatbotService_RunPolling(t *testing.T) {
	f := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.service.Run(ctx) }()

	f.provider.PushUpdate(mocks.NewTestMessageUpdate(7, userChat, "Una", "/help"))
	assert.Eventually(t, func() bool {
		last := f.provider.GetLastMessage()
		return last != nil && strings.Contains(last.Text, "WellCheck Help")
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("polling loop did not stop")
	}
	assert.Equal(t, 1, f.provider.GetCallCount("DeleteWebhook"))
	assert.Equal(t, 1, f.provider.GetCallCount("StopReceivingUpdates"))
}

func TestNewChatbotService_Errors(t *testing.T) {
	_, err := NewChatbotService(Dependencies{})
	assert.True(t, IsConfigurationError(err))

	bus := &mocks.MockEventBus{}
	bus.On("SubscribeAsync", events.TopicCheckTimedOut, mock.Anything).Return(assert.AnError)

	_, err = NewChatbotService(Dependencies{
		Provider: mocks.NewMockTelegramProvider(),
		EventBus: bus,
		Logger:   zap.NewNop(),
	})
	assert.ErrorIs(t, err, assert.AnError)
	bus.AssertExpectations(t)
}

func TestNewChatbotService_SetsWebhook(t *testing.T) {
	provider := mocks.NewMockTelegramProvider()

	_, err := NewChatbotService(Dependencies{
		Provider: provider,
		Config:   config.ChatbotConfig{Mode: config.ModeWebhook, WebhookURL: "https://example.com/api/v1/telegram/webhook"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/v1/telegram/webhook", provider.GetWebhookURL())
}
