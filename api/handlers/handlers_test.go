package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"wellcheck-api/internal/chatbot"
	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/escalation"
	"wellcheck-api/internal/events"
	"wellcheck-api/internal/mocks"
	"wellcheck-api/internal/registry"
	"wellcheck-api/pkg/logger"
)

func setupTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func testLogger(t *testing.T) *logger.Logger {
	return &logger.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}
}

// mockChatbotService is a testify mock of chatbot.ChatbotService
type mockChatbotService struct {
	mock.Mock
}

var _ chatbot.ChatbotService = (*mockChatbotService)(nil)

func (m *mockChatbotService) HandleWebhook(ctx context.Context, webhookData []byte) error {
	args := m.Called(ctx, webhookData)
	return args.Error(0)
}

func (m *mockChatbotService) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *mockChatbotService) SendMessage(chatID int64, text string) error {
	args := m.Called(chatID, text)
	return args.Error(0)
}

func (m *mockChatbotService) Run(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockChatbotService) Close() error {
	args := m.Called()
	return args.Error(0)
}

// adminFixture wires the user handler to in-memory storage and a mock Telegram provider
type adminFixture struct {
	router   *gin.Engine
	provider *mocks.MockTelegramProvider
	users    registry.Service
	manager  checkin.Manager
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	zapLogger := zaptest.NewLogger(t)
	provider := mocks.NewMockTelegramProvider()
	userRepo := registry.NewMemoryRepository()

	bus := events.NewMockEventBus()
	bus.SetSynchronousMode(true)
	publisher := events.NewPublisher(bus, zap.NewNop())

	gateway := chatbot.NewTelegramGateway(provider, zapLogger)
	manager := checkin.NewManager(checkin.Dependencies{
		Checks:    checkin.NewMemoryRepository(),
		Users:     userRepo,
		Gateway:   gateway,
		Escalator: escalation.NewNotifier(userRepo, gateway, publisher, zapLogger),
		Clock:     common.NewMockClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)),
		Publisher: publisher,
		Logger:    zapLogger,
	})
	t.Cleanup(manager.Stop)

	users := registry.NewService(userRepo, registry.Defaults{CheckHour: 9, TimeoutMinutes: 30}, zapLogger)
	handler := NewUserHandler(users, manager, testLogger(t))

	router := setupTest()
	group := router.Group("/api/v1/users/:id")
	group.GET("", handler.GetUser)
	group.PATCH("", handler.UpdateUser)
	group.GET("/contacts", handler.ListContacts)
	group.POST("/contacts", handler.AddContact)
	group.DELETE("/contacts/:contactId", handler.RemoveContact)
	group.GET("/checks", handler.ListChecks)
	group.POST("/checks", handler.CreateCheck)
	group.POST("/responses", handler.RecordResponse)

	return &adminFixture{
		router:   router,
		provider: provider,
		users:    users,
		manager:  manager,
	}
}

func (f *adminFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	f.manager.Wait()
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
