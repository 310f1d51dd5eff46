//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"wellcheck-api/internal/chatbot"
	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/config"
	"wellcheck-api/internal/database"
	"wellcheck-api/internal/escalation"
	"wellcheck-api/internal/events"
	"wellcheck-api/internal/mocks"
	"wellcheck-api/internal/registry"
	"wellcheck-api/internal/scheduler"
)

const (
	userChat    int64 = 1001
	contactChat int64 = 2002
)

// SetupTestDatabase starts a PostgreSQL container and returns a migrated connection
func SetupTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("test_wellcheck"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(ctx), "Failed to terminate test container")
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.NewPostgresConnection(config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "test_user",
		Password:        "test_password",
		DBName:          "test_wellcheck",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 300,
		ConnectTimeout:  10,
	}, zap.NewNop())
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db))
	return db
}

// Stack is the full service graph on postgres with a recording Telegram provider
type Stack struct {
	DB        *gorm.DB
	Logger    *zap.Logger
	Provider  *mocks.MockTelegramProvider
	Clock     *common.MockClock
	EventBus  events.EventBus
	Publisher *events.Publisher
	UserRepo  registry.Repository
	CheckRepo checkin.Repository
	Users     registry.Service
	Manager   checkin.Manager
	Chatbot   chatbot.ChatbotService
	Scheduler scheduler.Scheduler
}

// SetupStack wires every service the way cmd/server does, on a fresh database
func SetupStack(t *testing.T) *Stack {
	t.Helper()

	db := SetupTestDatabase(t)
	logger := zaptest.NewLogger(t)
	bus := events.NewEventBus(logger)

	s := &Stack{
		DB:        db,
		Logger:    logger,
		Provider:  mocks.NewMockTelegramProvider(),
		Clock:     common.NewMockClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)),
		EventBus:  bus,
		Publisher: events.NewPublisher(bus, logger),
		UserRepo:  registry.NewGormRepository(db, logger),
		CheckRepo: checkin.NewGormRepository(db, logger),
	}
	s.Users = registry.NewService(s.UserRepo, registry.Defaults{CheckHour: 9, TimeoutMinutes: 30}, logger)
	s.Manager = s.NewManager()

	service, err := chatbot.NewChatbotService(chatbot.Dependencies{
		Provider: s.Provider,
		Users:    s.Users,
		Checks:   s.Manager,
		EventBus: bus,
		Config:   config.ChatbotConfig{Mode: config.ModePolling, PollTimeout: 1},
		Logger:   logger,
	})
	require.NoError(t, err)
	s.Chatbot = service

	sched, err := scheduler.NewScheduler(config.SchedulerConfig{
		Enabled:         true,
		PollInterval:    60,
		Timezone:        "UTC",
		ShutdownTimeout: 5,
	}, s.UserRepo, s.Manager, s.Clock, logger)
	require.NoError(t, err)
	s.Scheduler = sched

	t.Cleanup(func() {
		s.Manager.Stop()
		_ = s.Chatbot.Close()
		_ = bus.Close()
	})
	return s
}

// NewManager builds another manager on the same storage, as a restarted process would
func (s *Stack) NewManager() checkin.Manager {
	gateway := chatbot.NewTelegramGateway(s.Provider, s.Logger)
	return checkin.NewManager(checkin.Dependencies{
		Checks:    s.CheckRepo,
		Users:     s.UserRepo,
		Gateway:   gateway,
		Escalator: escalation.NewNotifier(s.UserRepo, gateway, s.Publisher, s.Logger),
		Clock:     s.Clock,
		Publisher: s.Publisher,
		Logger:    s.Logger,
	})
}

// Enroll registers the user with one chat contact
func (s *Stack) Enroll(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, _, err := s.Users.EnsureUser(ctx, common.UserID("1001"), "Una")
	require.NoError(t, err)
	_, err = s.Users.AddContact(ctx, common.UserID("1001"), "2002", "Sister")
	require.NoError(t, err)
}

// Press simulates a button press by the enrolled user
func (s *Stack) Press(t *testing.T, data string) {
	t.Helper()
	update := mocks.NewTestCallbackUpdate(2, userChat, data)
	require.NoError(t, s.Chatbot.HandleUpdate(context.Background(), &update))
	s.Manager.Wait()
}

// EventuallyReceives waits for a message containing fragment in chatID
func (s *Stack) EventuallyReceives(t *testing.T, chatID int64, fragment string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		for _, msg := range s.Provider.GetMessagesForChat(chatID) {
			if strings.Contains(msg.Text, fragment) {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond, "chat %d never received %q", chatID, fragment)
}
