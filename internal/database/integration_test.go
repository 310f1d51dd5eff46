//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/config"
	"wellcheck-api/internal/registry"
)

// setupPostgres starts a throwaway postgres container and returns a migrated connection
func setupPostgres(t *testing.T) *gorm.DB {
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
		assert.NoError(t, container.Terminate(ctx))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := NewPostgresConnection(config.DatabaseConfig{
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
	}, zaptest.NewLogger(t))
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))
	require.NoError(t, HealthCheck(ctx, db))
	return db
}

func TestPostgres_Repositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	users := registry.NewGormRepository(db, logger)
	checks := checkin.NewGormRepository(db, logger)

	t.Run("users", func(t *testing.T) {
		user := registry.NewUser("1001", "Ada", 9, 30)
		require.NoError(t, users.UpsertUser(ctx, user))

		stored, err := users.GetUser(ctx, "1001")
		require.NoError(t, err)
		assert.Equal(t, "Ada", stored.DisplayName)
		assert.Equal(t, 9, stored.CheckHour)
		assert.True(t, stored.IsActive)
		assert.Nil(t, stored.LastCheckDate)

		stored.CheckHour = 21
		require.NoError(t, users.UpsertUser(ctx, stored))
		updated, err := users.GetUser(ctx, "1001")
		require.NoError(t, err)
		assert.Equal(t, 21, updated.CheckHour)

		_, err = users.GetUser(ctx, "missing")
		assert.True(t, common.IsNotFound(err))

		active, err := users.ListActiveUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("stamp last check date", func(t *testing.T) {
		require.NoError(t, users.UpsertUser(ctx, registry.NewUser("1002", "Grace", 8, 15)))

		won, err := users.StampLastCheckDate(ctx, "1002", "2024-03-04")
		require.NoError(t, err)
		assert.True(t, won)

		won, err = users.StampLastCheckDate(ctx, "1002", "2024-03-04")
		require.NoError(t, err)
		assert.False(t, won, "second stamp for the same day must lose")

		won, err = users.StampLastCheckDate(ctx, "1002", "2024-03-05")
		require.NoError(t, err)
		assert.True(t, won)

		_, err = users.StampLastCheckDate(ctx, "missing", "2024-03-04")
		assert.True(t, common.IsNotFound(err))

		require.NoError(t, users.SetAwaitingResponse(ctx, "1002", true))
		stored, err := users.GetUser(ctx, "1002")
		require.NoError(t, err)
		assert.True(t, stored.AwaitingResponse)
		assert.True(t, stored.CheckedOn("2024-03-05"))
	})

	t.Run("settings keep scheduling state", func(t *testing.T) {
		stale, err := users.GetUser(ctx, "1002")
		require.NoError(t, err)

		won, err := users.StampLastCheckDate(ctx, "1002", "2024-03-06")
		require.NoError(t, err)
		require.True(t, won)

		stale.CheckHour = 11
		require.NoError(t, users.UpsertUser(ctx, stale))

		timeout := 45
		updated, err := users.UpdateSettings(ctx, "1002", registry.UserUpdate{TimeoutMinutes: &timeout})
		require.NoError(t, err)
		assert.Equal(t, 11, updated.CheckHour)
		assert.Equal(t, 45, updated.TimeoutMinutes)
		assert.True(t, updated.CheckedOn("2024-03-06"))
		assert.True(t, updated.AwaitingResponse)

		won, err = users.StampLastCheckDate(ctx, "1002", "2024-03-06")
		require.NoError(t, err)
		assert.False(t, won)

		_, err = users.UpdateSettings(ctx, "missing", registry.UserUpdate{TimeoutMinutes: &timeout})
		assert.True(t, common.IsNotFound(err))
	})

	t.Run("contacts", func(t *testing.T) {
		require.NoError(t, users.UpsertUser(ctx, registry.NewUser("1003", "Linus", 7, 30)))
		base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

		first := &registry.Contact{UserID: "1003", ChannelType: common.ChannelChat, Address: "2001", DisplayName: "Sister", CreatedAt: base}
		second := &registry.Contact{UserID: "1003", ChannelType: common.ChannelPhone, Address: "+15551234567", CreatedAt: base.Add(time.Minute)}
		require.NoError(t, users.AddContact(ctx, second))
		require.NoError(t, users.AddContact(ctx, first))

		contacts, err := users.GetContacts(ctx, "1003")
		require.NoError(t, err)
		require.Len(t, contacts, 2)
		assert.Equal(t, "Sister", contacts[0].Label())
		assert.Equal(t, "+15551234567", contacts[1].Label())

		require.NoError(t, users.RemoveContact(ctx, "1003", first.ID))
		err = users.RemoveContact(ctx, "1003", first.ID)
		assert.True(t, common.IsNotFound(err))

		err = users.RemoveContact(ctx, "1001", second.ID)
		assert.True(t, common.IsNotFound(err), "contacts are scoped to their owner")
	})

	t.Run("check instances", func(t *testing.T) {
		require.NoError(t, users.UpsertUser(ctx, registry.NewUser("1004", "Barbara", 9, 30)))
		base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

		older := &checkin.CheckInstance{
			ID:             common.NewCheckID(),
			UserID:         "1004",
			CreatedAt:      base,
			Status:         common.CheckStatusPending,
			TimeoutMinutes: 30,
			Source:         checkin.SourceScheduled,
		}
		newer := &checkin.CheckInstance{
			ID:             common.NewCheckID(),
			UserID:         "1004",
			CreatedAt:      base.Add(time.Hour),
			Status:         common.CheckStatusPending,
			TimeoutMinutes: 30,
			Source:         checkin.SourceOnDemand,
		}
		require.NoError(t, checks.CreateCheckInstance(ctx, older))
		require.NoError(t, checks.CreateCheckInstance(ctx, newer))

		latest, err := checks.GetLatestCheckInstance(ctx, "1004")
		require.NoError(t, err)
		assert.Equal(t, newer.ID, latest.ID)

		_, err = checks.GetLatestCheckInstance(ctx, "nobody")
		assert.True(t, common.IsNotFound(err))

		pending, err := checks.ListPendingByUser(ctx, "1004")
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		resolvedAt := base.Add(90 * time.Minute)
		moved, err := checks.TransitionStatus(ctx, newer.ID, common.CheckStatusPending, common.CheckStatusResponded, checkin.ResolutionOkay, resolvedAt)
		require.NoError(t, err)
		assert.True(t, moved)

		moved, err = checks.TransitionStatus(ctx, newer.ID, common.CheckStatusPending, common.CheckStatusTimedOut, checkin.ResolutionTimeout, resolvedAt)
		require.NoError(t, err)
		assert.False(t, moved, "a resolved instance cannot time out")

		_, err = checks.TransitionStatus(ctx, common.NewCheckID(), common.CheckStatusPending, common.CheckStatusTimedOut, checkin.ResolutionTimeout, resolvedAt)
		assert.True(t, common.IsNotFound(err))

		stored, err := checks.GetCheckInstance(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, common.CheckStatusResponded, stored.Status)
		assert.Equal(t, checkin.ResolutionOkay, stored.Resolution)
		require.NotNil(t, stored.ResolvedAt)
		assert.True(t, stored.ResolvedAt.Equal(resolvedAt))

		require.NoError(t, checks.MarkPromptDelivered(ctx, older.ID))
		all, err := checks.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, older.ID, all[0].ID)
		assert.True(t, all[0].PromptDelivered)

		history, err := checks.ListByUser(ctx, "1004", 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, newer.ID, history[0].ID)
	})

	t.Run("equal creation times", func(t *testing.T) {
		require.NoError(t, users.UpsertUser(ctx, registry.NewUser("1005", "Edsger", 9, 30)))
		at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

		var created []*checkin.CheckInstance
		for i := 0; i < 5; i++ {
			instance := &checkin.CheckInstance{
				ID:             common.NewCheckID(),
				UserID:         "1005",
				CreatedAt:      at,
				Status:         common.CheckStatusPending,
				TimeoutMinutes: 30,
				Source:         checkin.SourceOnDemand,
			}
			require.NoError(t, checks.CreateCheckInstance(ctx, instance))
			created = append(created, instance)
		}
		last := created[len(created)-1]

		latest, err := checks.GetLatestCheckInstance(ctx, "1005")
		require.NoError(t, err)
		assert.Equal(t, last.ID, latest.ID)

		history, err := checks.ListByUser(ctx, "1005", 0)
		require.NoError(t, err)
		require.Len(t, history, len(created))
		for i, instance := range history {
			assert.Equal(t, created[len(created)-1-i].ID, instance.ID)
		}

		pending, err := checks.ListPendingByUser(ctx, "1005")
		require.NoError(t, err)
		require.Len(t, pending, len(created))
		assert.Equal(t, created[0].ID, pending[0].ID)
	})
}
