package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcheck-api/internal/common"
)

func newInstance(id common.CheckID, userID common.UserID, createdAt time.Time) *CheckInstance {
	return &CheckInstance{
		ID:             id,
		UserID:         userID,
		CreatedAt:      createdAt,
		Status:         common.CheckStatusPending,
		TimeoutMinutes: 30,
		Source:         SourceScheduled,
	}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("c1", "u1", epoch)))

	got, err := repo.GetCheckInstance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, common.UserID("u1"), got.UserID)
	assert.True(t, got.IsPending())
	assert.Equal(t, epoch.Add(30*time.Minute), got.Deadline())

	_, err = repo.GetCheckInstance(ctx, "missing")
	assert.True(t, common.IsNotFound(err))
}

func TestMemoryRepository_CreateValidates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(*CheckInstance)
	}{
		{"missing id", func(c *CheckInstance) { c.ID = "" }},
		{"missing user", func(c *CheckInstance) { c.UserID = "" }},
		{"zero timeout", func(c *CheckInstance) { c.TimeoutMinutes = 0 }},
		{"bad status", func(c *CheckInstance) { c.Status = "unknown" }},
		{"bad source", func(c *CheckInstance) { c.Source = "cron" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance := newInstance("c1", "u1", epoch)
			tt.modify(instance)
			err := repo.CreateCheckInstance(ctx, instance)
			assert.True(t, common.IsValidation(err), "got %v", err)
		})
	}
}

func TestMemoryRepository_GetLatest(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetLatestCheckInstance(ctx, "u1")
	assert.True(t, common.IsNotFound(err))

	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("c1", "u1", epoch)))
	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("c2", "u1", epoch)))
	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("other", "u2", epoch.Add(time.Hour))))

	latest, err := repo.GetLatestCheckInstance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, common.CheckID("c2"), latest.ID, "ties go to the later insert")
	assert.Equal(t, int64(2), latest.Seq)
}

func TestMemoryRepository_TransitionStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("c1", "u1", epoch)))

	at := epoch.Add(time.Minute)
	ok, err := repo.TransitionStatus(ctx, "c1", common.CheckStatusPending, common.CheckStatusResponded, ResolutionOkay, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, "c1", common.CheckStatusPending, common.CheckStatusTimedOut, ResolutionTimeout, at)
	require.NoError(t, err)
	assert.False(t, ok, "terminal instance cannot transition again")

	got, err := repo.GetCheckInstance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, common.CheckStatusResponded, got.Status)
	assert.Equal(t, ResolutionOkay, got.Resolution)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, at, *got.ResolvedAt)

	_, err = repo.TransitionStatus(ctx, "missing", common.CheckStatusPending, common.CheckStatusTimedOut, ResolutionTimeout, at)
	assert.True(t, common.IsNotFound(err))
}

func TestMemoryRepository_ListQueries(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i, id := range []common.CheckID{"c1", "c2", "c3"} {
		require.NoError(t, repo.CreateCheckInstance(ctx, newInstance(id, "u1", epoch.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("x1", "u2", epoch)))
	require.NoError(t, repo.UpdateCheckInstanceStatus(ctx, "c1", common.CheckStatusTimedOut))

	pending, err := repo.ListPendingByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	history, err := repo.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, common.CheckID("c3"), history[0].ID)
	assert.Equal(t, common.CheckID("c2"), history[1].ID)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("c1", "u1", epoch)))

	got, err := repo.GetCheckInstance(ctx, "c1")
	require.NoError(t, err)
	got.Status = common.CheckStatusTimedOut

	again, err := repo.GetCheckInstance(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, again.IsPending())
}

func TestMemoryRepository_MarkPromptDelivered(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateCheckInstance(ctx, newInstance("c1", "u1", epoch)))

	require.NoError(t, repo.MarkPromptDelivered(ctx, "c1"))
	got, err := repo.GetCheckInstance(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.PromptDelivered)

	assert.True(t, common.IsNotFound(repo.MarkPromptDelivered(ctx, "missing")))
}
