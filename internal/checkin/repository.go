package checkin

import (
	"context"
	"time"

	"wellcheck-api/internal/common"
)

// Repository is the persistence boundary for check instances
type Repository interface {
	CreateCheckInstance(ctx context.Context, instance *CheckInstance) error
	// GetLatestCheckInstance returns the most recently created instance for the user,
	// or common.NotFoundError when the user has none.
	GetLatestCheckInstance(ctx context.Context, userID common.UserID) (*CheckInstance, error)
	GetCheckInstance(ctx context.Context, checkID common.CheckID) (*CheckInstance, error)

	// UpdateCheckInstanceStatus overwrites the status unconditionally
	UpdateCheckInstanceStatus(ctx context.Context, checkID common.CheckID, status common.CheckStatus) error
	// TransitionStatus moves the instance from one status to another only if it is
	// still in from. It reports whether the write happened.
	TransitionStatus(ctx context.Context, checkID common.CheckID, from, to common.CheckStatus, resolution Resolution, at time.Time) (bool, error)
	MarkPromptDelivered(ctx context.Context, checkID common.CheckID) error

	ListPendingByUser(ctx context.Context, userID common.UserID) ([]*CheckInstance, error)
	ListPending(ctx context.Context) ([]*CheckInstance, error)
	// ListByUser returns up to limit instances, newest first
	ListByUser(ctx context.Context, userID common.UserID, limit int) ([]*CheckInstance, error)
}
