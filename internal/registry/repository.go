package registry

import (
	"context"

	"wellcheck-api/internal/common"
)

// Repository is the persistence boundary for users and their emergency contacts.
// GetUser returns common.NotFoundError for an unknown id.
type Repository interface {
	GetUser(ctx context.Context, userID common.UserID) (*User, error)
	// UpsertUser inserts the user, or updates only the settings columns of an
	// existing row. LastCheckDate and AwaitingResponse are never written by it.
	UpsertUser(ctx context.Context, user *User) error
	// UpdateSettings writes only the fields set in update and returns the stored user
	UpdateSettings(ctx context.Context, userID common.UserID, update UserUpdate) (*User, error)
	ListActiveUsers(ctx context.Context) ([]*User, error)

	// StampLastCheckDate records date as the user's last scheduled check date.
	// It reports false without error when the stored date already equals date,
	// so only one caller per user and day observes true.
	StampLastCheckDate(ctx context.Context, userID common.UserID, date string) (bool, error)
	SetAwaitingResponse(ctx context.Context, userID common.UserID, awaiting bool) error

	// GetContacts returns contacts ordered by creation time
	GetContacts(ctx context.Context, userID common.UserID) ([]*Contact, error)
	AddContact(ctx context.Context, contact *Contact) error
	RemoveContact(ctx context.Context, userID common.UserID, contactID common.ContactID) error
}
