package registry

import (
	"context"

	"go.uber.org/zap"

	"wellcheck-api/internal/common"
)

// Service manages user enrollment, check-in settings and emergency contacts
type Service interface {
	// EnsureUser returns the user, registering it with defaults on first contact.
	// created reports whether a new user was registered.
	EnsureUser(ctx context.Context, userID common.UserID, displayName string) (user *User, created bool, err error)
	GetUser(ctx context.Context, userID common.UserID) (*User, error)
	UpdateUser(ctx context.Context, userID common.UserID, update UserUpdate) (*User, error)
	SetActive(ctx context.Context, userID common.UserID, active bool) (*User, error)
	SetCheckHour(ctx context.Context, userID common.UserID, hour int) (*User, error)
	SetTimeoutMinutes(ctx context.Context, userID common.UserID, minutes int) (*User, error)

	AddContact(ctx context.Context, userID common.UserID, rawAddress, displayName string) (*Contact, error)
	ListContacts(ctx context.Context, userID common.UserID) ([]*Contact, error)
	RemoveContact(ctx context.Context, userID common.UserID, contactID common.ContactID) error
}

// Defaults are applied to newly registered users
type Defaults struct {
	CheckHour      int
	TimeoutMinutes int
}

type service struct {
	repository Repository
	defaults   Defaults
	logger     *zap.Logger
}

// NewService creates a registry service on top of repository
func NewService(repository Repository, defaults Defaults, logger *zap.Logger) Service {
	return &service{
		repository: repository,
		defaults:   defaults,
		logger:     logger,
	}
}

func (s *service) EnsureUser(ctx context.Context, userID common.UserID, displayName string) (*User, bool, error) {
	user, err := s.repository.GetUser(ctx, userID)
	if err == nil {
		if displayName != "" && user.DisplayName != displayName {
			return s.renameUser(ctx, userID, displayName)
		}
		return user, false, nil
	}
	if !common.IsNotFound(err) {
		return nil, false, err
	}

	user = NewUser(userID, displayName, s.defaults.CheckHour, s.defaults.TimeoutMinutes)
	if err := s.repository.UpsertUser(ctx, user); err != nil {
		return nil, false, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", string(userID)),
		zap.Int("check_hour", user.CheckHour),
		zap.Int("timeout_minutes", user.TimeoutMinutes))
	return user, true, nil
}

func (s *service) GetUser(ctx context.Context, userID common.UserID) (*User, error) {
	return s.repository.GetUser(ctx, userID)
}

func (s *service) UpdateUser(ctx context.Context, userID common.UserID, update UserUpdate) (*User, error) {
	if update.CheckHour != nil {
		if err := ValidateCheckHour(*update.CheckHour); err != nil {
			return nil, err
		}
	}
	if update.TimeoutMinutes != nil {
		if err := ValidateTimeoutMinutes(*update.TimeoutMinutes); err != nil {
			return nil, err
		}
	}

	user, err := s.repository.UpdateSettings(ctx, userID, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User settings updated",
		zap.String("user_id", string(userID)),
		zap.Int("check_hour", user.CheckHour),
		zap.Int("timeout_minutes", user.TimeoutMinutes),
		zap.Bool("is_active", user.IsActive))
	return user, nil
}

func (s *service) renameUser(ctx context.Context, userID common.UserID, displayName string) (*User, bool, error) {
	user, err := s.repository.UpdateSettings(ctx, userID, UserUpdate{DisplayName: &displayName})
	if err != nil {
		return nil, false, err
	}
	return user, false, nil
}

func (s *service) SetActive(ctx context.Context, userID common.UserID, active bool) (*User, error) {
	return s.UpdateUser(ctx, userID, UserUpdate{IsActive: &active})
}

func (s *service) SetCheckHour(ctx context.Context, userID common.UserID, hour int) (*User, error) {
	return s.UpdateUser(ctx, userID, UserUpdate{CheckHour: &hour})
}

func (s *service) SetTimeoutMinutes(ctx context.Context, userID common.UserID, minutes int) (*User, error) {
	return s.UpdateUser(ctx, userID, UserUpdate{TimeoutMinutes: &minutes})
}

// AddContact stores a contact for an existing user. Duplicates are kept.
func (s *service) AddContact(ctx context.Context, userID common.UserID, rawAddress, displayName string) (*Contact, error) {
	if _, err := s.repository.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	channel, address, err := ParseContactAddress(rawAddress)
	if err != nil {
		return nil, err
	}

	contact := &Contact{
		UserID:      userID,
		ChannelType: channel,
		Address:     address,
		DisplayName: displayName,
	}
	if err := s.repository.AddContact(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

func (s *service) ListContacts(ctx context.Context, userID common.UserID) ([]*Contact, error) {
	return s.repository.GetContacts(ctx, userID)
}

func (s *service) RemoveContact(ctx context.Context, userID common.UserID, contactID common.ContactID) error {
	if err := s.repository.RemoveContact(ctx, userID, contactID); err != nil {
		return err
	}

	s.logger.Info("Contact removed",
		zap.String("user_id", string(userID)),
		zap.String("contact_id", string(contactID)))
	return nil
}
