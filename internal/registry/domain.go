package registry

import (
	"time"

	"wellcheck-api/internal/common"
)

// DateLayout is the calendar-date format stored in User.LastCheckDate
const DateLayout = "2006-01-02"

// User is a person enrolled for daily check-ins
type User struct {
	ID               common.UserID `json:"id" gorm:"primaryKey;type:varchar(64)" validate:"required"`
	DisplayName      string        `json:"display_name" gorm:"type:varchar(255)"`
	CheckHour        int           `json:"check_hour" gorm:"type:int;not null" validate:"min=0,max=23"`
	TimeoutMinutes   int           `json:"timeout_minutes" gorm:"type:int;not null" validate:"min=1"`
	IsActive         bool          `json:"is_active" gorm:"type:boolean;not null"`
	LastCheckDate    *string       `json:"last_check_date" gorm:"type:varchar(10)"`
	AwaitingResponse bool          `json:"awaiting_response" gorm:"type:boolean;not null"`
	CreatedAt        time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser returns an active user with the given defaults
func NewUser(id common.UserID, displayName string, checkHour, timeoutMinutes int) *User {
	return &User{
		ID:             id,
		DisplayName:    displayName,
		CheckHour:      checkHour,
		TimeoutMinutes: timeoutMinutes,
		IsActive:       true,
	}
}

// Name returns the display name, falling back to the id
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return string(u.ID)
}

// CheckedOn reports whether a scheduled check was already issued on date
func (u *User) CheckedOn(date string) bool {
	return u.LastCheckDate != nil && *u.LastCheckDate == date
}

// Contact is an emergency contact notified on escalation
type Contact struct {
	ID          common.ContactID   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"required"`
	UserID      common.UserID      `json:"user_id" gorm:"type:varchar(64);not null;index" validate:"required"`
	ChannelType common.ChannelType `json:"channel_type" gorm:"type:varchar(20);not null" validate:"required"`
	Address     string             `json:"address" gorm:"type:varchar(255);not null" validate:"required"`
	DisplayName string             `json:"display_name" gorm:"type:varchar(255)"`
	CreatedAt   time.Time          `json:"created_at" gorm:"not null"`
}

// TableName returns the table name for the Contact model
func (Contact) TableName() string {
	return "contacts"
}

// Label returns a human readable name for the contact
func (c *Contact) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Address
}

// UserUpdate carries optional changes to a user's check-in settings
type UserUpdate struct {
	DisplayName    *string `json:"display_name,omitempty"`
	CheckHour      *int    `json:"check_hour,omitempty"`
	TimeoutMinutes *int    `json:"timeout_minutes,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// columns maps the set fields to their database column names
func (u UserUpdate) columns() map[string]interface{} {
	columns := make(map[string]interface{})
	if u.DisplayName != nil {
		columns["display_name"] = *u.DisplayName
	}
	if u.CheckHour != nil {
		columns["check_hour"] = *u.CheckHour
	}
	if u.TimeoutMinutes != nil {
		columns["timeout_minutes"] = *u.TimeoutMinutes
	}
	if u.IsActive != nil {
		columns["is_active"] = *u.IsActive
	}
	return columns
}

func (u UserUpdate) apply(user *User) {
	if u.DisplayName != nil {
		user.DisplayName = *u.DisplayName
	}
	if u.CheckHour != nil {
		user.CheckHour = *u.CheckHour
	}
	if u.TimeoutMinutes != nil {
		// Applies to checks created from now on; pending checks keep their captured timeout
		user.TimeoutMinutes = *u.TimeoutMinutes
	}
	if u.IsActive != nil {
		user.IsActive = *u.IsActive
	}
}
