package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ID represents a unique identifier
type ID string

// NewID generates a new unique identifier
func NewID() ID {
	return ID(uuid.New().String())
}

// IsValid checks if the ID is a valid UUID
func (id ID) IsValid() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

// String returns the string representation of the ID
func (id ID) String() string {
	return string(id)
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

// Typed aliases for different ID types.
// UserID is opaque; for Telegram users it holds the private chat id.
type (
	UserID    ID
	CheckID   ID
	ContactID ID
)

// NewCheckID generates a new check instance identifier
func NewCheckID() CheckID {
	return CheckID(NewID())
}

// NewContactID generates a new contact identifier
func NewContactID() ContactID {
	return ContactID(NewID())
}

// CheckStatus represents the lifecycle state of a check instance
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "pending"
	CheckStatusResponded CheckStatus = "responded"
	CheckStatusTimedOut  CheckStatus = "timed_out"
)

// String returns the string representation of CheckStatus
func (cs CheckStatus) String() string {
	return string(cs)
}

// IsValid checks if the CheckStatus is valid
func (cs CheckStatus) IsValid() bool {
	switch cs {
	case CheckStatusPending, CheckStatusResponded, CheckStatusTimedOut:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed
func (cs CheckStatus) IsTerminal() bool {
	return cs == CheckStatusResponded || cs == CheckStatusTimedOut
}

// ResponseKind is the button a user pressed on a check-in prompt
type ResponseKind string

const (
	ResponseOkay     ResponseKind = "okay"
	ResponseNeedHelp ResponseKind = "need_help"
)

// IsValid checks if the ResponseKind is valid
func (rk ResponseKind) IsValid() bool {
	switch rk {
	case ResponseOkay, ResponseNeedHelp:
		return true
	default:
		return false
	}
}

// Urgency represents how an escalation was triggered
type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencyUrgent  Urgency = "urgent"
)

// String returns the string representation of Urgency
func (u Urgency) String() string {
	return string(u)
}

// IsValid checks if the Urgency is valid
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgent:
		return true
	default:
		return false
	}
}

// ChannelType is the delivery channel of an emergency contact
type ChannelType string

const (
	ChannelChat  ChannelType = "chat"
	ChannelPhone ChannelType = "phone"
)

// String returns the string representation of ChannelType
func (ct ChannelType) String() string {
	return string(ct)
}

// IsValid checks if the ChannelType is valid
func (ct ChannelType) IsValid() bool {
	switch ct {
	case ChannelChat, ChannelPhone:
		return true
	default:
		return false
	}
}

// Common error types
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
}

type InternalError struct {
	Message string
	Cause   error
}

func (e InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e InternalError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is, or wraps, a ValidationError
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Error codes shared by repository implementations
const (
	ErrCodeRepository = "REPOSITORY_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeValidation = "VALIDATION_FAILED"
)

// RepositoryError represents storage operation failures
type RepositoryError struct {
	Operation string
	Details   string
	Cause     error
}

func (e RepositoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("repository error during %s: %s (caused by: %v)", e.Operation, e.Details, e.Cause)
	}
	return fmt.Sprintf("repository error during %s: %s", e.Operation, e.Details)
}

func (e RepositoryError) Code() string {
	return ErrCodeRepository
}

func (e RepositoryError) Message() string {
	return e.Details
}

func (e RepositoryError) Temporary() bool {
	return true
}

func (e RepositoryError) Unwrap() error {
	return e.Cause
}

// WrapRepositoryError wraps an error as a RepositoryError
func WrapRepositoryError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return RepositoryError{
		Operation: operation,
		Details:   "database operation failed",
		Cause:     err,
	}
}

// IsRepositoryError reports whether err is, or wraps, a RepositoryError
func IsRepositoryError(err error) bool {
	var re RepositoryError
	return errors.As(err, &re)
}
