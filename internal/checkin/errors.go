package checkin

import (
	"errors"
	"fmt"

	"wellcheck-api/internal/common"
)

// Error codes for the checkin module
const (
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"
	ErrCodeDeliveryFailed     = "DELIVERY_FAILED"
	ErrCodeInvalidResponse    = "INVALID_RESPONSE"
)

// InvariantSinglePending names the one-pending-instance-per-user rule
const InvariantSinglePending = "single_pending_per_user"

// CheckError is implemented by checkin-specific errors
type CheckError interface {
	error
	Code() string
	Message() string
	Temporary() bool
}

// InvariantViolationError reports more than one pending instance for a user
type InvariantViolationError struct {
	UserID   common.UserID
	Pending  []common.CheckID
	Recovery string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant %s violated for user '%s': %d pending instances (%s)",
		InvariantSinglePending, e.UserID, len(e.Pending), e.Recovery)
}

func (e InvariantViolationError) Code() string {
	return ErrCodeInvariantViolation
}

func (e InvariantViolationError) Message() string {
	return e.Recovery
}

func (e InvariantViolationError) Temporary() bool {
	return false
}

// DeliveryError wraps a failed prompt delivery. It is logged, never returned to callers of CreateCheck.
type DeliveryError struct {
	CheckID common.CheckID
	UserID  common.UserID
	Reason  string
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("prompt delivery failed for check '%s' (user '%s'): %s", e.CheckID, e.UserID, e.Reason)
}

func (e DeliveryError) Code() string {
	return ErrCodeDeliveryFailed
}

func (e DeliveryError) Message() string {
	return e.Reason
}

func (e DeliveryError) Temporary() bool {
	return true
}

// InvalidResponseError rejects a response kind outside okay/need_help
type InvalidResponseError struct {
	Kind common.ResponseKind
}

func (e InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response kind '%s'", e.Kind)
}

func (e InvalidResponseError) Code() string {
	return ErrCodeInvalidResponse
}

func (e InvalidResponseError) Message() string {
	return "response must be okay or need_help"
}

func (e InvalidResponseError) Temporary() bool {
	return false
}

// IsTemporaryError checks if the error is temporary and can be retried
func IsTemporaryError(err error) bool {
	var checkErr CheckError
	if errors.As(err, &checkErr) {
		return checkErr.Temporary()
	}
	return common.IsRepositoryError(err)
}
