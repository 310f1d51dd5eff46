package scheduler

import (
	"errors"
	"fmt"
)

// SchedulerError defines the interface for scheduler-specific errors
type SchedulerError interface {
	error
	Code() string
	Message() string
	Temporary() bool
}

// schedulerError implements the SchedulerError interface
type schedulerError struct {
	code      string
	message   string
	temporary bool
}

func (e *schedulerError) Error() string {
	return fmt.Sprintf("scheduler error [%s]: %s", e.code, e.message)
}

func (e *schedulerError) Code() string {
	return e.code
}

func (e *schedulerError) Message() string {
	return e.message
}

func (e *schedulerError) Temporary() bool {
	return e.temporary
}

// Error constants
const (
	ErrSchedulerNotRunning     = "scheduler_not_running"
	ErrSchedulerAlreadyRunning = "scheduler_already_running"
	ErrInvalidConfiguration    = "invalid_configuration"
	ErrEvaluationFailed        = "evaluation_failed"
	ErrLoopPanic               = "loop_panic"
	ErrShutdownTimeout         = "shutdown_timeout"
)

// EvaluationError reports a failure while evaluating one user during a tick
type EvaluationError struct {
	schedulerError
	UserID    string
	Operation string
	Cause     error
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// LoopError reports a recovered panic in the tick loop
type LoopError struct {
	schedulerError
	Restarts int
}

type ShutdownError struct {
	schedulerError
	TimeoutSeconds int
}

type ConfigurationError struct {
	schedulerError
	Field string
	Value interface{}
}

// Constructor functions
func NewSchedulerError(code, message string) error {
	return &schedulerError{
		code:      code,
		message:   message,
		temporary: false,
	}
}

func NewEvaluationError(userID, operation string, err error) error {
	return &EvaluationError{
		schedulerError: schedulerError{
			code:      ErrEvaluationFailed,
			message:   fmt.Sprintf("failed to evaluate user %s during %s: %v", userID, operation, err),
			temporary: true,
		},
		UserID:    userID,
		Operation: operation,
		Cause:     err,
	}
}

func NewLoopError(restarts int, recovered interface{}) error {
	return &LoopError{
		schedulerError: schedulerError{
			code:      ErrLoopPanic,
			message:   fmt.Sprintf("tick loop panicked (restart %d): %v", restarts, recovered),
			temporary: true,
		},
		Restarts: restarts,
	}
}

func NewShutdownError(message string, timeoutSeconds int) error {
	return &ShutdownError{
		schedulerError: schedulerError{
			code:      ErrShutdownTimeout,
			message:   message,
			temporary: false,
		},
		TimeoutSeconds: timeoutSeconds,
	}
}

func NewConfigurationError(field string, value interface{}, message string) error {
	return &ConfigurationError{
		schedulerError: schedulerError{
			code:      ErrInvalidConfiguration,
			message:   fmt.Sprintf("invalid configuration for field %s (value: %v): %s", field, value, message),
			temporary: false,
		},
		Field: field,
		Value: value,
	}
}

// IsTemporaryError checks if the error is temporary and can be retried
func IsTemporaryError(err error) bool {
	var schedErr SchedulerError
	if errors.As(err, &schedErr) {
		return schedErr.Temporary()
	}
	return false
}

func IsConfigurationError(err error) bool {
	var schedErr SchedulerError
	if errors.As(err, &schedErr) {
		return schedErr.Code() == ErrInvalidConfiguration
	}
	return false
}
