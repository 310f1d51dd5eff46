package chatbot

import (
	"errors"
	"fmt"
	"net/http"
)

// TelegramAPIError is a failed Bot API call
type TelegramAPIError struct {
	Operation   string
	StatusCode  int
	Description string
	RetryAfter  int
	Err         error
}

func (e TelegramAPIError) Error() string {
	return fmt.Sprintf("telegram API error during %s: %s (status: %d)", e.Operation, e.Description, e.StatusCode)
}

// Temporary reports rate limiting and server side failures
func (e TelegramAPIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError ||
		e.RetryAfter > 0
}

func (e TelegramAPIError) Unwrap() error {
	return e.Err
}

// WebhookParsingError is an update that could not be decoded or lacks required parts
type WebhookParsingError struct {
	UpdateType string
	Details    string
	Cause      error
}

func (e WebhookParsingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("webhook parsing error for %s: %s (caused by: %v)", e.UpdateType, e.Details, e.Cause)
	}
	return fmt.Sprintf("webhook parsing error for %s: %s", e.UpdateType, e.Details)
}

func (e WebhookParsingError) Unwrap() error {
	return e.Cause
}

// CommandProcessingError is a command or button press the bot could not carry out
type CommandProcessingError struct {
	Command string
	Reason  string
	UserID  string
	Cause   error
}

func (e CommandProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("command processing error for %s: %s (caused by: %v)", e.Command, e.Reason, e.Cause)
	}
	return fmt.Sprintf("command processing error for %s: %s", e.Command, e.Reason)
}

func (e CommandProcessingError) Unwrap() error {
	return e.Cause
}

type ConfigurationError struct {
	Field  string
	Reason string
	Value  string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for field %s: %s (value: %s)", e.Field, e.Reason, e.Value)
}

// WrapTelegramError wraps err as a TelegramAPIError, keeping the Bot API status when present
func WrapTelegramError(err error, operation string) error {
	if err == nil {
		return nil
	}

	status, description, retryAfter := telegramStatus(err)
	return TelegramAPIError{
		Operation:   operation,
		StatusCode:  status,
		Description: description,
		RetryAfter:  retryAfter,
		Err:         err,
	}
}

func WrapParsingError(err error, updateType string) error {
	if err == nil {
		return nil
	}

	return WebhookParsingError{
		UpdateType: updateType,
		Details:    "failed to parse webhook data",
		Cause:      err,
	}
}

func NewCommandError(command, reason, userID string, cause error) error {
	return CommandProcessingError{
		Command: command,
		Reason:  reason,
		UserID:  userID,
		Cause:   cause,
	}
}

func NewConfigurationError(field, reason, value string) error {
	return ConfigurationError{
		Field:  field,
		Reason: reason,
		Value:  value,
	}
}

// IsRetryableError reports whether err is a temporary Bot API failure
func IsRetryableError(err error) bool {
	var apiErr TelegramAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return false
}

func IsConfigurationError(err error) bool {
	var cfgErr ConfigurationError
	return errors.As(err, &cfgErr)
}

func IsWebhookParsingError(err error) bool {
	var parseErr WebhookParsingError
	return errors.As(err, &parseErr)
}
