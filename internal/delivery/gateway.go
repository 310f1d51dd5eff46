// Package delivery defines the outbound channel contract used by the check-in
// engine. Implementations live with their transport (see internal/chatbot).
package delivery

import (
	"context"
	"errors"

	"wellcheck-api/internal/common"
)

//go:generate mockgen -source=gateway.go -destination=../mocks/delivery_gateway_mock.go -package=mocks

// Gateway delivers check-in prompts to users and alerts to emergency contacts.
// Calls never retry; the outcome of each attempt is reported in the Result.
type Gateway interface {
	// SendPrompt asks the user whether they are okay, offering both responses.
	SendPrompt(ctx context.Context, userID common.UserID, prompt Prompt) Result
	// SendAlert sends a plain-text message to a contact address.
	SendAlert(ctx context.Context, address string, text string) Result
	// SupportsChannel reports whether addresses of the given channel can be dispatched.
	SupportsChannel(channel common.ChannelType) bool
}

// Prompt is the content of a check-in request
type Prompt struct {
	CheckID        common.CheckID
	Text           string
	OkayLabel      string
	NeedHelpLabel  string
	TimeoutMinutes int
}

// DefaultPromptText is shown with every check-in request
const DefaultPromptText = "Daily check-in: how are you doing?"

// NewPrompt builds the standard two-button check-in prompt for a check instance
func NewPrompt(checkID common.CheckID, timeoutMinutes int) Prompt {
	return Prompt{
		CheckID:        checkID,
		Text:           DefaultPromptText,
		OkayLabel:      "I'm okay",
		NeedHelpLabel:  "I need help",
		TimeoutMinutes: timeoutMinutes,
	}
}

// Result is the typed outcome of one delivery attempt
type Result struct {
	Err error
}

// Success returns a successful delivery result
func Success() Result {
	return Result{}
}

// Failure returns a failed delivery result carrying reason
func Failure(reason string) Result {
	return Result{Err: errors.New(reason)}
}

// FailureFrom converts a transport error into a failed result. A nil error is a success.
func FailureFrom(err error) Result {
	return Result{Err: err}
}

// OK reports whether the message was accepted by the channel
func (r Result) OK() bool {
	return r.Err == nil
}

// Reason describes why delivery failed, or is empty on success
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
