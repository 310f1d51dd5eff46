package events

import (
	"time"

	"github.com/google/uuid"
)

// Event represents the base event structure with common fields
type Event struct {
	CorrelationID string    `json:"correlation_id" validate:"required"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
}

// NewEvent creates a new base event with generated correlation ID
func NewEvent() Event {
	return Event{
		CorrelationID: uuid.New().String(),
		Timestamp:     time.Now(),
	}
}

// CheckCreated is published once a new pending check instance is persisted and its watcher armed
type CheckCreated struct {
	Event
	CheckID         string    `json:"check_id" validate:"required"`
	UserID          string    `json:"user_id" validate:"required"`
	Source          string    `json:"source" validate:"required"`
	TimeoutMinutes  int       `json:"timeout_minutes" validate:"required"`
	PromptDelivered bool      `json:"prompt_delivered"`
	DeadlineAt      time.Time `json:"deadline_at" validate:"required"`
}

// CheckSuperseded is published for each pending instance replaced by a newer one
type CheckSuperseded struct {
	Event
	CheckID      string `json:"check_id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	SupersededBy string `json:"superseded_by" validate:"required"`
	WatcherFound bool   `json:"watcher_found"`
}

// CheckResponded is published when a user acknowledges a pending check
type CheckResponded struct {
	Event
	CheckID string `json:"check_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	Kind    string `json:"kind" validate:"required"`
}

// CheckTimedOut is published when the watcher for a still-pending check fires
type CheckTimedOut struct {
	Event
	CheckID        string `json:"check_id" validate:"required"`
	UserID         string `json:"user_id" validate:"required"`
	TimeoutMinutes int    `json:"timeout_minutes" validate:"required"`
}

// EscalationCompleted carries the delivery summary of one escalation fan-out
type EscalationCompleted struct {
	Event
	UserID    string `json:"user_id" validate:"required"`
	Urgency   string `json:"urgency" validate:"required"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// InvariantViolation signals more than one pending check observed for a single user
type InvariantViolation struct {
	Event
	UserID       string   `json:"user_id" validate:"required"`
	Invariant    string   `json:"invariant" validate:"required"`
	PendingCount int      `json:"pending_count"`
	CheckIDs     []string `json:"check_ids"`
}

// Event topics constants
const (
	TopicCheckCreated        = "check.created"
	TopicCheckSuperseded     = "check.superseded"
	TopicCheckResponded      = "check.responded"
	TopicCheckTimedOut       = "check.timed_out"
	TopicEscalationCompleted = "escalation.completed"
	TopicInvariantViolation  = "invariant.violation"
)
