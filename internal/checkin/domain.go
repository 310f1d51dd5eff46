package checkin

import (
	"time"

	"wellcheck-api/internal/common"
)

// Source records what triggered a check instance
type Source string

const (
	SourceScheduled Source = "scheduled"
	SourceOnDemand  Source = "on_demand"
)

// IsValid checks if the Source is valid
func (s Source) IsValid() bool {
	return s == SourceScheduled || s == SourceOnDemand
}

// Resolution records how a check instance left the pending state
type Resolution string

const (
	ResolutionNone       Resolution = ""
	ResolutionOkay       Resolution = "okay"
	ResolutionNeedHelp   Resolution = "need_help"
	ResolutionSuperseded Resolution = "superseded"
	ResolutionTimeout    Resolution = "timeout"
)

// ResolutionFor maps a user response onto the resolution it records
func ResolutionFor(kind common.ResponseKind) Resolution {
	if kind == common.ResponseNeedHelp {
		return ResolutionNeedHelp
	}
	return ResolutionOkay
}

// CheckInstance is one issued check-in request awaiting or having received resolution
type CheckInstance struct {
	ID              common.CheckID     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"required"`
	UserID          common.UserID      `json:"user_id" gorm:"type:varchar(64);not null;index" validate:"required"`
	CreatedAt       time.Time          `json:"created_at" gorm:"not null"`
	Status          common.CheckStatus `json:"status" gorm:"type:varchar(20);not null;index" validate:"required"`
	Resolution      Resolution         `json:"resolution,omitempty" gorm:"type:varchar(20)"`
	TimeoutMinutes  int                `json:"timeout_minutes" gorm:"type:int;not null" validate:"min=1"`
	Source          Source             `json:"source" gorm:"type:varchar(20);not null"`
	PromptDelivered bool               `json:"prompt_delivered" gorm:"type:boolean;not null"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
	// Seq is the insertion order; it breaks CreatedAt ties
	Seq int64 `json:"-" gorm:"autoIncrement;not null"`
}

// TableName returns the table name for the CheckInstance model
func (CheckInstance) TableName() string {
	return "check_instances"
}

// IsPending reports whether the instance still awaits a response
func (c *CheckInstance) IsPending() bool {
	return c.Status == common.CheckStatusPending
}

// Timeout is the response window captured at creation
func (c *CheckInstance) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// Deadline is the moment the instance times out if still pending
func (c *CheckInstance) Deadline() time.Time {
	return c.CreatedAt.Add(c.Timeout())
}

// ResponseOutcome describes the effect of one user response
type ResponseOutcome struct {
	Kind common.ResponseKind `json:"kind"`
	// CheckID is the instance resolved by this response, empty when none was pending
	CheckID common.CheckID `json:"check_id,omitempty"`
	// Resolved is false for late or duplicate presses
	Resolved bool `json:"resolved"`
	// Escalated reports that an urgent escalation was dispatched
	Escalated bool `json:"escalated"`
}
