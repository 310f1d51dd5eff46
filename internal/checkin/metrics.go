package checkin

import (
	"sync"
)

// Metrics counts lifecycle transitions observed by the Manager
type Metrics struct {
	mu                    sync.RWMutex
	ChecksCreated         int64
	ChecksSuperseded      int64
	ResponsesRecorded     int64
	LateResponses         int64
	ChecksTimedOut        int64
	PromptFailures        int64
	EscalationsDispatched int64
	InvariantViolations   int64
	TimeoutRetries        int64
}

// MetricsSnapshot is a lock-free copy of Metrics for reporting
type MetricsSnapshot struct {
	ChecksCreated         int64 `json:"checks_created"`
	ChecksSuperseded      int64 `json:"checks_superseded"`
	ResponsesRecorded     int64 `json:"responses_recorded"`
	LateResponses         int64 `json:"late_responses"`
	ChecksTimedOut        int64 `json:"checks_timed_out"`
	PromptFailures        int64 `json:"prompt_failures"`
	EscalationsDispatched int64 `json:"escalations_dispatched"`
	InvariantViolations   int64 `json:"invariant_violations"`
	TimeoutRetries        int64 `json:"timeout_retries"`
	ActiveWatchers        int   `json:"active_watchers"`
}

// NewMetrics creates a zeroed metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) add(counter *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func (m *Metrics) recordCreated() { m.add(&m.ChecksCreated) }
func (m *Metrics) recordSuperseded() { m.add(&m.ChecksSuperseded) }
func (m *Metrics) recordResponse() { m.add(&m.ResponsesRecorded) }
func (m *Metrics) recordLateResponse() { m.add(&m.LateResponses) }
func (m *Metrics) recordTimedOut() { m.add(&m.ChecksTimedOut) }
func (m *Metrics) recordPromptFailure() { m.add(&m.PromptFailures) }
func (m *Metrics) recordEscalation() { m.add(&m.EscalationsDispatched) }
func (m *Metrics) recordInvariantViolation() { m.add(&m.InvariantViolations) }
func (m *Metrics) recordTimeoutRetry() { m.add(&m.TimeoutRetries) }

// Snapshot returns the current counter values
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		ChecksCreated:         m.ChecksCreated,
		ChecksSuperseded:      m.ChecksSuperseded,
		ResponsesRecorded:     m.ResponsesRecorded,
		LateResponses:         m.LateResponses,
		ChecksTimedOut:        m.ChecksTimedOut,
		PromptFailures:        m.PromptFailures,
		EscalationsDispatched: m.EscalationsDispatched,
		InvariantViolations:   m.InvariantViolations,
		TimeoutRetries:        m.TimeoutRetries,
	}
}
