package scheduler

import (
	"sync"
	"time"
)

// SchedulerMetrics tracks performance and health metrics for the scheduler
type SchedulerMetrics struct {
	mu                   sync.RWMutex
	TicksProcessed       int64
	UsersEvaluated       int64
	ChecksCreated        int64
	EvaluationErrors     int64
	ChecksLostAfterStamp int64
	LoopRestarts         int64
	AverageTickDuration  time.Duration
	LastTickTime         time.Time
	totalTickDuration    time.Duration
}

// HealthStatus represents the health status of the scheduler
type HealthStatus struct {
	IsHealthy           bool      `json:"is_healthy"`
	LastTickTime        time.Time `json:"last_tick_time"`
	EvaluationErrors    int64     `json:"evaluation_errors"`
	AverageTickDuration string    `json:"average_tick_duration"`
	ErrorRate           float64   `json:"error_rate"`
}

// MetricsSummary provides a summary of scheduler metrics
type MetricsSummary struct {
	TicksProcessed       int64     `json:"ticks_processed"`
	UsersEvaluated       int64     `json:"users_evaluated"`
	ChecksCreated        int64     `json:"checks_created"`
	EvaluationErrors     int64     `json:"evaluation_errors"`
	ChecksLostAfterStamp int64     `json:"checks_lost_after_stamp"`
	LoopRestarts         int64     `json:"loop_restarts"`
	AverageTickDuration  string    `json:"average_tick_duration"`
	LastTickTime         time.Time `json:"last_tick_time"`
	ErrorRate            float64   `json:"error_rate_percentage"`
}

// NewSchedulerMetrics creates a new metrics instance
func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{}
}

// RecordTick records one completed tick
func (m *SchedulerMetrics) RecordTick(at time.Time, duration time.Duration, result TickResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TicksProcessed++
	m.UsersEvaluated += int64(result.Evaluated)
	m.ChecksCreated += int64(result.Created)
	m.EvaluationErrors += int64(result.Errors)
	m.ChecksLostAfterStamp += int64(result.LostAfterStamp)
	m.LastTickTime = at
	m.totalTickDuration += duration
	m.AverageTickDuration = m.totalTickDuration / time.Duration(m.TicksProcessed)
}

// RecordEvaluationError counts a failure that aborted a whole tick
func (m *SchedulerMetrics) RecordEvaluationError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EvaluationErrors++
}

// RecordLoopRestart counts a recovered loop panic
func (m *SchedulerMetrics) RecordLoopRestart() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoopRestarts++
}

// IsHealthy determines if the scheduler is healthy based on metrics
func (m *SchedulerMetrics) IsHealthy(now time.Time, pollInterval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.isHealthy(now, pollInterval)
}

// isHealthy requires a tick within three poll intervals and an error rate below 50%
func (m *SchedulerMetrics) isHealthy(now time.Time, pollInterval time.Duration) bool {
	recent := !m.LastTickTime.IsZero() && now.Sub(m.LastTickTime) < 3*pollInterval
	return recent && m.calculateErrorRate() < 0.5
}

// GetHealthStatus returns detailed health information
func (m *SchedulerMetrics) GetHealthStatus(now time.Time, pollInterval time.Duration) HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return HealthStatus{
		IsHealthy:           m.isHealthy(now, pollInterval),
		LastTickTime:        m.LastTickTime,
		EvaluationErrors:    m.EvaluationErrors,
		AverageTickDuration: m.AverageTickDuration.String(),
		ErrorRate:           m.calculateErrorRate(),
	}
}

// GetMetricsSummary returns a comprehensive metrics summary
func (m *SchedulerMetrics) GetMetricsSummary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSummary{
		TicksProcessed:       m.TicksProcessed,
		UsersEvaluated:       m.UsersEvaluated,
		ChecksCreated:        m.ChecksCreated,
		EvaluationErrors:     m.EvaluationErrors,
		ChecksLostAfterStamp: m.ChecksLostAfterStamp,
		LoopRestarts:         m.LoopRestarts,
		AverageTickDuration:  m.AverageTickDuration.String(),
		LastTickTime:         m.LastTickTime,
		ErrorRate:            m.calculateErrorRate() * 100,
	}
}

// calculateErrorRate is the share of user evaluations that failed
func (m *SchedulerMetrics) calculateErrorRate() float64 {
	total := m.UsersEvaluated + m.EvaluationErrors
	if total == 0 {
		return 0.0
	}
	return float64(m.EvaluationErrors) / float64(total)
}

// Reset resets all metrics to zero
func (m *SchedulerMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TicksProcessed = 0
	m.UsersEvaluated = 0
	m.ChecksCreated = 0
	m.EvaluationErrors = 0
	m.ChecksLostAfterStamp = 0
	m.LoopRestarts = 0
	m.AverageTickDuration = 0
	m.LastTickTime = time.Time{}
	m.totalTickDuration = 0
}
