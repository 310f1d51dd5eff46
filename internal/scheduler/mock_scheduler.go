package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockScheduler implements the Scheduler interface for handler and wiring tests
type MockScheduler struct {
	started    atomic.Bool
	startError error
	stopError  error
	tickResult TickResult
	health     HealthStatus
	callCounts map[string]int
	metrics    *SchedulerMetrics
	mu         sync.RWMutex
}

// NewMockScheduler creates a new mock scheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		callCounts: make(map[string]int),
		metrics:    NewSchedulerMetrics(),
		health:     HealthStatus{IsHealthy: true},
	}
}

func (m *MockScheduler) Start(ctx context.Context) error {
	m.incrementCallCount("Start")
	m.mu.RLock()
	err := m.startError
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	m.started.Store(true)
	return nil
}

func (m *MockScheduler) Stop() error {
	m.incrementCallCount("Stop")
	m.mu.RLock()
	err := m.stopError
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	m.started.Store(false)
	return nil
}

func (m *MockScheduler) IsRunning() bool {
	m.incrementCallCount("IsRunning")
	return m.started.Load()
}

func (m *MockScheduler) GetMetrics() *SchedulerMetrics {
	m.incrementCallCount("GetMetrics")
	return m.metrics
}

func (m *MockScheduler) GetHealthStatus() HealthStatus {
	m.incrementCallCount("GetHealthStatus")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health
}

// Tick records the tick in the mock metrics and returns the configured result
func (m *MockScheduler) Tick(ctx context.Context, now time.Time) TickResult {
	m.incrementCallCount("Tick")
	m.mu.RLock()
	result := m.tickResult
	m.mu.RUnlock()
	m.metrics.RecordTick(now, 0, result)
	return result
}

func (m *MockScheduler) OnTimeElapsed(ctx context.Context) TickResult {
	m.incrementCallCount("OnTimeElapsed")
	return m.Tick(ctx, time.Now())
}

// Test configuration methods
func (m *MockScheduler) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startError = err
}

func (m *MockScheduler) SetStopError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopError = err
}

func (m *MockScheduler) SetTickResult(result TickResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickResult = result
}

func (m *MockScheduler) SetHealthStatus(status HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health = status
}

func (m *MockScheduler) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCounts[method]
}

func (m *MockScheduler) incrementCallCount(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCounts[method]++
}

// TestingT is a minimal interface for testing frameworks
type TestingT interface {
	Errorf(format string, args ...interface{})
}

// AssertStarted verifies the scheduler is started
func (m *MockScheduler) AssertStarted(t TestingT) {
	if !m.started.Load() {
		t.Errorf("Expected scheduler to be started, but it was not")
	}
}

// AssertStopped verifies the scheduler is stopped
func (m *MockScheduler) AssertStopped(t TestingT) {
	if m.started.Load() {
		t.Errorf("Expected scheduler to be stopped, but it was running")
	}
}
