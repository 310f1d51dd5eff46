package common

import (
	"sort"
	"sync"
	"time"
)

// Clock provides an abstraction over time operations to enable deterministic testing
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// After returns a channel that delivers the current time after the specified duration
	After(duration time.Duration) <-chan time.Time
	// AfterFunc calls f in its own goroutine once duration has elapsed
	AfterFunc(duration time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was already stopped.
	Stop() bool
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// NewRealClock creates a new RealClock instance
func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) After(duration time.Duration) <-chan time.Time {
	return time.After(duration)
}

func (c *RealClock) AfterFunc(duration time.Duration, f func()) Timer {
	return time.AfterFunc(duration, f)
}

// MockClock implements Clock for testing with controllable time.
// Timer callbacks run synchronously inside Advance/SetTime, in deadline order.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	timers      []*mockTimer
}

type mockTimer struct {
	clock    *MockClock
	deadline time.Time
	channel  chan time.Time
	fn       func()
	fired    bool
	stopped  bool
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewMockClock creates a new MockClock with the specified initial time
func NewMockClock(initialTime time.Time) *MockClock {
	return &MockClock{
		currentTime: initialTime,
		timers:      make([]*mockTimer, 0),
	}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *MockClock) After(duration time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.schedule(duration, ch, nil)
	c.fireDue()
	return ch
}

func (c *MockClock) AfterFunc(duration time.Duration, f func()) Timer {
	timer := c.schedule(duration, nil, f)
	c.fireDue()
	return timer
}

func (c *MockClock) schedule(duration time.Duration, ch chan time.Time, f func()) *mockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &mockTimer{
		clock:    c,
		deadline: c.currentTime.Add(duration),
		channel:  ch,
		fn:       f,
	}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the mock clock forward by the specified duration
// and triggers any timers that should fire
func (c *MockClock) Advance(duration time.Duration) {
	c.mu.Lock()
	c.currentTime = c.currentTime.Add(duration)
	c.mu.Unlock()

	c.fireDue()
}

// SetTime sets the mock clock to a specific time
func (c *MockClock) SetTime(t time.Time) {
	c.mu.Lock()
	c.currentTime = t
	c.mu.Unlock()

	c.fireDue()
}

// PendingTimers returns the number of timers that have neither fired nor been stopped
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, timer := range c.timers {
		if !timer.fired && !timer.stopped {
			n++
		}
	}
	return n
}

// fireDue runs every due timer outside the lock so callbacks may use the clock.
func (c *MockClock) fireDue() {
	c.mu.Lock()
	now := c.currentTime
	var due []*mockTimer
	remaining := c.timers[:0]
	for _, timer := range c.timers {
		switch {
		case timer.fired || timer.stopped:
		case !timer.deadline.After(now):
			timer.fired = true
			due = append(due, timer)
		default:
			remaining = append(remaining, timer)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})

	for _, timer := range due {
		if timer.channel != nil {
			select {
			case timer.channel <- now:
			default:
			}
		}
		if timer.fn != nil {
			timer.fn()
		}
	}
}
