package events

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

// MockEventBus provides an in-memory implementation of EventBus for testing
type MockEventBus struct {
	subscriptions   map[string][]interface{}
	publishedEvents map[string][]interface{}
	mutex           sync.RWMutex
	errors          []error
	synchronousMode bool
	handlersWG      sync.WaitGroup
}

// NewMockEventBus creates a new MockEventBus instance
func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscriptions:   make(map[string][]interface{}),
		publishedEvents: make(map[string][]interface{}),
	}
}

// Subscribe implements the EventBus interface
func (m *MockEventBus) Subscribe(topic string, handler interface{}) error {
	if reflect.TypeOf(handler) == nil || reflect.TypeOf(handler).Kind() != reflect.Func {
		return fmt.Errorf("%s is not of type reflect.Func", reflect.TypeOf(handler))
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.subscriptions[topic] = append(m.subscriptions[topic], handler)
	return nil
}

// SubscribeAsync implements the EventBus interface; delivery mode follows SetSynchronousMode
func (m *MockEventBus) SubscribeAsync(topic string, handler interface{}) error {
	return m.Subscribe(topic, handler)
}

// Unsubscribe implements the EventBus interface
func (m *MockEventBus) Unsubscribe(topic string, handler interface{}) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	target := reflect.ValueOf(handler).Pointer()
	handlers := m.subscriptions[topic]
	kept := handlers[:0]
	for _, h := range handlers {
		if reflect.ValueOf(h).Pointer() != target {
			kept = append(kept, h)
		}
	}
	m.subscriptions[topic] = kept

	return nil
}

// Publish implements the EventBus interface
func (m *MockEventBus) Publish(topic string, event interface{}) error {
	m.mutex.Lock()
	m.publishedEvents[topic] = append(m.publishedEvents[topic], event)

	handlersToInvoke := make([]interface{}, len(m.subscriptions[topic]))
	copy(handlersToInvoke, m.subscriptions[topic])
	synchronous := m.synchronousMode
	m.mutex.Unlock()

	// Trigger handlers outside of the mutex to avoid deadlocks
	for _, handler := range handlersToInvoke {
		if synchronous {
			m.invokeHandler(handler, event)
			continue
		}
		m.handlersWG.Add(1)
		go func(h interface{}) {
			defer m.handlersWG.Done()
			m.invokeHandler(h, event)
		}(handler)
	}

	return nil
}

// Close implements the EventBus interface
func (m *MockEventBus) Close() error {
	m.handlersWG.Wait()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.subscriptions = make(map[string][]interface{})
	m.publishedEvents = make(map[string][]interface{})

	return nil
}

// SetSynchronousMode enables or disables synchronous event handling
func (m *MockEventBus) SetSynchronousMode(enabled bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.synchronousMode = enabled
}

// WaitHandlers blocks until every asynchronously dispatched handler has returned
func (m *MockEventBus) WaitHandlers() {
	m.handlersWG.Wait()
}

// GetPublishedEvents returns published events for a topic
func (m *MockEventBus) GetPublishedEvents(topic string) []interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	events := m.publishedEvents[topic]
	result := make([]interface{}, len(events))
	copy(result, events)
	return result
}

// GetSubscriberCount returns the number of subscribers for a topic
func (m *MockEventBus) GetSubscriberCount(topic string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.subscriptions[topic])
}

// GetErrors returns handler panics and type mismatches recorded so far
func (m *MockEventBus) GetErrors() []error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]error, len(m.errors))
	copy(result, m.errors)
	return result
}

// ClearEvents resets all published events
func (m *MockEventBus) ClearEvents() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.publishedEvents = make(map[string][]interface{})
}

// WaitForEvent waits for an event to be published on a topic
func (m *MockEventBus) WaitForEvent(topic string, timeout time.Duration) (interface{}, error) {
	startTime := time.Now()

	for {
		events := m.GetPublishedEvents(topic)
		if len(events) > 0 {
			return events[len(events)-1], nil
		}

		if time.Since(startTime) > timeout {
			return nil, &TimeoutError{Topic: topic, Timeout: timeout}
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// SimulateEventDelivery manually triggers event handlers for testing
func (m *MockEventBus) SimulateEventDelivery(topic string, event interface{}) {
	m.mutex.RLock()
	handlers := make([]interface{}, len(m.subscriptions[topic]))
	copy(handlers, m.subscriptions[topic])
	m.mutex.RUnlock()

	for _, handler := range handlers {
		m.invokeHandler(handler, event)
	}
}

// invokeHandler calls handler with event when the handler's single parameter accepts it
func (m *MockEventBus) invokeHandler(handler interface{}, event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			m.recordError(fmt.Errorf("handler panic: %v", r))
		}
	}()

	fn := reflect.ValueOf(handler)
	fnType := fn.Type()
	if fnType.NumIn() != 1 {
		m.recordError(fmt.Errorf("handler must take exactly one argument, got %d", fnType.NumIn()))
		return
	}

	arg := reflect.ValueOf(event)
	if !arg.IsValid() {
		arg = reflect.Zero(fnType.In(0))
	}
	if !arg.Type().AssignableTo(fnType.In(0)) {
		m.recordError(fmt.Errorf("type mismatch: handler type does not match event type %T", event))
		return
	}

	fn.Call([]reflect.Value{arg})
}

func (m *MockEventBus) recordError(err error) {
	m.mutex.Lock()
	m.errors = append(m.errors, err)
	m.mutex.Unlock()
}

// Assertion helpers for testing

// AssertEventCount verifies the number of events published on a topic
func AssertEventCount(t *testing.T, mockBus *MockEventBus, topic string, expectedCount int) {
	t.Helper()
	events := mockBus.GetPublishedEvents(topic)
	if len(events) != expectedCount {
		t.Errorf("Expected %d events on topic %s, but got %d", expectedCount, topic, len(events))
	}
}

// AssertSubscriberCount verifies the number of subscribers for a topic
func AssertSubscriberCount(t *testing.T, mockBus *MockEventBus, topic string, expectedCount int) {
	t.Helper()
	count := mockBus.GetSubscriberCount(topic)
	if count != expectedCount {
		t.Errorf("Expected %d subscribers for topic %s, but got %d", expectedCount, topic, count)
	}
}

// TimeoutError represents a timeout waiting for an event
type TimeoutError struct {
	Topic   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "timeout waiting for event on topic " + e.Topic
}
