package mocks

import (
	"github.com/stretchr/testify/mock"

	"wellcheck-api/internal/events"
)

// MockEventBus is a testify mock of events.EventBus for expectation-style tests.
// For recording delivery use events.MockEventBus instead.
type MockEventBus struct {
	mock.Mock
}

var _ events.EventBus = (*MockEventBus)(nil)

func (m *MockEventBus) Publish(topic string, data interface{}) error {
	args := m.Called(topic, data)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(topic string, handler interface{}) error {
	args := m.Called(topic, handler)
	return args.Error(0)
}

func (m *MockEventBus) SubscribeAsync(topic string, handler interface{}) error {
	args := m.Called(topic, handler)
	return args.Error(0)
}

func (m *MockEventBus) Unsubscribe(topic string, handler interface{}) error {
	args := m.Called(topic, handler)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}
