package events

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Publisher publishes domain events on a best-effort basis. Event delivery
// never changes the outcome of the operation that produced the event.
type Publisher struct {
	eventBus EventBus
	logger   *zap.Logger
}

// NewPublisher creates a new Publisher instance
func NewPublisher(eventBus EventBus, logger *zap.Logger) *Publisher {
	return &Publisher{
		eventBus: eventBus,
		logger:   logger,
	}
}

// Publish sends event to topic and logs, rather than returns, any failure.
// A nil Publisher or nil bus is a no-op.
func (p *Publisher) Publish(topic string, event interface{}) {
	if p == nil || p.eventBus == nil {
		return
	}

	if err := p.eventBus.Publish(topic, event); err != nil {
		p.logger.Warn("Failed to publish event",
			zap.String("topic", topic),
			zap.Error(err))
	}
}

// PublishWithRetry publishes an event with exponential backoff, giving up after maxRetries retries.
// A nil Publisher or nil bus is a no-op.
func (p *Publisher) PublishWithRetry(topic string, event interface{}, maxRetries uint64) error {
	if p == nil || p.eventBus == nil {
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		return p.eventBus.Publish(topic, event)
	}

	notify := func(err error, next time.Duration) {
		p.logger.Warn("Failed to publish event, retrying",
			zap.String("topic", topic),
			zap.Int("attempt", attempt),
			zap.Duration("next_attempt_in", next),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithMaxRetries(policy, maxRetries), notify); err != nil {
		return fmt.Errorf("failed to publish event after %d retries: %w", maxRetries, err)
	}

	if attempt > 1 {
		p.logger.Info("Event published successfully after retry",
			zap.String("topic", topic),
			zap.Int("attempt", attempt))
	}
	return nil
}
