package escalation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wellcheck-api/internal/common"
	"wellcheck-api/internal/delivery"
	"wellcheck-api/internal/events"
	"wellcheck-api/internal/registry"
)

// Notifier fans an alert out to every emergency contact of a user
type Notifier interface {
	// Escalate attempts delivery to all contacts and reports the outcome. It never fails:
	// lookup and delivery problems are logged and reflected in the Summary.
	Escalate(ctx context.Context, userID common.UserID, urgency common.Urgency, opts ...Option) Summary
}

// Summary aggregates the per-contact delivery results of one escalation
type Summary struct {
	UserID    common.UserID    `json:"user_id"`
	Urgency   common.Urgency   `json:"urgency"`
	Delivered int              `json:"delivered"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Failures  []ContactFailure `json:"failures,omitempty"`
}

// Attempted is the number of contacts a send was tried for
func (s Summary) Attempted() int {
	return s.Delivered + s.Failed
}

// ContactFailure records one contact that could not be reached
type ContactFailure struct {
	ContactID common.ContactID `json:"contact_id"`
	Address   string           `json:"address"`
	Reason    string           `json:"reason"`
}

// Option adjusts the alert text of a single escalation
type Option func(*alert)

type alert struct {
	timeoutMinutes int
}

// WithTimeoutMinutes names the missed response window in routine alerts
func WithTimeoutMinutes(minutes int) Option {
	return func(a *alert) {
		a.timeoutMinutes = minutes
	}
}

type notifier struct {
	users     registry.Repository
	gateway   delivery.Gateway
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewNotifier creates a Notifier that resolves contacts through users and sends through gateway
func NewNotifier(users registry.Repository, gateway delivery.Gateway, publisher *events.Publisher, logger *zap.Logger) Notifier {
	return &notifier{
		users:     users,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
}

func (n *notifier) Escalate(ctx context.Context, userID common.UserID, urgency common.Urgency, opts ...Option) (summary Summary) {
	summary = Summary{UserID: userID, Urgency: urgency}

	logger := n.logger.With(
		zap.String("user_id", string(userID)),
		zap.String("urgency", string(urgency)))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Escalation panicked", zap.Any("panic", r))
		}
		n.publish(summary)
	}()

	var a alert
	for _, opt := range opts {
		opt(&a)
	}

	name := string(userID)
	user, err := n.users.GetUser(ctx, userID)
	switch {
	case err == nil:
		name = user.Name()
	case common.IsNotFound(err):
		logger.Warn("Escalating for unknown user")
	default:
		logger.Error("Failed to load user for escalation", zap.Error(err))
	}

	contacts, err := n.users.GetContacts(ctx, userID)
	if err != nil {
		logger.Error("Failed to load contacts for escalation", zap.Error(err))
		return summary
	}
	if len(contacts) == 0 {
		logger.Info("No emergency contacts registered, escalation is a no-op")
		return summary
	}

	text := Message(name, urgency, a.timeoutMinutes)

	for _, contact := range contacts {
		if !n.gateway.SupportsChannel(contact.ChannelType) {
			summary.Skipped++
			logger.Info("Contact channel not supported by gateway, recorded only",
				zap.String("contact_id", string(contact.ID)),
				zap.String("channel", string(contact.ChannelType)))
			continue
		}

		result := n.send(ctx, contact, text)
		if result.OK() {
			summary.Delivered++
			continue
		}

		summary.Failed++
		summary.Failures = append(summary.Failures, ContactFailure{
			ContactID: contact.ID,
			Address:   contact.Address,
			Reason:    result.Reason(),
		})
		logger.Warn("Alert delivery failed",
			zap.String("contact_id", string(contact.ID)),
			zap.String("reason", result.Reason()))
	}

	logger.Info("Escalation completed",
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))
	return summary
}

// send isolates one contact so a panicking gateway counts as a failure for that contact only
func (n *notifier) send(ctx context.Context, contact *registry.Contact, text string) (result delivery.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = delivery.Failure(fmt.Sprintf("gateway panic: %v", r))
		}
	}()
	return n.gateway.SendAlert(ctx, contact.Address, text)
}

// completedPublishRetries bounds retries of the outcome event seen by the user
const completedPublishRetries = 3

func (n *notifier) publish(summary Summary) {
	err := n.publisher.PublishWithRetry(events.TopicEscalationCompleted, events.EscalationCompleted{
		Event:     events.NewEvent(),
		UserID:    string(summary.UserID),
		Urgency:   string(summary.Urgency),
		Delivered: summary.Delivered,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
	}, completedPublishRetries)
	if err != nil {
		n.logger.Error("Escalation outcome not published",
			zap.String("user_id", string(summary.UserID)),
			zap.Int("delivered", summary.Delivered),
			zap.Int("failed", summary.Failed),
			zap.Error(err))
	}
}

// Message builds the alert text sent to contacts
func Message(name string, urgency common.Urgency, timeoutMinutes int) string {
	if urgency == common.UrgencyUrgent {
		return fmt.Sprintf("🚨 %s pressed \"I need help\" in their daily check-in. Please contact them right away.", name)
	}
	switch {
	case timeoutMinutes == 1:
		return fmt.Sprintf("⚠️ %s did not answer their daily check-in within 1 minute. Please reach out to them.", name)
	case timeoutMinutes > 1:
		return fmt.Sprintf("⚠️ %s did not answer their daily check-in within %d minutes. Please reach out to them.", name, timeoutMinutes)
	}
	return fmt.Sprintf("⚠️ %s did not answer their daily check-in. Please reach out to them.", name)
}
