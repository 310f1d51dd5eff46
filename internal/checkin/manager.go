package checkin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"wellcheck-api/internal/common"
	"wellcheck-api/internal/delivery"
	"wellcheck-api/internal/escalation"
	"wellcheck-api/internal/events"
	"wellcheck-api/internal/registry"
)

// Manager owns the pending → responded / timed_out lifecycle of check instances
type Manager interface {
	// CreateCheck supersedes any pending instance of the user, persists a new one,
	// arms its timeout watcher and sends the prompt. Prompt delivery failures are
	// logged, not returned.
	CreateCheck(ctx context.Context, userID common.UserID, source Source) (*CheckInstance, error)
	// RecordResponse resolves the user's latest pending instance. A need_help
	// response always dispatches an urgent escalation.
	RecordResponse(ctx context.Context, userID common.UserID, kind common.ResponseKind) (ResponseOutcome, error)
	// OnUserResponse is the inbound callback used by interaction layers
	OnUserResponse(ctx context.Context, userID common.UserID, kind common.ResponseKind) (ResponseOutcome, error)
	// OnTimeout times out the given instance if, and only if, it is still pending.
	// It reports whether the transition happened.
	OnTimeout(ctx context.Context, checkID common.CheckID) (bool, error)
	// Recover re-arms watchers for instances left pending by a previous process
	Recover(ctx context.Context) (int, error)
	History(ctx context.Context, userID common.UserID, limit int) ([]*CheckInstance, error)

	ActiveWatchers() int
	Metrics() MetricsSnapshot
	// Wait blocks until dispatched timeouts and escalations have finished
	Wait()
	// Stop cancels every armed watcher and drains in-flight work
	Stop()
}

// Dependencies wires a Manager to its collaborators
type Dependencies struct {
	Checks    Repository
	Users     registry.Repository
	Gateway   delivery.Gateway
	Escalator escalation.Notifier
	Clock     common.Clock
	Publisher *events.Publisher
	Logger    *zap.Logger
}

type manager struct {
	checks    Repository
	users     registry.Repository
	gateway   delivery.Gateway
	escalator escalation.Notifier
	clock     common.Clock
	publisher *events.Publisher
	logger    *zap.Logger

	locks    *userLocks
	watchers *WatcherRegistry
	metrics  *Metrics
	inflight sync.WaitGroup
	stopped  atomic.Bool
}

// outbox collects events produced under a user lock for publishing after release
type outbox []pendingEvent

type pendingEvent struct {
	topic string
	event interface{}
}

func (o *outbox) add(topic string, event interface{}) {
	*o = append(*o, pendingEvent{topic: topic, event: event})
}

// NewManager creates a Manager. A nil Clock defaults to the real clock and a nil Logger to a no-op logger.
func NewManager(deps Dependencies) Manager {
	if deps.Clock == nil {
		deps.Clock = common.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &manager{
		checks:    deps.Checks,
		users:     deps.Users,
		gateway:   deps.Gateway,
		escalator: deps.Escalator,
		clock:     deps.Clock,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		locks:     newUserLocks(),
		watchers:  NewWatcherRegistry(deps.Clock),
		metrics:   NewMetrics(),
	}
}

func (m *manager) CreateCheck(ctx context.Context, userID common.UserID, source Source) (*CheckInstance, error) {
	if !source.IsValid() {
		return nil, common.ValidationError{Field: "source", Message: fmt.Sprintf("unknown source %q", source)}
	}

	var out outbox
	unlock := m.locks.Lock(userID)
	instance, err := m.createLocked(ctx, userID, source, &out)
	unlock()
	if err != nil {
		m.flush(out)
		return nil, err
	}

	prompt := delivery.NewPrompt(instance.ID, instance.TimeoutMinutes)
	result := m.sendPrompt(ctx, userID, prompt)
	if result.OK() {
		instance.PromptDelivered = true
		if err := m.checks.MarkPromptDelivered(ctx, instance.ID); err != nil {
			m.logger.Warn("Failed to record prompt delivery",
				zap.String("check_id", string(instance.ID)),
				zap.Error(err))
		}
	} else {
		m.metrics.recordPromptFailure()
		deliveryErr := DeliveryError{CheckID: instance.ID, UserID: userID, Reason: result.Reason()}
		m.logger.Warn("Check-in prompt not delivered, watcher stays armed", zap.Error(deliveryErr))
	}

	out.add(events.TopicCheckCreated, events.CheckCreated{
		Event:           events.NewEvent(),
		CheckID:         string(instance.ID),
		UserID:          string(userID),
		Source:          string(source),
		TimeoutMinutes:  instance.TimeoutMinutes,
		PromptDelivered: instance.PromptDelivered,
		DeadlineAt:      instance.Deadline(),
	})
	m.flush(out)

	m.logger.Info("Check created",
		zap.String("user_id", string(userID)),
		zap.String("check_id", string(instance.ID)),
		zap.String("source", string(source)),
		zap.Int("timeout_minutes", instance.TimeoutMinutes))
	return instance, nil
}

func (m *manager) createLocked(ctx context.Context, userID common.UserID, source Source, out *outbox) (*CheckInstance, error) {
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := m.checks.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending checks: %w", err)
	}
	if len(pending) > 1 {
		m.reportViolation(userID, pending, out)
	}

	now := m.clock.Now()
	instance := &CheckInstance{
		ID:             common.NewCheckID(),
		UserID:         userID,
		CreatedAt:      now,
		Status:         common.CheckStatusPending,
		TimeoutMinutes: user.TimeoutMinutes,
		Source:         source,
	}

	for _, old := range pending {
		found := m.watchers.Cancel(old.ID)
		ok, err := m.checks.TransitionStatus(ctx, old.ID, common.CheckStatusPending, common.CheckStatusResponded, ResolutionSuperseded, now)
		if err != nil {
			if found {
				m.arm(old.ID, old.Deadline().Sub(now))
			}
			return nil, fmt.Errorf("failed to supersede check %s: %w", old.ID, err)
		}
		if !ok {
			continue
		}

		m.metrics.recordSuperseded()
		m.logger.Info("Pending check superseded",
			zap.String("user_id", string(userID)),
			zap.String("check_id", string(old.ID)),
			zap.String("superseded_by", string(instance.ID)),
			zap.Bool("watcher_found", found))
		out.add(events.TopicCheckSuperseded, events.CheckSuperseded{
			Event:        events.NewEvent(),
			CheckID:      string(old.ID),
			UserID:       string(userID),
			SupersededBy: string(instance.ID),
			WatcherFound: found,
		})
	}

	if err := m.checks.CreateCheckInstance(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to create check: %w", err)
	}
	m.metrics.recordCreated()

	if err := m.users.SetAwaitingResponse(ctx, userID, true); err != nil {
		m.logger.Warn("Failed to set awaiting flag",
			zap.String("user_id", string(userID)),
			zap.Error(err))
	}

	m.arm(instance.ID, instance.Timeout())
	return instance, nil
}

func (m *manager) reportViolation(userID common.UserID, pending []*CheckInstance, out *outbox) {
	ids := make([]common.CheckID, len(pending))
	raw := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
		raw[i] = string(p.ID)
	}

	violation := InvariantViolationError{
		UserID:   userID,
		Pending:  ids,
		Recovery: "superseding all pending checks",
	}
	m.metrics.recordInvariantViolation()
	m.logger.Error("Invariant violation detected",
		zap.String("invariant", InvariantSinglePending),
		zap.Strings("check_ids", raw),
		zap.Error(violation))

	out.add(events.TopicInvariantViolation, events.InvariantViolation{
		Event:        events.NewEvent(),
		UserID:       string(userID),
		Invariant:    InvariantSinglePending,
		PendingCount: len(pending),
		CheckIDs:     raw,
	})
}

func (m *manager) OnUserResponse(ctx context.Context, userID common.UserID, kind common.ResponseKind) (ResponseOutcome, error) {
	return m.RecordResponse(ctx, userID, kind)
}

func (m *manager) RecordResponse(ctx context.Context, userID common.UserID, kind common.ResponseKind) (ResponseOutcome, error) {
	if !kind.IsValid() {
		return ResponseOutcome{}, InvalidResponseError{Kind: kind}
	}

	var out outbox
	unlock := m.locks.Lock(userID)
	outcome, err := m.respondLocked(ctx, userID, kind, &out)
	unlock()

	if kind == common.ResponseNeedHelp {
		m.dispatch(ctx, userID, common.UrgencyUrgent)
		outcome.Escalated = true
	}
	m.flush(out)

	return outcome, err
}

func (m *manager) respondLocked(ctx context.Context, userID common.UserID, kind common.ResponseKind, out *outbox) (ResponseOutcome, error) {
	outcome := ResponseOutcome{Kind: kind}
	logger := m.logger.With(zap.String("user_id", string(userID)), zap.String("kind", string(kind)))

	latest, err := m.checks.GetLatestCheckInstance(ctx, userID)
	if err != nil {
		if common.IsNotFound(err) {
			m.metrics.recordLateResponse()
			logger.Info("Response with no check history acknowledged")
			return outcome, nil
		}
		logger.Error("Failed to load latest check", zap.Error(err))
		return outcome, err
	}

	if !latest.IsPending() {
		m.metrics.recordLateResponse()
		logger.Info("Late or duplicate response acknowledged",
			zap.String("check_id", string(latest.ID)),
			zap.String("status", string(latest.Status)))
		return outcome, nil
	}

	now := m.clock.Now()
	found := m.watchers.Cancel(latest.ID)
	ok, err := m.checks.TransitionStatus(ctx, latest.ID, common.CheckStatusPending, common.CheckStatusResponded, ResolutionFor(kind), now)
	if err != nil {
		if found {
			m.arm(latest.ID, latest.Deadline().Sub(now))
		}
		logger.Error("Failed to record response", zap.String("check_id", string(latest.ID)), zap.Error(err))
		return outcome, err
	}
	if !ok {
		m.metrics.recordLateResponse()
		logger.Info("Check resolved concurrently, response acknowledged",
			zap.String("check_id", string(latest.ID)))
		return outcome, nil
	}

	if err := m.users.SetAwaitingResponse(ctx, userID, false); err != nil {
		logger.Warn("Failed to clear awaiting flag", zap.Error(err))
	}

	m.metrics.recordResponse()
	outcome.CheckID = latest.ID
	outcome.Resolved = true
	logger.Info("Check responded", zap.String("check_id", string(latest.ID)))

	out.add(events.TopicCheckResponded, events.CheckResponded{
		Event:   events.NewEvent(),
		CheckID: string(latest.ID),
		UserID:  string(userID),
		Kind:    string(kind),
	})
	return outcome, nil
}

func (m *manager) OnTimeout(ctx context.Context, checkID common.CheckID) (bool, error) {
	owner, err := m.checks.GetCheckInstance(ctx, checkID)
	if err != nil {
		if common.IsNotFound(err) {
			m.logger.Warn("Timeout for unknown check ignored", zap.String("check_id", string(checkID)))
			return false, nil
		}
		return false, err
	}

	instance, err := func() (*CheckInstance, error) {
		unlock := m.locks.Lock(owner.UserID)
		defer unlock()
		return m.timeoutLocked(ctx, checkID)
	}()
	if err != nil || instance == nil {
		return false, err
	}

	m.dispatch(ctx, instance.UserID, common.UrgencyRoutine, escalation.WithTimeoutMinutes(instance.TimeoutMinutes))
	m.publisher.Publish(events.TopicCheckTimedOut, events.CheckTimedOut{
		Event:          events.NewEvent(),
		CheckID:        string(checkID),
		UserID:         string(instance.UserID),
		TimeoutMinutes: instance.TimeoutMinutes,
	})
	return true, nil
}

// timeoutLocked returns the timed out instance, or nil when it was no longer pending
func (m *manager) timeoutLocked(ctx context.Context, checkID common.CheckID) (*CheckInstance, error) {
	m.watchers.Cancel(checkID)

	instance, err := m.checks.GetCheckInstance(ctx, checkID)
	if err != nil {
		return nil, err
	}
	if !instance.IsPending() {
		m.logger.Debug("Check already resolved, timeout is a no-op",
			zap.String("check_id", string(checkID)),
			zap.String("status", string(instance.Status)))
		return nil, nil
	}

	ok, err := m.checks.TransitionStatus(ctx, checkID, common.CheckStatusPending, common.CheckStatusTimedOut, ResolutionTimeout, m.clock.Now())
	if err != nil || !ok {
		return nil, err
	}

	if err := m.users.SetAwaitingResponse(ctx, instance.UserID, false); err != nil {
		m.logger.Warn("Failed to clear awaiting flag",
			zap.String("user_id", string(instance.UserID)),
			zap.Error(err))
	}

	m.metrics.recordTimedOut()
	m.logger.Info("Check timed out",
		zap.String("user_id", string(instance.UserID)),
		zap.String("check_id", string(checkID)),
		zap.Int("timeout_minutes", instance.TimeoutMinutes))
	return instance, nil
}

func (m *manager) Recover(ctx context.Context) (int, error) {
	pending, err := m.checks.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending checks: %w", err)
	}

	now := m.clock.Now()
	armed := 0
	for _, instance := range pending {
		if m.watchers.Has(instance.ID) {
			continue
		}
		remaining := instance.Deadline().Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		m.arm(instance.ID, remaining)
		armed++

		m.logger.Info("Watcher re-armed",
			zap.String("user_id", string(instance.UserID)),
			zap.String("check_id", string(instance.ID)),
			zap.Duration("remaining", remaining))
	}
	return armed, nil
}

func (m *manager) History(ctx context.Context, userID common.UserID, limit int) ([]*CheckInstance, error) {
	if limit <= 0 {
		limit = 10
	}
	return m.checks.ListByUser(ctx, userID, limit)
}

func (m *manager) ActiveWatchers() int {
	return m.watchers.Len()
}

func (m *manager) Metrics() MetricsSnapshot {
	snapshot := m.metrics.Snapshot()
	snapshot.ActiveWatchers = m.watchers.Len()
	return snapshot
}

func (m *manager) Wait() {
	m.inflight.Wait()
}

func (m *manager) Stop() {
	m.stopped.Store(true)
	stopped := m.watchers.CancelAll()
	m.inflight.Wait()
	m.logger.Info("Check manager stopped", zap.Int("watchers_cancelled", stopped))
}

// arm schedules the timeout of checkID. The callback may run inline on the
// arming goroutine, which can hold a user lock, so the timeout itself runs on
// its own goroutine.
func (m *manager) arm(checkID common.CheckID, d time.Duration) {
	m.armWithRetry(checkID, d, nil)
}

func (m *manager) armWithRetry(checkID common.CheckID, d time.Duration, retry backoff.BackOff) {
	m.watchers.Arm(checkID, d, func() {
		m.inflight.Add(1)
		go func() {
			defer m.inflight.Done()
			m.handleTimeout(checkID, retry)
		}()
	})
}

// handleTimeout re-arms the watcher with exponential delay until the timeout is processed
func (m *manager) handleTimeout(checkID common.CheckID, retry backoff.BackOff) {
	_, err := m.processTimeout(checkID)
	if err == nil {
		return
	}

	if retry == nil {
		retry = newTimeoutRetry()
	}
	delay := retry.NextBackOff()
	m.metrics.recordTimeoutRetry()
	m.logger.Error("Failed to process timeout, retrying",
		zap.String("check_id", string(checkID)),
		zap.Duration("retry_in", delay),
		zap.Bool("temporary", IsTemporaryError(err)),
		zap.Error(err))

	if m.stopped.Load() {
		return
	}
	m.armWithRetry(checkID, delay, retry)
}

func (m *manager) processTimeout(checkID common.CheckID) (fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("timeout handler panicked: %v", r)
		}
	}()

	return m.OnTimeout(context.Background(), checkID)
}

func newTimeoutRetry() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0
	return policy
}

// dispatch runs an escalation as independent work that outlives the caller's context
func (m *manager) dispatch(ctx context.Context, userID common.UserID, urgency common.Urgency, opts ...escalation.Option) {
	m.metrics.recordEscalation()
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.escalator.Escalate(context.WithoutCancel(ctx), userID, urgency, opts...)
	}()
}

func (m *manager) sendPrompt(ctx context.Context, userID common.UserID, prompt delivery.Prompt) (result delivery.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = delivery.Failure(fmt.Sprintf("gateway panic: %v", r))
		}
	}()
	return m.gateway.SendPrompt(ctx, userID, prompt)
}

func (m *manager) flush(out outbox) {
	for _, e := range out {
		m.publisher.Publish(e.topic, e.event)
	}
}
