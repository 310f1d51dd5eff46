package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/config"
	"wellcheck-api/internal/registry"
)

// Scheduler defines the interface for the daily check-in scheduler
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	GetMetrics() *SchedulerMetrics
	GetHealthStatus() HealthStatus

	// Tick evaluates every active user at now and creates the checks that are due
	Tick(ctx context.Context, now time.Time) TickResult
	// OnTimeElapsed runs a tick at the current clock time, for external drivers
	OnTimeElapsed(ctx context.Context) TickResult
}

// CheckCreator requests a new check instance for a user
type CheckCreator interface {
	CreateCheck(ctx context.Context, userID common.UserID, source checkin.Source) (*checkin.CheckInstance, error)
}

// scheduler implements the Scheduler interface
type scheduler struct {
	config    config.SchedulerConfig
	clock     common.Clock
	logger    *zap.Logger
	metrics   *SchedulerMetrics
	evaluator *dueEvaluator
	interval  time.Duration

	// Context and cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Goroutine management
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg config.SchedulerConfig, users registry.Repository, creator CheckCreator, clock common.Clock, logger *zap.Logger) (Scheduler, error) {
	// Validate configuration
	if cfg.PollInterval <= 0 {
		return nil, NewConfigurationError("poll_interval", cfg.PollInterval, "must be greater than 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, NewConfigurationError("shutdown_timeout", cfg.ShutdownTimeout, "must be greater than 0")
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, NewConfigurationError("timezone", cfg.Timezone, err.Error())
	}
	if clock == nil {
		clock = common.NewRealClock()
	}

	return &scheduler{
		config:   cfg,
		clock:    clock,
		logger:   logger,
		metrics:  NewSchedulerMetrics(),
		interval: time.Duration(cfg.PollInterval) * time.Second,
		evaluator: &dueEvaluator{
			users:    users,
			creator:  creator,
			location: location,
			logger:   logger,
		},
	}, nil
}

// Start launches the tick loop. The first tick runs immediately.
func (s *scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return NewSchedulerError(ErrSchedulerAlreadyRunning, "scheduler is already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("Starting check-in scheduler",
		zap.Int("poll_interval_seconds", s.config.PollInterval),
		zap.String("timezone", s.evaluator.location.String()))

	s.wg.Add(1)
	go s.run()

	return nil
}

// Stop gracefully shuts down the scheduler
func (s *scheduler) Stop() error {
	if !s.running.Load() {
		return NewSchedulerError(ErrSchedulerNotRunning, "scheduler is not running")
	}

	s.logger.Info("Stopping check-in scheduler...")

	// Signal shutdown
	if s.cancel != nil {
		s.cancel()
	}

	// Wait for the loop to complete with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler loop stopped")
	case <-time.After(time.Duration(s.config.ShutdownTimeout) * time.Second):
		s.logger.Warn("Scheduler shutdown timed out, a tick may still be running")
		return NewShutdownError("shutdown timeout exceeded", s.config.ShutdownTimeout)
	}

	s.running.Store(false)
	s.logger.Info("Check-in scheduler stopped successfully")
	return nil
}

// IsRunning returns true if the scheduler is currently running
func (s *scheduler) IsRunning() bool {
	return s.running.Load()
}

// GetMetrics returns the current scheduler metrics
func (s *scheduler) GetMetrics() *SchedulerMetrics {
	return s.metrics
}

func (s *scheduler) GetHealthStatus() HealthStatus {
	return s.metrics.GetHealthStatus(s.clock.Now(), s.interval)
}

func (s *scheduler) OnTimeElapsed(ctx context.Context) TickResult {
	return s.Tick(ctx, s.clock.Now())
}

func (s *scheduler) Tick(ctx context.Context, now time.Time) TickResult {
	started := time.Now()

	result, err := s.evaluator.evaluate(ctx, now)
	if err != nil {
		s.logger.Error("Tick aborted",
			zap.Bool("temporary", IsTemporaryError(err)),
			zap.Error(err))
		s.metrics.RecordEvaluationError()
	}
	s.metrics.RecordTick(now, time.Since(started), result)

	if result.Created > 0 || result.Errors > 0 {
		s.logger.Info("Tick completed",
			zap.Int("evaluated", result.Evaluated),
			zap.Int("due", result.Due),
			zap.Int("created", result.Created),
			zap.Int("skipped", result.Skipped),
			zap.Int("errors", result.Errors),
			zap.Int("lost_after_stamp", result.LostAfterStamp))
	}
	return result
}

// run supervises the tick loop and restarts it after a panic with exponential delay
func (s *scheduler) run() {
	defer s.wg.Done()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0

	restarts := 0
	for {
		if s.runLoopSafely(restarts) {
			return
		}

		restarts++
		s.metrics.RecordLoopRestart()
		delay := policy.NextBackOff()
		s.logger.Warn("Restarting tick loop after panic",
			zap.Int("restart_count", restarts),
			zap.Duration("delay", delay))

		select {
		case <-s.clock.After(delay):
		case <-s.ctx.Done():
			return
		}
	}
}

// runLoopSafely reports true on normal shutdown and false after a recovered panic
func (s *scheduler) runLoopSafely(restarts int) (completed bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tick loop panic recovered", zap.Error(NewLoopError(restarts, r)))
			completed = false
		}
	}()

	s.OnTimeElapsed(s.ctx)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Tick loop stopping due to context cancellation")
			return true
		case <-s.clock.After(s.interval):
			s.OnTimeElapsed(s.ctx)
		}
	}
}
