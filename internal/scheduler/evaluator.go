package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/registry"
)

// TickResult summarizes one evaluation pass over the active users
type TickResult struct {
	Evaluated int `json:"evaluated"`
	Due       int `json:"due"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`

	// LostAfterStamp counts users stamped for today whose check could not be
	// created. They get no scheduled check until tomorrow.
	LostAfterStamp int `json:"lost_after_stamp"`
}

// dueEvaluator decides which users are due and requests their checks
type dueEvaluator struct {
	users    registry.Repository
	creator  CheckCreator
	location *time.Location
	logger   *zap.Logger
}

// evaluate runs one tick at now. Failures for one user never stop the others.
func (e *dueEvaluator) evaluate(ctx context.Context, now time.Time) (TickResult, error) {
	var result TickResult

	local := now.In(e.location)
	today := local.Format(registry.DateLayout)

	users, err := e.users.ListActiveUsers(ctx)
	if err != nil {
		return result, NewEvaluationError("*", "list_active_users", err)
	}

	e.logger.Debug("Evaluating active users",
		zap.Int("user_count", len(users)),
		zap.Int("hour", local.Hour()),
		zap.String("date", today))

	for _, user := range users {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Evaluated++

		if local.Hour() != user.CheckHour || user.CheckedOn(today) {
			continue
		}
		result.Due++

		created, stamped, err := e.evaluateUser(ctx, user.ID, today)
		switch {
		case err != nil:
			result.Errors++
			if stamped {
				result.LostAfterStamp++
			}
			e.logger.Error("Failed to evaluate user",
				zap.String("user_id", string(user.ID)),
				zap.Bool("stamped", stamped),
				zap.Bool("temporary", IsTemporaryError(err)),
				zap.Error(err))
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}

	return result, nil
}

// evaluateUser stamps today's date and, only if this call won the stamp, creates the check.
// stamped reports whether the stamp was written by this call.
func (e *dueEvaluator) evaluateUser(ctx context.Context, userID common.UserID, today string) (created, stamped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEvaluationError(string(userID), "panic_recovery", fmt.Errorf("panic: %v", r))
		}
	}()

	stamped, err = e.users.StampLastCheckDate(ctx, userID, today)
	if err != nil {
		return false, false, NewEvaluationError(string(userID), "stamp_last_check_date", err)
	}
	if !stamped {
		e.logger.Debug("User already stamped for today", zap.String("user_id", string(userID)))
		return false, false, nil
	}

	instance, err := e.creator.CreateCheck(ctx, userID, checkin.SourceScheduled)
	if err != nil {
		return false, true, NewEvaluationError(string(userID), "create_check", err)
	}

	e.logger.Info("Scheduled check created",
		zap.String("user_id", string(userID)),
		zap.String("check_id", string(instance.ID)),
		zap.String("date", today))
	return true, true, nil
}
