package checkin

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wellcheck-api/internal/common"
)

// gormRepository implements Repository using GORM
type gormRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRepository creates a new GORM-based check instance repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) Repository {
	return &gormRepository{
		db:     db,
		logger: logger,
	}
}

func (r *gormRepository) CreateCheckInstance(ctx context.Context, instance *CheckInstance) error {
	r.logger.Debug("Creating check instance",
		zap.String("check_id", string(instance.ID)),
		zap.String("user_id", string(instance.UserID)))

	if err := validateInstance(instance); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(instance).Error; err != nil {
		return common.WrapRepositoryError(err, "create check instance")
	}
	return nil
}

func (r *gormRepository) GetLatestCheckInstance(ctx context.Context, userID common.UserID) (*CheckInstance, error) {
	var instance CheckInstance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("seq DESC").
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundError{Resource: "CheckInstance", ID: "latest for " + string(userID)}
		}
		return nil, common.WrapRepositoryError(err, "get latest check instance")
	}
	return &instance, nil
}

func (r *gormRepository) GetCheckInstance(ctx context.Context, checkID common.CheckID) (*CheckInstance, error) {
	var instance CheckInstance
	err := r.db.WithContext(ctx).Where("id = ?", checkID).First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundError{Resource: "CheckInstance", ID: string(checkID)}
		}
		return nil, common.WrapRepositoryError(err, "get check instance")
	}
	return &instance, nil
}

func (r *gormRepository) UpdateCheckInstanceStatus(ctx context.Context, checkID common.CheckID, status common.CheckStatus) error {
	if !status.IsValid() {
		return common.ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	result := r.db.WithContext(ctx).Model(&CheckInstance{}).
		Where("id = ?", checkID).
		Update("status", status)
	if result.Error != nil {
		return common.WrapRepositoryError(result.Error, "update check instance status")
	}
	if result.RowsAffected == 0 {
		return common.NotFoundError{Resource: "CheckInstance", ID: string(checkID)}
	}
	return nil
}

// TransitionStatus is a conditional UPDATE on the current status
func (r *gormRepository) TransitionStatus(ctx context.Context, checkID common.CheckID, from, to common.CheckStatus, resolution Resolution, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"resolution": resolution,
	}
	if to.IsTerminal() {
		updates["resolved_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&CheckInstance{}).
		Where("id = ? AND status = ?", checkID, from).
		Updates(updates)
	if result.Error != nil {
		return false, common.WrapRepositoryError(result.Error, "transition check instance")
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetCheckInstance(ctx, checkID); err != nil {
			return false, err
		}
		return false, nil
	}

	r.logger.Debug("Check instance transitioned",
		zap.String("check_id", string(checkID)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("resolution", string(resolution)))
	return true, nil
}

func (r *gormRepository) MarkPromptDelivered(ctx context.Context, checkID common.CheckID) error {
	result := r.db.WithContext(ctx).Model(&CheckInstance{}).
		Where("id = ?", checkID).
		Update("prompt_delivered", true)
	if result.Error != nil {
		return common.WrapRepositoryError(result.Error, "mark prompt delivered")
	}
	if result.RowsAffected == 0 {
		return common.NotFoundError{Resource: "CheckInstance", ID: string(checkID)}
	}
	return nil
}

func (r *gormRepository) ListPendingByUser(ctx context.Context, userID common.UserID) ([]*CheckInstance, error) {
	var instances []*CheckInstance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, common.CheckStatusPending).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&instances).Error
	if err != nil {
		return nil, common.WrapRepositoryError(err, "list pending check instances by user")
	}
	return instances, nil
}

func (r *gormRepository) ListPending(ctx context.Context) ([]*CheckInstance, error) {
	var instances []*CheckInstance
	err := r.db.WithContext(ctx).
		Where("status = ?", common.CheckStatusPending).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&instances).Error
	if err != nil {
		return nil, common.WrapRepositoryError(err, "list pending check instances")
	}
	return instances, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID common.UserID, limit int) ([]*CheckInstance, error) {
	var instances []*CheckInstance
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&instances).Error; err != nil {
		return nil, common.WrapRepositoryError(err, "list check instances by user")
	}
	return instances, nil
}

func validateInstance(instance *CheckInstance) error {
	switch {
	case instance == nil || instance.ID == "":
		return common.ValidationError{Field: "id", Message: "check id is required"}
	case instance.UserID == "":
		return common.ValidationError{Field: "user_id", Message: "user id is required"}
	case !instance.Status.IsValid():
		return common.ValidationError{Field: "status", Message: "unknown status " + string(instance.Status)}
	case instance.TimeoutMinutes <= 0:
		return common.ValidationError{Field: "timeout_minutes", Message: "must be positive"}
	case !instance.Source.IsValid():
		return common.ValidationError{Field: "source", Message: "unknown source " + string(instance.Source)}
	}
	return nil
}
