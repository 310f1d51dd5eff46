package registry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wellcheck-api/internal/common"
)

// gormRepository implements Repository using GORM
type gormRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRepository creates a new GORM-based registry repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) Repository {
	return &gormRepository{
		db:     db,
		logger: logger,
	}
}

func (r *gormRepository) GetUser(ctx context.Context, userID common.UserID) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundError{Resource: "User", ID: string(userID)}
		}
		return nil, common.WrapRepositoryError(err, "get user")
	}

	return &user, nil
}

func (r *gormRepository) UpsertUser(ctx context.Context, user *User) error {
	r.logger.Debug("Upserting user", zap.String("user_id", string(user.ID)))

	if err := validateUser(user); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "check_hour", "timeout_minutes", "is_active", "updated_at"}),
		}).
		Create(user).Error
	if err != nil {
		return common.WrapRepositoryError(err, "upsert user")
	}

	return nil
}

func (r *gormRepository) UpdateSettings(ctx context.Context, userID common.UserID, update UserUpdate) (*User, error) {
	columns := update.columns()
	if len(columns) == 0 {
		return r.GetUser(ctx, userID)
	}
	columns["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(columns)
	if result.Error != nil {
		return nil, common.WrapRepositoryError(result.Error, "update user settings")
	}
	if result.RowsAffected == 0 {
		return nil, common.NotFoundError{Resource: "User", ID: string(userID)}
	}

	return r.GetUser(ctx, userID)
}

func (r *gormRepository) ListActiveUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, common.WrapRepositoryError(err, "list active users")
	}

	return users, nil
}

// StampLastCheckDate is a conditional UPDATE; the affected row count decides the winner
func (r *gormRepository) StampLastCheckDate(ctx context.Context, userID common.UserID, date string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND (last_check_date IS NULL OR last_check_date <> ?)", userID, date).
		Updates(map[string]interface{}{
			"last_check_date": date,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, common.WrapRepositoryError(result.Error, "stamp last check date")
	}

	if result.RowsAffected == 0 {
		// Either already stamped for date, or the user does not exist
		if _, err := r.GetUser(ctx, userID); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

func (r *gormRepository) SetAwaitingResponse(ctx context.Context, userID common.UserID, awaiting bool) error {
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"awaiting_response": awaiting,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return common.WrapRepositoryError(result.Error, "set awaiting response")
	}

	if result.RowsAffected == 0 {
		return common.NotFoundError{Resource: "User", ID: string(userID)}
	}

	return nil
}

func (r *gormRepository) GetContacts(ctx context.Context, userID common.UserID) ([]*Contact, error) {
	var contacts []*Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, common.WrapRepositoryError(err, "get contacts")
	}

	return contacts, nil
}

func (r *gormRepository) AddContact(ctx context.Context, contact *Contact) error {
	if err := prepareContact(contact); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return common.WrapRepositoryError(err, "add contact")
	}

	r.logger.Info("Contact added",
		zap.String("user_id", string(contact.UserID)),
		zap.String("contact_id", string(contact.ID)),
		zap.String("channel", string(contact.ChannelType)))
	return nil
}

func (r *gormRepository) RemoveContact(ctx context.Context, userID common.UserID, contactID common.ContactID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		Delete(&Contact{})
	if result.Error != nil {
		return common.WrapRepositoryError(result.Error, "remove contact")
	}

	if result.RowsAffected == 0 {
		return common.NotFoundError{Resource: "Contact", ID: string(contactID)}
	}

	return nil
}
