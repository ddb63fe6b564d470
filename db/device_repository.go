package db

import (
	"context"

	"github.com/pkg/errors"
	"github.com/techagentng/clubhub/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceRepository interface {
	Save(ctx context.Context, token *models.DeviceToken) error
	TokensForUser(ctx context.Context, userID uint) ([]string, error)
	Delete(ctx context.Context, token string) error
}

type deviceRepo struct {
	DB *gorm.DB
}

func NewDeviceRepo(db *GormDB) DeviceRepository {
	return &deviceRepo{db.DB}
}

// Save registers token for its user; a token moving to another user is reassigned.
func (r *deviceRepo) Save(ctx context.Context, token *models.DeviceToken) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id"}),
	}).Create(token).Error
	if err != nil {
		return errors.Wrap(err, "save device token")
	}
	return nil
}

func (r *deviceRepo) TokensForUser(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := r.DB.WithContext(ctx).Model(&models.DeviceToken{}).Where("user_id = ?", userID).Pluck("token", &tokens).Error
	if err != nil {
		return nil, errors.Wrap(err, "list device tokens")
	}
	return tokens, nil
}

func (r *deviceRepo) Delete(ctx context.Context, token string) error {
	if err := r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.DeviceToken{}).Error; err != nil {
		return errors.Wrap(err, "delete device token")
	}
	return nil
}
