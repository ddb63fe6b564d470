package db

import (
	"context"

	"github.com/pkg/errors"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DirectoryRepository is the read-only view of a club's members, categories
// and teams that the messaging core resolves contacts against.
type DirectoryRepository interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindCategory(ctx context.Context, clubID, id uint) (*models.Category, error)
	FindTeam(ctx context.Context, clubID, id uint) (*models.Team, error)
	LoadDirectory(ctx context.Context, clubID uint) (*models.Directory, error)
}

type directoryRepo struct {
	DB     *gorm.DB
	logger *zap.Logger
}

func NewDirectoryRepo(db *GormDB, logger *zap.Logger) DirectoryRepository {
	return &directoryRepo{DB: db.DB, logger: logger}
}

func (r *directoryRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Preload("CoachedCategories").
		Preload("CoachedTeams").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find user %d", id)
	}
	return &user, nil
}

func (r *directoryRepo) FindCategory(ctx context.Context, clubID, id uint) (*models.Category, error) {
	var category models.Category
	err := r.DB.WithContext(ctx).Where("id = ? AND club_id = ?", id, clubID).First(&category).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find category %d", id)
	}
	return &category, nil
}

func (r *directoryRepo) FindTeam(ctx context.Context, clubID, id uint) (*models.Team, error) {
	var team models.Team
	err := r.DB.WithContext(ctx).Preload("Category").Where("id = ? AND club_id = ?", id, clubID).First(&team).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find team %d", id)
	}
	return &team, nil
}

func (r *directoryRepo) LoadDirectory(ctx context.Context, clubID uint) (*models.Directory, error) {
	dir := &models.Directory{ClubID: clubID}
	tx := r.DB.WithContext(ctx)

	if err := tx.Where("club_id = ?", clubID).Order("id ASC").Find(&dir.Categories).Error; err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	if err := tx.Where("club_id = ?", clubID).Order("id ASC").Find(&dir.Teams).Error; err != nil {
		return nil, errors.Wrap(err, "list teams")
	}
	err := tx.Preload("CoachedCategories").
		Preload("CoachedTeams").
		Where("club_id = ?", clubID).
		Order("fullname ASC, id ASC").
		Find(&dir.Users).Error
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}

	r.logger.Debug("directory loaded",
		zap.Uint("club_id", clubID),
		zap.Int("users", len(dir.Users)),
		zap.Int("categories", len(dir.Categories)),
		zap.Int("teams", len(dir.Teams)),
	)
	return dir, nil
}
