package db

import (
	"context"

	"github.com/pkg/errors"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadMarkerRepository persists broadcast read watermarks.
type ReadMarkerRepository interface {
	Advance(ctx context.Context, marker *models.ReadMarker) error
	ListForUser(ctx context.Context, userID uint) ([]models.ReadMarker, error)
}

type readMarkerRepo struct {
	DB     *gorm.DB
	logger *zap.Logger
}

func NewReadMarkerRepo(db *GormDB, logger *zap.Logger) ReadMarkerRepository {
	return &readMarkerRepo{DB: db.DB, logger: logger}
}

// Advance upserts the marker. An existing marker never moves backwards.
func (r *readMarkerRepo) Advance(ctx context.Context, marker *models.ReadMarker) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "thread_kind"}, {Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_message_id", "last_read_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "read_markers.last_read_message_id < excluded.last_read_message_id"},
		}},
	}).Create(marker).Error
	if err != nil {
		r.logger.Error("failed to advance read marker",
			zap.Uint("user_id", marker.UserID),
			zap.String("thread_kind", string(marker.ThreadKind)),
			zap.Uint("thread_id", marker.ThreadID),
			zap.Error(err),
		)
		return errors.Wrap(err, "advance read marker")
	}
	return nil
}

func (r *readMarkerRepo) ListForUser(ctx context.Context, userID uint) ([]models.ReadMarker, error) {
	var markers []models.ReadMarker
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&markers).Error; err != nil {
		return nil, errors.Wrap(err, "list read markers")
	}
	return markers, nil
}
