package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	Find(ctx context.Context, q models.MessageQuery) ([]models.Message, error)
	MarkDirectRead(ctx context.Context, viewerID, senderID, upToID uint, at time.Time) (int64, error)
	UnreadPerSender(ctx context.Context, viewerID uint) (map[uint]int64, error)
	CountBroadcastAfter(ctx context.Context, thread models.Thread, afterID, excludeSenderID uint) (int64, error)
	LastDirectMessages(ctx context.Context, viewerID uint) ([]models.Message, error)
	HasDirectHistory(ctx context.Context, clubID, userID, otherID uint) (bool, error)
}

type messageRepo struct {
	DB     *gorm.DB
	logger *zap.Logger
}

func NewMessageRepo(db *GormDB, logger *zap.Logger) MessageRepository {
	return &messageRepo{DB: db.DB, logger: logger}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if err := r.DB.WithContext(ctx).Omit("Sender").Create(msg).Error; err != nil {
		r.logger.Error("failed to insert message",
			zap.Uint("sender_id", msg.SenderID),
			zap.Error(err),
		)
		return errors.Wrap(err, "insert message")
	}
	r.logger.Debug("message inserted",
		zap.Uint("id", msg.ID),
		zap.Stringer("thread", msg.Thread(msg.SenderID)),
	)
	return nil
}

func (r *messageRepo) Find(ctx context.Context, q models.MessageQuery) ([]models.Message, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Message{}).Where("club_id = ?", q.ClubID)

	switch q.Thread.Kind {
	case models.ThreadDirect:
		tx = tx.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			q.ViewerID, q.Thread.ID, q.Thread.ID, q.ViewerID)
	case models.ThreadCategory:
		tx = tx.Where("category_id = ?", q.Thread.ID)
	case models.ThreadTeam:
		tx = tx.Where("team_id = ?", q.Thread.ID)
	default:
		return nil, errors.Errorf("unknown thread kind %q", q.Thread.Kind)
	}
	if q.AfterID > 0 {
		tx = tx.Where("id > ?", q.AfterID)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var messages []models.Message
	err := tx.Preload("Sender", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "fullname", "role")
	}).Order("created_at ASC").Order("id ASC").Find(&messages).Error
	if err != nil {
		r.logger.Error("failed to query thread",
			zap.Stringer("thread", q.Thread),
			zap.Error(err),
		)
		return nil, errors.Wrapf(err, "query thread %s", q.Thread)
	}
	return messages, nil
}

// MarkDirectRead stamps every unread message from senderID to viewerID with
// an id up to upToID. upToID == 0 marks everything.
func (r *messageRepo) MarkDirectRead(ctx context.Context, viewerID, senderID, upToID uint, at time.Time) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND read_at IS NULL", viewerID, senderID)
	if upToID > 0 {
		tx = tx.Where("id <= ?", upToID)
	}
	res := tx.Update("read_at", at)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark direct messages read")
	}
	return res.RowsAffected, nil
}

type senderCount struct {
	SenderID uint
	Count    int64
}

func (r *messageRepo) UnreadPerSender(ctx context.Context, viewerID uint) (map[uint]int64, error) {
	var rows []senderCount
	err := r.DB.WithContext(ctx).Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND read_at IS NULL", viewerID).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count unread per sender")
	}

	unread := make(map[uint]int64, len(rows))
	for _, row := range rows {
		if row.Count > 0 {
			unread[row.SenderID] = row.Count
		}
	}
	return unread, nil
}

func (r *messageRepo) CountBroadcastAfter(ctx context.Context, thread models.Thread, afterID, excludeSenderID uint) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Message{}).Where("id > ? AND sender_id <> ?", afterID, excludeSenderID)
	switch thread.Kind {
	case models.ThreadCategory:
		tx = tx.Where("category_id = ?", thread.ID)
	case models.ThreadTeam:
		tx = tx.Where("team_id = ?", thread.ID)
	default:
		return 0, errors.Errorf("thread %s is not a broadcast", thread)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, errors.Wrapf(err, "count unread in %s", thread)
	}
	return count, nil
}

const lastDirectMessagesSQL = `
SELECT * FROM messages WHERE id IN (
	SELECT MAX(id) FROM messages
	WHERE receiver_id IS NOT NULL AND (sender_id = ? OR receiver_id = ?)
	GROUP BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
) ORDER BY id DESC`

// LastDirectMessages returns the newest direct message exchanged with each
// counterpart of viewerID, newest conversation first.
func (r *messageRepo) LastDirectMessages(ctx context.Context, viewerID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.WithContext(ctx).Raw(lastDirectMessagesSQL, viewerID, viewerID, viewerID).Scan(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "list last direct messages")
	}
	return messages, nil
}

// HasDirectHistory reports whether the two users have exchanged at least one
// direct message inside the club.
func (r *messageRepo) HasDirectHistory(ctx context.Context, clubID, userID, otherID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Message{}).
		Where("club_id = ?", clubID).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, otherID, otherID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check direct history")
	}
	return count > 0, nil
}
