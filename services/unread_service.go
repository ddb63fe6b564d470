package services

import (
	"context"
	"time"

	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

// UnreadService derives unread counts. Direct threads are counted per
// counterpart from read_at; broadcast threads from persisted read markers.
type UnreadService interface {
	UnreadMap(ctx context.Context, viewer *models.User) (map[uint]int64, error)
	UnreadCount(ctx context.Context, viewer *models.User) (int64, error)
	MarkRead(ctx context.Context, viewer *models.User, counterpartID, upToID uint) error
	MarkBroadcastRead(ctx context.Context, viewer *models.User, thread models.Thread, upToID uint) error
	BroadcastUnread(ctx context.Context, viewer *models.User) (*models.BroadcastUnread, error)
}

type unreadService struct {
	messageRepo    db.MessageRepository
	readMarkerRepo db.ReadMarkerRepository
	contactService ContactService
	notifier       Notifier
	logger         *zap.Logger
	now            func() time.Time
}

func NewUnreadService(
	messageRepo db.MessageRepository,
	readMarkerRepo db.ReadMarkerRepository,
	contactService ContactService,
	notifier Notifier,
	logger *zap.Logger,
) UnreadService {
	return &unreadService{
		messageRepo:    messageRepo,
		readMarkerRepo: readMarkerRepo,
		contactService: contactService,
		notifier:       notifier,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// UnreadMap omits counterparts with nothing unread.
func (s *unreadService) UnreadMap(ctx context.Context, viewer *models.User) (map[uint]int64, error) {
	if err := checkViewer(viewer); err != nil {
		return nil, err
	}
	unread, err := s.messageRepo.UnreadPerSender(ctx, viewer.ID)
	if err != nil {
		return nil, storeError(s.logger, err, "unread map")
	}
	return unread, nil
}

func (s *unreadService) UnreadCount(ctx context.Context, viewer *models.User) (int64, error) {
	unread, err := s.UnreadMap(ctx, viewer)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range unread {
		total += n
	}
	return total, nil
}

// MarkRead is idempotent: a second call finds nothing left to stamp.
func (s *unreadService) MarkRead(ctx context.Context, viewer *models.User, counterpartID, upToID uint) error {
	if err := checkViewer(viewer); err != nil {
		return err
	}
	n, err := s.messageRepo.MarkDirectRead(ctx, viewer.ID, counterpartID, upToID, s.now())
	if err != nil {
		return storeError(s.logger, err, "mark read")
	}
	if n > 0 {
		s.logger.Debug("direct messages marked read",
			zap.Uint("viewer_id", viewer.ID),
			zap.Uint("counterpart_id", counterpartID),
			zap.Int64("count", n),
		)
		if s.notifier != nil {
			s.notifier.MessagesRead(ctx, viewer.ID, models.DirectThread(counterpartID))
		}
	}
	return nil
}

func (s *unreadService) MarkBroadcastRead(ctx context.Context, viewer *models.User, thread models.Thread, upToID uint) error {
	if err := checkViewer(viewer); err != nil {
		return err
	}
	marker := &models.ReadMarker{
		UserID:            viewer.ID,
		ThreadKind:        thread.Kind,
		ThreadID:          thread.ID,
		LastReadMessageID: upToID,
		LastReadAt:        s.now(),
	}
	if err := s.readMarkerRepo.Advance(ctx, marker); err != nil {
		return storeError(s.logger, err, "read marker")
	}
	if s.notifier != nil {
		s.notifier.MessagesRead(ctx, viewer.ID, thread)
	}
	return nil
}

func (s *unreadService) BroadcastUnread(ctx context.Context, viewer *models.User) (*models.BroadcastUnread, error) {
	contacts, err := s.contactService.Resolve(ctx, viewer)
	if err != nil {
		return nil, err
	}
	markers, err := s.readMarkerRepo.ListForUser(ctx, viewer.ID)
	if err != nil {
		return nil, storeError(s.logger, err, "read markers")
	}
	watermark := make(map[models.Thread]uint, len(markers))
	for _, m := range markers {
		watermark[models.Thread{Kind: m.ThreadKind, ID: m.ThreadID}] = m.LastReadMessageID
	}

	out := &models.BroadcastUnread{
		Categories: map[uint]int64{},
		Teams:      map[uint]int64{},
	}
	for _, list := range [][]models.Contact{contacts.Categories, contacts.Teams} {
		for _, c := range list {
			thread := c.Thread()
			n, err := s.messageRepo.CountBroadcastAfter(ctx, thread, watermark[thread], viewer.ID)
			if err != nil {
				return nil, storeError(s.logger, err, "broadcast unread")
			}
			if n == 0 {
				continue
			}
			if thread.Kind == models.ThreadCategory {
				out.Categories[thread.ID] = n
			} else {
				out.Teams[thread.ID] = n
			}
		}
	}
	return out, nil
}
