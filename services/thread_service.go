package services

import (
	"context"
	"strings"
	"time"

	"github.com/techagentng/clubhub/db"
	apiError "github.com/techagentng/clubhub/errors"
	"github.com/techagentng/clubhub/metrics"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

// Notifier is told about store changes after they are committed. It must not block.
type Notifier interface {
	MessageCreated(ctx context.Context, msg *models.Message, recipients []uint)
	MessagesRead(ctx context.Context, viewerID uint, thread models.Thread)
}

// ThreadService routes a thread to its store query and its write path.
type ThreadService interface {
	ResolveRead(viewer *models.User, thread models.Thread) models.MessageQuery
	AuthorizeRead(ctx context.Context, viewer *models.User, thread models.Thread) error
	AuthorizeWrite(ctx context.Context, viewer *models.User, thread models.Thread) (bool, error)
	Send(ctx context.Context, viewer *models.User, thread models.Thread, content string) (*models.Message, error)
	Read(ctx context.Context, viewer *models.User, thread models.Thread, afterID uint, limit int) ([]models.Message, error)
	Conversations(ctx context.Context, viewer *models.User) ([]models.Conversation, error)
}

type threadService struct {
	messageRepo    db.MessageRepository
	directoryRepo  db.DirectoryRepository
	contactService ContactService
	unreadService  UnreadService
	notifier       Notifier
	logger         *zap.Logger
	now            func() time.Time
}

func NewThreadService(
	messageRepo db.MessageRepository,
	directoryRepo db.DirectoryRepository,
	contactService ContactService,
	unreadService UnreadService,
	notifier Notifier,
	logger *zap.Logger,
) ThreadService {
	return &threadService{
		messageRepo:    messageRepo,
		directoryRepo:  directoryRepo,
		contactService: contactService,
		unreadService:  unreadService,
		notifier:       notifier,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *threadService) ResolveRead(viewer *models.User, thread models.Thread) models.MessageQuery {
	return models.MessageQuery{
		ClubID:   viewer.ClubID,
		ViewerID: viewer.ID,
		Thread:   thread,
	}
}

// target loads the thread's counterpart, category or team, scoped to the
// viewer's club.
type target struct {
	user     *models.User
	category *models.Category
	team     *models.Team
}

func (s *threadService) target(ctx context.Context, viewer *models.User, thread models.Thread) (*target, error) {
	if thread.ID == 0 {
		return nil, apiError.Validation("thread id is required")
	}
	switch thread.Kind {
	case models.ThreadDirect:
		if thread.ID == viewer.ID {
			return nil, apiError.Validation("cannot open a direct thread with yourself")
		}
		u, err := s.directoryRepo.FindUserByID(ctx, thread.ID)
		if err != nil {
			return nil, storeError(s.logger, err, "user")
		}
		if u.ClubID != viewer.ClubID {
			return nil, apiError.NotFound("user not found")
		}
		return &target{user: u}, nil
	case models.ThreadCategory:
		c, err := s.directoryRepo.FindCategory(ctx, viewer.ClubID, thread.ID)
		if err != nil {
			return nil, storeError(s.logger, err, "category")
		}
		return &target{category: c}, nil
	case models.ThreadTeam:
		t, err := s.directoryRepo.FindTeam(ctx, viewer.ClubID, thread.ID)
		if err != nil {
			return nil, storeError(s.logger, err, "team")
		}
		return &target{team: t}, nil
	}
	return nil, apiError.Validation("unknown thread kind %q", thread.Kind)
}

func (s *threadService) canAddressDirect(ctx context.Context, viewer *models.User, userID uint) (bool, error) {
	contacts, err := s.contactService.Resolve(ctx, viewer)
	if err != nil {
		return false, err
	}
	return contacts.HasUser(userID), nil
}

// canReadDirect also admits a former contact the viewer already exchanged
// messages with, so that history stays readable and its unread count can be
// cleared after a reassignment. Writing still requires a current contact.
func (s *threadService) canReadDirect(ctx context.Context, viewer *models.User, userID uint) (bool, error) {
	ok, err := s.canAddressDirect(ctx, viewer, userID)
	if err != nil || ok {
		return ok, err
	}
	ok, err = s.messageRepo.HasDirectHistory(ctx, viewer.ClubID, viewer.ID, userID)
	if err != nil {
		return false, storeError(s.logger, err, "direct history")
	}
	return ok, nil
}

// CanReadBroadcast reports whether viewer is a member of, or has authority
// over, the category or team.
func CanReadBroadcast(viewer *models.User, category *models.Category, team *models.Team) bool {
	if viewer.IsAdmin() {
		return true
	}
	switch {
	case category != nil:
		if viewer.IsCoach() {
			return viewer.CoachesCategory(category.ID)
		}
		return viewer.InCategory(category.ID)
	case team != nil:
		if viewer.IsCoach() {
			return viewer.CoachesTeam(team)
		}
		return viewer.InTeam(team.ID)
	}
	return false
}

// CanWriteBroadcast reports whether viewer may post into the category or
// team. Sportifs never can.
func CanWriteBroadcast(viewer *models.User, category *models.Category, team *models.Team) bool {
	switch {
	case viewer.IsAdmin():
		return true
	case !viewer.IsCoach():
		return false
	case category != nil:
		return viewer.CoachesCategory(category.ID)
	case team != nil:
		return viewer.CoachesTeam(team)
	}
	return false
}

func (s *threadService) AuthorizeRead(ctx context.Context, viewer *models.User, thread models.Thread) error {
	if err := checkViewer(viewer); err != nil {
		return err
	}
	t, err := s.target(ctx, viewer, thread)
	if err != nil {
		return err
	}
	allowed := false
	if t.user != nil {
		if allowed, err = s.canReadDirect(ctx, viewer, t.user.ID); err != nil {
			return err
		}
	} else {
		allowed = CanReadBroadcast(viewer, t.category, t.team)
	}
	if !allowed {
		metrics.AuthorizationDenied.WithLabelValues("read", string(thread.Kind)).Inc()
		return apiError.Authorization("not allowed to read %s", thread)
	}
	return nil
}

func (s *threadService) AuthorizeWrite(ctx context.Context, viewer *models.User, thread models.Thread) (bool, error) {
	if err := checkViewer(viewer); err != nil {
		return false, err
	}
	t, err := s.target(ctx, viewer, thread)
	if err != nil {
		return false, err
	}
	if t.user != nil {
		return s.canAddressDirect(ctx, viewer, t.user.ID)
	}
	return CanWriteBroadcast(viewer, t.category, t.team), nil
}

func (s *threadService) Send(ctx context.Context, viewer *models.User, thread models.Thread, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apiError.Validation("message content cannot be empty")
	}
	allowed, err := s.AuthorizeWrite(ctx, viewer, thread)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.AuthorizationDenied.WithLabelValues("write", string(thread.Kind)).Inc()
		return nil, apiError.Authorization("not allowed to post in %s", thread)
	}

	msg := &models.Message{
		ClubID:    viewer.ClubID,
		SenderID:  viewer.ID,
		Content:   content,
		CreatedAt: s.now(),
	}
	thread.Address(msg)
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, storeError(s.logger, err, "message")
	}
	metrics.MessagesSent.WithLabelValues(string(thread.Kind)).Inc()
	s.logger.Info("message sent",
		zap.Uint("id", msg.ID),
		zap.Uint("sender_id", viewer.ID),
		zap.Stringer("thread", thread),
	)

	if s.notifier != nil {
		recipients, err := s.recipients(ctx, viewer, thread)
		if err != nil {
			s.logger.Warn("could not resolve recipients", zap.Stringer("thread", thread), zap.Error(err))
		}
		s.notifier.MessageCreated(ctx, msg, recipients)
	}
	return msg, nil
}

// recipients lists every user who can read the thread, the sender included.
func (s *threadService) recipients(ctx context.Context, viewer *models.User, thread models.Thread) ([]uint, error) {
	if thread.Kind == models.ThreadDirect {
		return []uint{viewer.ID, thread.ID}, nil
	}
	dir, err := s.contactService.Directory(ctx, viewer)
	if err != nil {
		return []uint{viewer.ID}, err
	}
	var category *models.Category
	var team *models.Team
	if thread.Kind == models.ThreadCategory {
		if c, ok := dir.Category(thread.ID); ok {
			category = &c
		}
	} else if t, ok := dir.Team(thread.ID); ok {
		team = &t
	}
	var out []uint
	for i := range dir.Users {
		if CanReadBroadcast(&dir.Users[i], category, team) {
			out = append(out, dir.Users[i].ID)
		}
	}
	return out, nil
}

// Read returns the thread's messages after afterID, oldest first, at most
// limit of them when limit > 0. Only the returned messages are marked read.
func (s *threadService) Read(ctx context.Context, viewer *models.User, thread models.Thread, afterID uint, limit int) ([]models.Message, error) {
	if limit < 0 || limit > models.MaxPageSize {
		return nil, apiError.Validation("limit must be between 1 and %d", models.MaxPageSize)
	}
	if err := s.AuthorizeRead(ctx, viewer, thread); err != nil {
		return nil, err
	}
	q := s.ResolveRead(viewer, thread)
	q.AfterID = afterID
	q.Limit = limit
	messages, err := s.messageRepo.Find(ctx, q)
	if err != nil {
		return nil, storeError(s.logger, err, "thread")
	}
	metrics.ThreadReads.WithLabelValues(string(thread.Kind)).Inc()

	upTo := afterID
	for _, m := range messages {
		if m.ID > upTo {
			upTo = m.ID
		}
	}
	if upTo == 0 {
		return messages, nil
	}
	if thread.Kind == models.ThreadDirect {
		err = s.unreadService.MarkRead(ctx, viewer, thread.ID, upTo)
	} else {
		err = s.unreadService.MarkBroadcastRead(ctx, viewer, thread, upTo)
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *threadService) Conversations(ctx context.Context, viewer *models.User) ([]models.Conversation, error) {
	dir, err := s.contactService.Directory(ctx, viewer)
	if err != nil {
		return nil, err
	}
	last, err := s.messageRepo.LastDirectMessages(ctx, viewer.ID)
	if err != nil {
		return nil, storeError(s.logger, err, "conversations")
	}
	unread, err := s.unreadService.UnreadMap(ctx, viewer)
	if err != nil {
		return nil, err
	}

	conversations := make([]models.Conversation, 0, len(last))
	for i := range last {
		m := last[i]
		counterpartID := m.Thread(viewer.ID).ID
		u, ok := dir.User(counterpartID)
		if !ok {
			continue
		}
		conversations = append(conversations, models.Conversation{
			Counterpart: dir.UserContact(u),
			LastMessage: &m,
			UnreadCount: unread[counterpartID],
		})
	}
	return conversations, nil
}
