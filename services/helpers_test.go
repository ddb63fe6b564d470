package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/db/dbtest"
	"github.com/techagentng/clubhub/models"
	"github.com/techagentng/clubhub/services"
	"go.uber.org/zap"
)

type created struct {
	msg        models.Message
	recipients []uint
}

type readCall struct {
	viewerID uint
	thread   models.Thread
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []created
	read    []readCall
}

func (n *recordingNotifier) MessageCreated(_ context.Context, msg *models.Message, recipients []uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, created{msg: *msg, recipients: recipients})
}

func (n *recordingNotifier) MessagesRead(_ context.Context, viewerID uint, thread models.Thread) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.read = append(n.read, readCall{viewerID: viewerID, thread: thread})
}

type env struct {
	db       *db.GormDB
	club     *dbtest.Club
	contacts services.ContactService
	threads  services.ThreadService
	unread   services.UnreadService
	notifier *recordingNotifier
}

func newEnv(t *testing.T) *env {
	g := dbtest.Open(t)
	f := dbtest.Seed(t, g)
	logger := zap.NewNop()

	directoryRepo := db.NewDirectoryRepo(g, logger)
	messageRepo := db.NewMessageRepo(g, logger)
	readMarkerRepo := db.NewReadMarkerRepo(g, logger)

	notifier := &recordingNotifier{}
	contacts := services.NewContactService(directoryRepo, logger)
	unread := services.NewUnreadService(messageRepo, readMarkerRepo, contacts, notifier, logger)
	threads := services.NewThreadService(messageRepo, directoryRepo, contacts, unread, notifier, logger)
	return &env{db: g, club: f, contacts: contacts, threads: threads, unread: unread, notifier: notifier}
}

func (e *env) messageCount(t *testing.T) int64 {
	var n int64
	if err := e.db.DB.Model(&models.Message{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func contactIDs(list []models.Contact) []uint {
	ids := make([]uint, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}
