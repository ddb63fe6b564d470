package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"firebase.google.com/go/messaging"
	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/hub"
	"github.com/techagentng/clubhub/metrics"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

// PushSender is satisfied by *messaging.Client.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// StreamPublisher is satisfied by *hub.Hub.
type StreamPublisher interface {
	Send(userID uint, ev hub.Event)
}

// NotificationService pushes refresh hints to open streams and FCM
// notifications to registered devices of direct-message receivers.
type NotificationService struct {
	stream     StreamPublisher
	push       PushSender
	deviceRepo db.DeviceRepository
	logger     *zap.Logger
}

// NewNotificationService accepts a nil push sender when FCM is not configured.
func NewNotificationService(stream StreamPublisher, push PushSender, deviceRepo db.DeviceRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		stream:     stream,
		push:       push,
		deviceRepo: deviceRepo,
		logger:     logger,
	}
}

func (n *NotificationService) MessageCreated(ctx context.Context, msg *models.Message, recipients []uint) {
	for _, uid := range recipients {
		n.stream.Send(uid, hub.Event{
			Event:     hub.EventMessageCreated,
			Thread:    msg.Thread(uid),
			MessageID: msg.ID,
		})
	}
	if n.push == nil || msg.ReceiverID == nil {
		return
	}
	m := *msg
	go n.pushDirect(m)
}

func (n *NotificationService) MessagesRead(ctx context.Context, viewerID uint, thread models.Thread) {
	n.stream.Send(viewerID, hub.Event{Event: hub.EventMessagesRead, Thread: thread})
}

// RegisterDevice stores an FCM token for viewer.
func (n *NotificationService) RegisterDevice(ctx context.Context, viewer *models.User, token string) error {
	if err := checkViewer(viewer); err != nil {
		return err
	}
	return storeError(n.logger, n.deviceRepo.Save(ctx, &models.DeviceToken{UserID: viewer.ID, Token: token}), "device token")
}

func (n *NotificationService) pushDirect(msg models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := n.deviceRepo.TokensForUser(ctx, *msg.ReceiverID)
	if err != nil {
		n.logger.Warn("could not load device tokens", zap.Uint("user_id", *msg.ReceiverID), zap.Error(err))
		return
	}
	for _, token := range tokens {
		_, err := n.push.Send(ctx, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: "New message",
				Body:  preview(msg.Content, 120),
			},
			Data: map[string]string{
				"thread":     models.DirectThread(msg.SenderID).String(),
				"message_id": fmt.Sprint(msg.ID),
			},
		})
		if err == nil {
			continue
		}
		metrics.PushFailures.Inc()
		if messaging.IsRegistrationTokenNotRegistered(err) {
			if derr := n.deviceRepo.Delete(ctx, token); derr != nil {
				n.logger.Warn("could not delete stale device token", zap.Error(derr))
			}
			continue
		}
		n.logger.Warn("push failed", zap.Uint("user_id", *msg.ReceiverID), zap.Error(err))
	}
}

func preview(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
