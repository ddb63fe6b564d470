package main

import (
	"context"
	"log"

	firebase "firebase.google.com/go"
	"github.com/techagentng/clubhub/config"
	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/hub"
	"github.com/techagentng/clubhub/logger"
	"github.com/techagentng/clubhub/server"
	"github.com/techagentng/clubhub/services"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// initPush returns an FCM client, or nil when no credentials are configured.
func initPush(conf *config.Config, l *zap.Logger) services.PushSender {
	if conf.FirebaseCredentials == "" {
		l.Info("firebase credentials not set, push notifications disabled")
		return nil
	}
	opt := option.WithCredentialsFile(conf.FirebaseCredentials)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		l.Fatal("error initializing Firebase app", zap.Error(err))
	}
	client, err := app.Messaging(context.Background())
	if err != nil {
		l.Fatal("error getting Messaging client", zap.Error(err))
	}
	l.Info("Firebase Messaging client initialized")
	return client
}

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	l := logger.New(conf.Debug)
	defer l.Sync()

	gormDB := db.GetDB(conf)

	directoryRepo := db.NewDirectoryRepo(gormDB, l)
	messageRepo := db.NewMessageRepo(gormDB, l)
	readMarkerRepo := db.NewReadMarkerRepo(gormDB, l)
	deviceRepo := db.NewDeviceRepo(gormDB)

	streamHub := hub.NewHub(l)
	notificationService := services.NewNotificationService(streamHub, initPush(conf, l), deviceRepo, l)
	contactService := services.NewContactService(directoryRepo, l)
	unreadService := services.NewUnreadService(messageRepo, readMarkerRepo, contactService, notificationService, l)
	threadService := services.NewThreadService(messageRepo, directoryRepo, contactService, unreadService, notificationService, l)

	s := &server.Server{
		Config:              conf,
		Logger:              l,
		DirectoryRepository: directoryRepo,
		ContactService:      contactService,
		ThreadService:       threadService,
		UnreadService:       unreadService,
		NotificationService: notificationService,
		Hub:                 streamHub,
	}
	s.Start()
}
