package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techagentng/clubhub/config"
	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/hub"
	"github.com/techagentng/clubhub/services"
	"go.uber.org/zap"
)

type Server struct {
	Config              *config.Config
	Logger              *zap.Logger
	DirectoryRepository db.DirectoryRepository
	ContactService      services.ContactService
	ThreadService       services.ThreadService
	UnreadService       services.UnreadService
	NotificationService *services.NotificationService
	Hub                 *hub.Hub
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests.
func (s *Server) Start() {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Config.Port),
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.Logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("shutting down server")

	if s.Hub != nil {
		s.Hub.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.Error("forced shutdown", zap.Error(err))
	}
}
