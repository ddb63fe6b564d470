package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/techagentng/clubhub/models"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := s.Config.AccessControlAllowOrigin; origins != "" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: s.Config.SendRatePerMinute,
	})
	limitSend := limitRateForSend(store)

	apirouter := router.Group("/api/v1")
	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())

	authorized.GET("/messages/contacts", s.handleGetContacts())
	authorized.GET("/messages/conversations", s.handleGetConversations())
	authorized.GET("/messages/unread-count", s.handleGetUnreadCount())
	authorized.GET("/messages/unread-per-sender", s.handleGetUnreadPerSender())
	authorized.GET("/messages/unread-broadcast", s.handleGetBroadcastUnread())
	authorized.GET("/messages/stream", s.handleStream())
	authorized.POST("/messages/device-token", s.handleRegisterDevice())

	authorized.GET("/messages/category/:threadID", s.handleReadThread(models.ThreadCategory))
	authorized.POST("/messages/category/:threadID", limitSend, s.handleBroadcast(models.ThreadCategory))
	authorized.GET("/messages/team/:threadID", s.handleReadThread(models.ThreadTeam))
	authorized.POST("/messages/team/:threadID", limitSend, s.handleBroadcast(models.ThreadTeam))

	authorized.GET("/messages/:threadID", s.handleReadThread(models.ThreadDirect))
	authorized.POST("/messages", limitSend, s.handleSendDirect())
}
