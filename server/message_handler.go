package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/leebenson/conform"
	errs "github.com/techagentng/clubhub/errors"
	"github.com/techagentng/clubhub/models"
	"github.com/techagentng/clubhub/server/response"
	"go.uber.org/zap"
)

func (s *Server) handleGetContacts() gin.HandlerFunc {
	return func(c *gin.Context) {
		contacts, err := s.ContactService.Resolve(c.Request.Context(), viewer(c))
		if err != nil {
			response.Error(c, "Error resolving contacts", err)
			return
		}
		response.JSON(c, "Contacts retrieved successfully", http.StatusOK, contacts, nil)
	}
}

func (s *Server) handleGetConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversations, err := s.ThreadService.Conversations(c.Request.Context(), viewer(c))
		if err != nil {
			response.Error(c, "Error fetching conversations", err)
			return
		}
		response.JSON(c, "Conversations retrieved successfully", http.StatusOK, conversations, nil)
	}
}

func (s *Server) handleGetUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := s.UnreadService.UnreadCount(c.Request.Context(), viewer(c))
		if err != nil {
			response.Error(c, "Error counting unread messages", err)
			return
		}
		response.JSON(c, "Unread count retrieved successfully", http.StatusOK, gin.H{"count": count}, nil)
	}
}

func (s *Server) handleGetUnreadPerSender() gin.HandlerFunc {
	return func(c *gin.Context) {
		unread, err := s.UnreadService.UnreadMap(c.Request.Context(), viewer(c))
		if err != nil {
			response.Error(c, "Error counting unread messages", err)
			return
		}
		response.JSON(c, "Unread messages per sender retrieved successfully", http.StatusOK, unread, nil)
	}
}

func (s *Server) handleGetBroadcastUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		unread, err := s.UnreadService.BroadcastUnread(c.Request.Context(), viewer(c))
		if err != nil {
			response.Error(c, "Error counting unread broadcasts", err)
			return
		}
		response.JSON(c, "Unread broadcasts retrieved successfully", http.StatusOK, unread, nil)
	}
}

func (s *Server) handleReadThread(kind models.ThreadKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		thread, ok := threadFromParam(c, kind)
		if !ok {
			return
		}
		var afterID uint64
		if after := c.Query("after"); after != "" {
			var err error
			if afterID, err = strconv.ParseUint(after, 10, 64); err != nil {
				response.JSON(c, "Invalid after parameter", http.StatusBadRequest, nil, errs.Validation("after must be a message id"))
				return
			}
		}

		var limit int
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				response.JSON(c, "Invalid limit parameter", http.StatusBadRequest, nil, errs.Validation("limit must be a positive number"))
				return
			}
			limit = n
		}
		messages, err := s.ThreadService.Read(c.Request.Context(), viewer(c), thread, uint(afterID), limit)
		if err != nil {
			response.Error(c, "Error fetching messages", err)
			return
		}
		response.JSON(c, "Messages retrieved successfully", http.StatusOK, messages, nil)
	}
}

func (s *Server) handleSendDirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SendMessageRequest
		if err := decode(c, &req); err != nil {
			response.JSON(c, "Invalid request body", http.StatusBadRequest, nil, errs.Validation("%s", err.Error()))
			return
		}
		s.send(c, models.DirectThread(req.ReceiverID), req.Content)
	}
}

func (s *Server) handleBroadcast(kind models.ThreadKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		thread, ok := threadFromParam(c, kind)
		if !ok {
			return
		}
		var req models.BroadcastRequest
		if err := decode(c, &req); err != nil {
			response.JSON(c, "Invalid request body", http.StatusBadRequest, nil, errs.Validation("%s", err.Error()))
			return
		}
		s.send(c, thread, req.Content)
	}
}

func (s *Server) send(c *gin.Context, thread models.Thread, content string) {
	msg, err := s.ThreadService.Send(c.Request.Context(), viewer(c), thread, content)
	if err != nil {
		response.Error(c, "Message not sent", err)
		return
	}
	response.JSON(c, "Message sent successfully", http.StatusCreated, msg, nil)
}

func (s *Server) handleRegisterDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DeviceTokenRequest
		if err := decode(c, &req); err != nil {
			response.JSON(c, "Invalid request body", http.StatusBadRequest, nil, errs.Validation("%s", err.Error()))
			return
		}
		if err := s.NotificationService.RegisterDevice(c.Request.Context(), viewer(c), req.Token); err != nil {
			response.Error(c, "Device not registered", err)
			return
		}
		response.JSON(c, "Device registered successfully", http.StatusOK, nil, nil)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := viewer(c)
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.Logger.Debug("stream upgrade failed", zap.Error(err))
			return
		}
		s.Hub.Register(v.ID, conn)
	}
}

// decode binds the JSON body and trims its string fields.
func decode(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return bindError(err)
	}
	return conform.Strings(v)
}

// bindError turns validator failures into one readable line.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()[:1])+fe.Field()[1:], fe.Tag()))
	}
	return errors.New(strings.Join(fields, ", "))
}

func threadFromParam(c *gin.Context, kind models.ThreadKind) (models.Thread, bool) {
	id, err := strconv.ParseUint(c.Param("threadID"), 10, 64)
	if err != nil || id == 0 {
		response.JSON(c, "Invalid thread id", http.StatusBadRequest, nil, errs.Validation("invalid %s id", kind))
		return models.Thread{}, false
	}
	return models.Thread{Kind: kind, ID: uint(id)}, true
}
