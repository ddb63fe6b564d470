package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/techagentng/clubhub/metrics"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

const (
	EventMessageCreated = "message_created"
	EventMessagesRead   = "messages_read"
)

// Event is a refresh hint. Clients re-read through the ordered REST queries;
// the stream never carries message content.
type Event struct {
	Event     string        `json:"event"`
	Thread    models.Thread `json:"thread"`
	MessageID uint          `json:"message_id,omitempty"`
}

var (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	sendBufSize  = 64
)

// Hub fans events out to the open streams of each user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[string]*Client
	logger  *zap.Logger
	closed  bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[uint]map[string]*Client),
		logger:  logger,
	}
}

// Register attaches conn to userID and starts its pumps. It returns nil
// once the hub is stopped.
func (h *Hub) Register(userID uint, conn *websocket.Conn) *Client {
	c := &Client{
		ID:     uuid.New().String(),
		userID: userID,
		conn:   conn,
		hub:    h,
		egress: make(chan Event, sendBufSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	room, ok := h.clients[userID]
	if !ok {
		room = make(map[string]*Client)
		h.clients[userID] = room
	}
	room[c.ID] = c
	h.mu.Unlock()

	metrics.StreamClients.Inc()
	h.logger.Debug("stream client registered", zap.String("client_id", c.ID), zap.Uint("user_id", userID))

	go c.readMessages()
	go c.writeMessages()
	return c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if room, ok := h.clients[c.userID]; ok {
		if _, exists := room[c.ID]; exists {
			delete(room, c.ID)
			metrics.StreamClients.Dec()
		}
		if len(room) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("stream client removed", zap.String("client_id", c.ID), zap.Uint("user_id", c.userID))
}

// Send queues ev for every stream of userID. Clients whose buffer is full
// are disconnected; they will resynchronise by polling.
func (h *Hub) Send(userID uint, ev Event) {
	h.mu.RLock()
	room := h.clients[userID]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.egress <- ev:
		case <-c.done:
		default:
			h.logger.Warn("stream egress full, dropping client",
				zap.String("client_id", c.ID),
				zap.Uint("user_id", userID),
			)
			c.Close()
		}
	}
}

// Connected reports how many streams userID has open.
func (h *Hub) Connected(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Stop() {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, room := range h.clients {
		for _, c := range room {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
