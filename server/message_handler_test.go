package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/clubhub/config"
	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/db/dbtest"
	"github.com/techagentng/clubhub/hub"
	"github.com/techagentng/clubhub/models"
	"github.com/techagentng/clubhub/services"
	"github.com/techagentng/clubhub/services/jwt"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type testServer struct {
	handler http.Handler
	club    *dbtest.Club
}

func newTestServer(t *testing.T, sendRate uint) *testServer {
	t.Setenv("GIN_MODE", "test")
	gin.SetMode(gin.TestMode)

	g := dbtest.Open(t)
	f := dbtest.Seed(t, g)
	logger := zap.NewNop()

	directoryRepo := db.NewDirectoryRepo(g, logger)
	messageRepo := db.NewMessageRepo(g, logger)
	readMarkerRepo := db.NewReadMarkerRepo(g, logger)
	streamHub := hub.NewHub(logger)
	t.Cleanup(streamHub.Stop)

	notifications := services.NewNotificationService(streamHub, nil, db.NewDeviceRepo(g), logger)
	contacts := services.NewContactService(directoryRepo, logger)
	unread := services.NewUnreadService(messageRepo, readMarkerRepo, contacts, notifications, logger)
	threads := services.NewThreadService(messageRepo, directoryRepo, contacts, unread, notifications, logger)

	s := &Server{
		Config:              &config.Config{JWTSecret: testSecret, SendRatePerMinute: sendRate},
		Logger:              logger,
		DirectoryRepository: directoryRepo,
		ContactService:      contacts,
		ThreadService:       threads,
		UnreadService:       unread,
		NotificationService: notifications,
		Hub:                 streamHub,
	}
	return &testServer{handler: s.Handler(), club: f}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
	Status  int             `json:"status"`
}

func (ts *testServer) do(t *testing.T, user *models.User, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := jwt.GenerateToken(user.ID, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func TestRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, 30)

	rr, _ := ts.do(t, nil, http.MethodGet, "/api/v1/messages/contacts", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/contacts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = ts.do(t, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetContacts(t *testing.T) {
	ts := newTestServer(t, 30)
	f := ts.club

	rr, env := ts.do(t, f.Sam, http.MethodGet, "/api/v1/messages/contacts", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var contacts models.Contacts
	require.NoError(t, json.Unmarshal(env.Data, &contacts))
	require.Len(t, contacts.Coaches, 1)
	assert.Equal(t, "Carla", contacts.Coaches[0].Name)
	require.Len(t, contacts.Sportifs, 1)
	assert.Equal(t, "Sara", contacts.Sportifs[0].Name)
	assert.Equal(t, "U13", contacts.Sportifs[0].CategoryName)
}

func TestBroadcastRoundTrip(t *testing.T) {
	ts := newTestServer(t, 30)
	f := ts.club
	path := fmt.Sprintf("/api/v1/messages/category/%d", f.U13.ID)

	rr, env := ts.do(t, f.Carla, http.MethodPost, path, gin.H{"content": "  Bonjour "})
	require.Equal(t, http.StatusCreated, rr.Code, string(env.Errors))
	var sent models.Message
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, "Bonjour", sent.Content)

	rr, env = ts.do(t, f.Sara, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var messages []models.Message
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, sent.ID, messages[0].ID)
	require.NotNil(t, messages[0].Sender)
	assert.Equal(t, "Carla", messages[0].Sender.Fullname)
	assert.Equal(t, models.RoleCoach, messages[0].Sender.Role)
	assert.NotContains(t, string(env.Data), "email")
	assert.NotContains(t, string(env.Data), "coached_categories")

	rr, env = ts.do(t, f.Sara, http.MethodGet, fmt.Sprintf("%s?after=%d", path, sent.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestReadThreadLimit(t *testing.T) {
	ts := newTestServer(t, 30)
	f := ts.club
	path := fmt.Sprintf("/api/v1/messages/team/%d", f.U13A.ID)

	for _, content := range []string{"first", "second", "third"} {
		rr, _ := ts.do(t, f.Carla, http.MethodPost, path, gin.H{"content": content})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr, env := ts.do(t, f.Sam, http.MethodGet, path+"?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var messages []models.Message
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)

	for _, bad := range []string{"0", "-1", "many", "501"} {
		rr, _ = ts.do(t, f.Sam, http.MethodGet, path+"?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
}

func TestSportifBroadcastIsForbidden(t *testing.T) {
	ts := newTestServer(t, 30)
	f := ts.club

	rr, env := ts.do(t, f.Sam, http.MethodPost, fmt.Sprintf("/api/v1/messages/team/%d", f.U13A.ID), gin.H{"content": "hi all"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, string(env.Errors), "authorization")
}

func TestSendValidation(t *testing.T) {
	ts := newTestServer(t, 30)
	f := ts.club

	rr, _ := ts.do(t, f.Sam, http.MethodPost, "/api/v1/messages", gin.H{"receiverId": f.Carla.ID, "content": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env := ts.do(t, f.Sam, http.MethodPost, "/api/v1/messages", gin.H{"content": "hello"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, string(env.Errors), "receiverID is required")

	rr, _ = ts.do(t, f.Sam, http.MethodGet, "/api/v1/messages/category/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = ts.do(t, f.Sam, http.MethodGet, fmt.Sprintf("/api/v1/messages/%d?after=x", f.Carla.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = ts.do(t, f.Ada, http.MethodGet, "/api/v1/messages/team/9999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDirectUnreadOverHTTP(t *testing.T) {
	ts := newTestServer(t, 30)
	f := ts.club

	rr, _ := ts.do(t, f.Ada, http.MethodPost, "/api/v1/messages", gin.H{"receiverId": f.Sam.ID, "content": "Welcome"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := ts.do(t, f.Sam, http.MethodGet, "/api/v1/messages/unread-per-sender", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"%d": 1}`, f.Ada.ID), string(env.Data))

	rr, env = ts.do(t, f.Sam, http.MethodGet, "/api/v1/messages/unread-count", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count": 1}`, string(env.Data))

	rr, _ = ts.do(t, f.Sam, http.MethodGet, fmt.Sprintf("/api/v1/messages/%d", f.Ada.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env = ts.do(t, f.Sam, http.MethodGet, "/api/v1/messages/unread-per-sender", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{}`, string(env.Data))

	rr, env = ts.do(t, f.Sam, http.MethodGet, "/api/v1/messages/conversations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var conversations []models.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conversations))
	require.Len(t, conversations, 1)
	assert.Equal(t, "Ada", conversations[0].Counterpart.Name)
	assert.Zero(t, conversations[0].UnreadCount)
}

func TestBroadcastUnreadOverHTTP(t *testing.T) {
	ts := newTestServer(t, 30)
	f := ts.club

	rr, _ := ts.do(t, f.Cedric, http.MethodPost, fmt.Sprintf("/api/v1/messages/team/%d", f.U15A.ID), gin.H{"content": "Kickoff 10am"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := ts.do(t, f.Paul, http.MethodGet, "/api/v1/messages/unread-broadcast", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var unread models.BroadcastUnread
	require.NoError(t, json.Unmarshal(env.Data, &unread))
	assert.Equal(t, map[uint]int64{f.U15A.ID: 1}, unread.Teams)
	assert.Empty(t, unread.Categories)
}

func TestSendIsRateLimited(t *testing.T) {
	ts := newTestServer(t, 2)
	f := ts.club
	body := gin.H{"receiverId": f.Carla.ID, "content": "ping"}

	for i := 0; i < 2; i++ {
		rr, _ := ts.do(t, f.Sam, http.MethodPost, "/api/v1/messages", body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr, _ := ts.do(t, f.Sam, http.MethodPost, "/api/v1/messages", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr, _ = ts.do(t, f.Sara, http.MethodPost, "/api/v1/messages", body)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestRegisterDevice(t *testing.T) {
	ts := newTestServer(t, 30)

	rr, _ := ts.do(t, ts.club.Sam, http.MethodPost, "/api/v1/messages/device-token", gin.H{"token": " fcm-token "})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = ts.do(t, ts.club.Sam, http.MethodPost, "/api/v1/messages/device-token", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
