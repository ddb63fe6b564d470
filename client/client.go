package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	apiError "github.com/techagentng/clubhub/errors"
	"github.com/techagentng/clubhub/models"
)

// Client talks to the messaging routes of a clubhub server.
type Client struct {
	http *resty.Client
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
	Status  int             `json:"status"`
}

func New(baseURL, token string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: r}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var env envelope
	req := c.http.R().SetContext(ctx).SetResult(&env).SetError(&env)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apiError.Transient("%s %s: %v", method, path, err)
	}
	if resp.IsError() {
		msg := env.Message
		if e := decodeError(env.Errors); e != "" {
			msg = e
		}
		if msg == "" {
			msg = resp.Status()
		}
		return apiError.New(msg, resp.StatusCode())
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apiError.New(fmt.Sprintf("decode %s: %v", path, err), http.StatusInternalServerError)
	}
	return nil
}

func decodeError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var e apiError.Error
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
		return e.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func threadPath(t models.Thread) string {
	switch t.Kind {
	case models.ThreadCategory:
		return fmt.Sprintf("/api/v1/messages/category/%d", t.ID)
	case models.ThreadTeam:
		return fmt.Sprintf("/api/v1/messages/team/%d", t.ID)
	}
	return fmt.Sprintf("/api/v1/messages/%d", t.ID)
}

func (c *Client) Contacts(ctx context.Context) (*models.Contacts, error) {
	var contacts models.Contacts
	if err := c.do(ctx, resty.MethodGet, "/api/v1/messages/contacts", nil, &contacts); err != nil {
		return nil, err
	}
	return &contacts, nil
}

// Thread fetches the whole thread. Fetching a direct thread marks it read.
func (c *Client) Thread(ctx context.Context, t models.Thread) ([]models.Message, error) {
	return c.ThreadAfter(ctx, t, 0)
}

func (c *Client) ThreadAfter(ctx context.Context, t models.Thread, afterID uint) ([]models.Message, error) {
	return c.ThreadPage(ctx, t, afterID, 0)
}

// ThreadPage fetches at most limit messages newer than afterID. A zero limit
// fetches everything.
func (c *Client) ThreadPage(ctx context.Context, t models.Thread, afterID uint, limit int) ([]models.Message, error) {
	query := url.Values{}
	if afterID > 0 {
		query.Set("after", strconv.FormatUint(uint64(afterID), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := threadPath(t)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var messages []models.Message
	if err := c.do(ctx, resty.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) Send(ctx context.Context, t models.Thread, content string) (*models.Message, error) {
	var (
		path string
		body interface{}
	)
	if t.Kind == models.ThreadDirect {
		path = "/api/v1/messages"
		body = models.SendMessageRequest{ReceiverID: t.ID, Content: content}
	} else {
		path = threadPath(t)
		body = models.BroadcastRequest{Content: content}
	}
	var msg models.Message
	if err := c.do(ctx, resty.MethodPost, path, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) UnreadPerSender(ctx context.Context) (map[uint]int64, error) {
	unread := map[uint]int64{}
	if err := c.do(ctx, resty.MethodGet, "/api/v1/messages/unread-per-sender", nil, &unread); err != nil {
		return nil, err
	}
	return unread, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, resty.MethodGet, "/api/v1/messages/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) BroadcastUnread(ctx context.Context) (*models.BroadcastUnread, error) {
	var out models.BroadcastUnread
	if err := c.do(ctx, resty.MethodGet, "/api/v1/messages/unread-broadcast", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	if err := c.do(ctx, resty.MethodGet, "/api/v1/messages/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
