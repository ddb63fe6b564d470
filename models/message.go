package models

import (
	"strings"
	"time"

	apiError "github.com/techagentng/clubhub/errors"
)

// Message is immutable once stored, except for ReadAt on direct messages.
// Exactly one of ReceiverID, CategoryID and TeamID is set.
type Message struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ClubID     uint       `gorm:"index;not null" json:"club_id"`
	SenderID   uint       `gorm:"index;not null" json:"sender_id"`
	Sender     *Sender    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReceiverID *uint      `gorm:"index" json:"receiver_id"`
	CategoryID *uint      `gorm:"index" json:"category_id"`
	TeamID     *uint      `gorm:"index" json:"team_id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	ReadAt     *time.Time `json:"read_at"`
}

// Sender is what thread readers see of a message author.
type Sender struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Fullname string `json:"fullname"`
	Role     Role   `json:"role"`
}

func (Sender) TableName() string { return "users" }

// Validate checks that exactly one address is set and content is not blank.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Content) == "" {
		return apiError.Validation("message content cannot be empty")
	}
	if m.SenderID == 0 {
		return apiError.Validation("message sender is required")
	}
	set := 0
	for _, p := range []*uint{m.ReceiverID, m.CategoryID, m.TeamID} {
		if p != nil {
			set++
		}
	}
	if set != 1 {
		return apiError.Validation("message must be addressed to exactly one of receiver, category or team")
	}
	return nil
}

// Thread returns the conversation the message belongs to, seen from viewerID.
func (m *Message) Thread(viewerID uint) Thread {
	switch {
	case m.CategoryID != nil:
		return CategoryThread(*m.CategoryID)
	case m.TeamID != nil:
		return TeamThread(*m.TeamID)
	case m.SenderID == viewerID && m.ReceiverID != nil:
		return DirectThread(*m.ReceiverID)
	default:
		return DirectThread(m.SenderID)
	}
}

// Conversation is the last-message summary of one direct counterpart.
type Conversation struct {
	Counterpart Contact  `json:"counterpart"`
	LastMessage *Message `json:"last_message"`
	UnreadCount int64    `json:"unread_count"`
}

// SendMessageRequest is the body of POST /messages.
type SendMessageRequest struct {
	ReceiverID uint   `json:"receiverId" binding:"required"`
	Content    string `json:"content" conform:"trim"`
}

// BroadcastRequest is the body of POST /messages/category/:id and /messages/team/:id.
type BroadcastRequest struct {
	Content string `json:"content" conform:"trim"`
}

// MaxPageSize bounds MessageQuery.Limit on thread reads.
const MaxPageSize = 500

// MessageQuery is the store query a thread resolves to. Results are always
// ordered by created_at, then id.
type MessageQuery struct {
	ClubID   uint
	ViewerID uint
	Thread   Thread
	// AfterID restricts the result to messages with a larger id.
	AfterID uint
	// Limit caps the result; zero means the whole thread.
	Limit int
}
