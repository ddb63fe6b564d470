package models

import "time"

// ReadMarker is the per-viewer watermark of a broadcast thread: everything
// up to LastReadMessageID has been seen.
type ReadMarker struct {
	UserID            uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ThreadKind        ThreadKind `gorm:"primaryKey;type:varchar(16)" json:"thread_kind"`
	ThreadID          uint       `gorm:"primaryKey;autoIncrement:false" json:"thread_id"`
	LastReadMessageID uint       `gorm:"not null;default:0" json:"last_read_message_id"`
	LastReadAt        time.Time  `json:"last_read_at"`
}

// BroadcastUnread holds unread counts of broadcast threads keyed by
// category or team id. Zero counts are omitted.
type BroadcastUnread struct {
	Categories map[uint]int64 `json:"categories"`
	Teams      map[uint]int64 `json:"teams"`
}

// DeviceToken is a push token registered by a user's device.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

type DeviceTokenRequest struct {
	Token string `json:"token" binding:"required" conform:"trim"`
}
