package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationResponse is the API shape of a notification
type NotificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	Event     string          `json:"event"`
	Title     string          `json:"title"`
	Body      string          `json:"body,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnreadCountResponse for GET /notifications/unread-count
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// NotificationResponseFromEntity converts entity to response
func NotificationResponseFromEntity(n *Notification) *NotificationResponse {
	resp := &NotificationResponse{
		ID:        n.ID,
		Event:     string(n.Event),
		Title:     n.Title,
		Data:      n.Data,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Body.Valid {
		resp.Body = n.Body.String
	}
	if n.ReadAt.Valid {
		t := n.ReadAt.Time
		resp.ReadAt = &t
	}
	return resp
}
