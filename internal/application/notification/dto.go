package notification

import (
	"time"

	"github.com/crm/backend/internal/domain/notification"
)

// NotificationResponse is one row of the panel
type NotificationResponse struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Body     string             `json:"body"`
	Priority string             `json:"priority"`
	Style    notification.Style `json:"style"`
	Time     *time.Time         `json:"time"`
	Unread   bool               `json:"unread"`
}

// PanelView is the rendered notification drawer
type PanelView struct {
	Open          bool                   `json:"open"`
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
	LastReadTime  *time.Time             `json:"last_read_time"`
	MinPriority   string                 `json:"min_priority"`
	Options       []notification.Option  `json:"options"`
}

// UnreadResult is the badge value
type UnreadResult struct {
	UnreadCount  int        `json:"unread_count"`
	LastReadTime *time.Time `json:"last_read_time"`
}

// PublishInput creates a notification
type PublishInput struct {
	Title    string     `json:"title" binding:"required,max=200"`
	Body     string     `json:"body" binding:"max=2000"`
	Priority string     `json:"priority" binding:"required"`
	Time     *time.Time `json:"time"`
}

func toResponse(n notification.Notification, marker notification.ReadMarker) NotificationResponse {
	priority := n.RawPriority
	if n.Priority.IsKnown() {
		priority = n.Priority.String()
	}
	resp := NotificationResponse{
		ID:       n.ID,
		Title:    n.Title,
		Body:     n.Body,
		Priority: priority,
		Style:    n.Priority.Style(),
		Unread:   marker.IsUnread(n),
	}
	if !n.Time.IsZero() {
		t := n.Time
		resp.Time = &t
	}
	return resp
}
