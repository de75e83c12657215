package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/crm/backend/internal/application/notification"
	domain "github.com/crm/backend/internal/domain/notification"
)

// SetFilterRequest changes the minimum priority shown in the panel
type SetFilterRequest struct {
	MinPriority string `json:"min_priority" binding:"required"`
}

// NotificationHandler serves the notification badge and panel
type NotificationHandler struct {
	BaseHandler
	service *notification.Service
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service *notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// UnreadCount returns the badge value
// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	result, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// OpenPanel fetches the notifications and shows the panel
// POST /notifications/panel/open
func (h *NotificationHandler) OpenPanel(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.service.OpenPanel(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// GetPanel renders the open panel, optionally changing the filter
// GET /notifications/panel?min_priority=
func (h *NotificationHandler) GetPanel(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.service.PanelView(c.Request.Context(), userID, c.Query("min_priority"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SetFilter changes the minimum priority of the open panel
// PUT /notifications/panel/filter
func (h *NotificationHandler) SetFilter(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req SetFilterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if err := h.service.SetFilter(ctx, userID, req.MinPriority); err != nil {
		h.HandleError(c, err)
		return
	}
	view, err := h.service.PanelView(ctx, userID, "")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// ClosePanel hides the panel and marks everything shown as read
// POST /notifications/panel/close
func (h *NotificationHandler) ClosePanel(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	result, err := h.service.ClosePanel(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Priorities lists the filter choices
// GET /notifications/priorities
func (h *NotificationHandler) Priorities(c *gin.Context) {
	h.Success(c, domain.Options())
}

// Publish creates a notification. Admin only.
// POST /notifications
func (h *NotificationHandler) Publish(c *gin.Context) {
	var req notification.PublishInput
	if !h.bindJSON(c, &req) {
		return
	}
	created, err := h.service.Publish(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}
