package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/crm/backend/internal/application/chatbot"
	"github.com/crm/backend/internal/domain/chat"
)

// SendMessageRequest carries one question to the chatbot
type SendMessageRequest struct {
	Question string `json:"question" binding:"required,max=2000"`
}

// SendMessageResponse holds the question and the answer appended by a send
type SendMessageResponse struct {
	Messages []chat.Message `json:"messages"`
}

// ChatbotHandler serves the chat widget
type ChatbotHandler struct {
	BaseHandler
	service *chatbot.Service
}

// NewChatbotHandler creates a new chatbot handler
func NewChatbotHandler(service *chatbot.Service) *ChatbotHandler {
	return &ChatbotHandler{service: service}
}

// Open shows the widget and warms the context
// POST /chatbot/open
func (h *ChatbotHandler) Open(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.service.Open(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Close hides the widget
// POST /chatbot/close
func (h *ChatbotHandler) Close(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.service.Close(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Transcript returns the messages of the current session
// GET /chatbot/messages
func (h *ChatbotHandler) Transcript(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.service.Transcript(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Send asks a question. Upstream failures come back as a bot message.
// POST /chatbot/messages
func (h *ChatbotHandler) Send(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	messages, err := h.service.Send(c.Request.Context(), userID, req.Question)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SendMessageResponse{Messages: messages})
}

// RefreshContext reassembles the chatbot context
// POST /chatbot/context/refresh
func (h *ChatbotHandler) RefreshContext(c *gin.Context) {
	info, err := h.service.RefreshContext(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}
