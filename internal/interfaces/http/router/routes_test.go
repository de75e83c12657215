package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/internal/interfaces/http/handler"
)

func testHandlers() Handlers {
	return Handlers{
		Health:       handler.NewHealthHandler("crm", "test", nil),
		Auth:         handler.NewAuthHandler(nil),
		Notification: handler.NewNotificationHandler(nil),
		Chatbot:      handler.NewChatbotHandler(nil),
		Record:       handler.NewRecordHandler(nil),
		CRM:          handler.NewCRMHandler(nil, nil),
		Dashboard:    handler.NewDashboardHandler(nil),
	}
}

func TestAPIGroups_RouteTable(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).Register(APIGroups(testHandlers(), Guards{})...).Setup()

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /api/v1/health",
		"GET /api/v1/health/ready",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/refresh",
		"POST /api/v1/auth/logout",
		"GET /api/v1/auth/me",
		"POST /api/v1/auth/users",
		"PUT /api/v1/auth/users/:id/role",
		"DELETE /api/v1/auth/users/:id",
		"GET /api/v1/notifications/unread-count",
		"GET /api/v1/notifications/priorities",
		"POST /api/v1/notifications",
		"GET /api/v1/notifications/panel",
		"POST /api/v1/notifications/panel/open",
		"PUT /api/v1/notifications/panel/filter",
		"POST /api/v1/notifications/panel/close",
		"POST /api/v1/chatbot/open",
		"POST /api/v1/chatbot/close",
		"GET /api/v1/chatbot/messages",
		"POST /api/v1/chatbot/messages",
		"POST /api/v1/chatbot/context/refresh",
		"GET /api/v1/records/:resource",
		"POST /api/v1/records/:resource",
		"GET /api/v1/records/:resource/:id",
		"PUT /api/v1/records/:resource/:id",
		"DELETE /api/v1/records/:resource/:id",
		"GET /api/v1/crm/interactions",
		"POST /api/v1/crm/interactions/analyze",
		"POST /api/v1/crm/interactions/:id/analyze",
		"GET /api/v1/crm/customers/:id/contacts",
		"GET /api/v1/crm/contacts/:id/interactions",
		"GET /api/v1/crm/users",
		"GET /api/v1/dashboard/summary",
		"GET /api/v1/dashboard/counts",
		"GET /api/v1/dashboard/customer-risk",
		"GET /api/v1/dashboard/sentiment",
		"GET /api/v1/dashboard/sentiment-trends",
		"GET /api/v1/dashboard/recent-reviews",
		"GET /api/v1/dashboard/revenue",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
	assert.Len(t, engine.Routes(), len(expected))
}

func TestAPIGroups_Guards(t *testing.T) {
	deny := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTeapot)
	}

	engine := gin.New()
	NewRouter(engine).
		Register(APIGroups(testHandlers(), Guards{Admin: deny, ChatSend: deny})...).
		Setup()

	guarded := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/auth/users"},
		{"PUT", "/api/v1/auth/users/u1/role"},
		{"DELETE", "/api/v1/auth/users/u1"},
		{"POST", "/api/v1/notifications"},
		{"POST", "/api/v1/chatbot/messages"},
	}
	for _, tt := range guarded {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		require.Equal(t, http.StatusTeapot, w.Code, "%s %s", tt.method, tt.path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
