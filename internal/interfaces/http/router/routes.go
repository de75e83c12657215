package router

import (
	"github.com/gin-gonic/gin"

	"github.com/crm/backend/internal/interfaces/http/handler"
)

// Handlers groups the handlers served under the API prefix
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Notification *handler.NotificationHandler
	Chatbot      *handler.ChatbotHandler
	Record       *handler.RecordHandler
	CRM          *handler.CRMHandler
	Dashboard    *handler.DashboardHandler
}

// Guards are the per-route middleware of the API. Nil guards are skipped.
type Guards struct {
	// Admin restricts a route to administrators
	Admin gin.HandlerFunc
	// ChatSend throttles question submission
	ChatSend gin.HandlerFunc
}

func chain(guard gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	if guard == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{guard, h}
}

// APIGroups builds the domain groups of the CRM API
func APIGroups(h Handlers, g Guards) []RouteRegistrar {
	health := NewDomainGroup("health", "/health").
		GET("", h.Health.Health).
		GET("/ready", h.Health.Ready)

	auth := NewDomainGroup("auth", "/auth").
		POST("/login", h.Auth.Login).
		POST("/refresh", h.Auth.RefreshToken).
		POST("/logout", h.Auth.Logout).
		GET("/me", h.Auth.GetCurrentUser).
		POST("/users", chain(g.Admin, h.Auth.CreateUser)...).
		PUT("/users/:id/role", chain(g.Admin, h.Auth.SetUserRole)...).
		DELETE("/users/:id", chain(g.Admin, h.Auth.DeleteUser)...)

	notifications := NewDomainGroup("notifications", "/notifications").
		GET("/unread-count", h.Notification.UnreadCount).
		GET("/priorities", h.Notification.Priorities).
		POST("", chain(g.Admin, h.Notification.Publish)...)
	notifications.Group("panel", "/panel").
		GET("", h.Notification.GetPanel).
		POST("/open", h.Notification.OpenPanel).
		PUT("/filter", h.Notification.SetFilter).
		POST("/close", h.Notification.ClosePanel)

	chatbot := NewDomainGroup("chatbot", "/chatbot").
		POST("/open", h.Chatbot.Open).
		POST("/close", h.Chatbot.Close).
		GET("/messages", h.Chatbot.Transcript).
		POST("/messages", chain(g.ChatSend, h.Chatbot.Send)...).
		POST("/context/refresh", h.Chatbot.RefreshContext)

	records := NewDomainGroup("records", "/records/:resource").
		GET("", h.Record.List).
		POST("", h.Record.Create).
		GET("/:id", h.Record.Get).
		PUT("/:id", h.Record.Update).
		DELETE("/:id", h.Record.Delete)

	crm := NewDomainGroup("crm", "/crm").
		GET("/interactions", h.CRM.Interactions).
		POST("/interactions/analyze", h.CRM.AnalyzePending).
		POST("/interactions/:id/analyze", h.CRM.AnalyzeInteraction).
		GET("/customers/:id/contacts", h.CRM.ContactsOfCustomer).
		GET("/contacts/:id/interactions", h.CRM.InteractionsOfContact).
		GET("/users", h.CRM.Users)

	dashboard := NewDomainGroup("dashboard", "/dashboard").
		GET("/summary", h.Dashboard.Summary).
		GET("/counts", h.Dashboard.Counts).
		GET("/customer-risk", h.Dashboard.CustomerRisk).
		GET("/sentiment", h.Dashboard.Sentiment).
		GET("/sentiment-trends", h.Dashboard.SentimentTrends).
		GET("/recent-reviews", h.Dashboard.RecentReviews).
		GET("/revenue", h.Dashboard.Revenue)

	return []RouteRegistrar{health, auth, notifications, chatbot, records, crm, dashboard}
}
