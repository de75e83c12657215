package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/crm/backend/internal/application/crm"
)

// DashboardHandler serves the read-only dashboard widgets
type DashboardHandler struct {
	BaseHandler
	service *crm.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *crm.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary returns every widget at once
// GET /dashboard/summary
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Counts returns the record counts
// GET /dashboard/counts
func (h *DashboardHandler) Counts(c *gin.Context) {
	counts, err := h.service.Counts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counts)
}

// CustomerRisk returns the riskiest customers
// GET /dashboard/customer-risk?limit=
func (h *DashboardHandler) CustomerRisk(c *gin.Context) {
	limit, ok := queryInt(c, "limit", crm.DefaultRiskLimit)
	if !ok {
		h.BadRequest(c, "limit must be a positive integer")
		return
	}
	risk, err := h.service.CustomerRisk(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, risk)
}

// Sentiment returns the overall review sentiment
// GET /dashboard/sentiment
func (h *DashboardHandler) Sentiment(c *gin.Context) {
	counts, err := h.service.OverallSentiment(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counts)
}

// SentimentTrends returns per-date sentiment counts
// GET /dashboard/sentiment-trends
func (h *DashboardHandler) SentimentTrends(c *gin.Context) {
	trends, err := h.service.SentimentTrends(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trends)
}

// RecentReviews returns the latest classified interactions
// GET /dashboard/recent-reviews?limit=
func (h *DashboardHandler) RecentReviews(c *gin.Context) {
	limit, ok := queryInt(c, "limit", crm.DefaultReviewLimit)
	if !ok {
		h.BadRequest(c, "limit must be a positive integer")
		return
	}
	reviews, err := h.service.RecentReviews(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reviews)
}

// Revenue returns revenue totals by risk level
// GET /dashboard/revenue
func (h *DashboardHandler) Revenue(c *gin.Context) {
	summary, err := h.service.RevenueSummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
