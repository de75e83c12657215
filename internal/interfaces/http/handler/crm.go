package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/crm/backend/internal/application/crm"
)

// CRMHandler serves the typed CRM listings and review classification
type CRMHandler struct {
	BaseHandler
	records  *crm.RecordService
	analysis *crm.AnalysisService
}

// NewCRMHandler creates a new CRM handler
func NewCRMHandler(records *crm.RecordService, analysis *crm.AnalysisService) *CRMHandler {
	return &CRMHandler{records: records, analysis: analysis}
}

// Interactions lists interactions whose notes match search, newest first
// GET /crm/interactions?search=
func (h *CRMHandler) Interactions(c *gin.Context) {
	views, err := h.records.Interactions(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// ContactsOfCustomer lists the contacts linked to a customer
// GET /crm/customers/:id/contacts
func (h *CRMHandler) ContactsOfCustomer(c *gin.Context) {
	views, err := h.records.ContactsOfCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// InteractionsOfContact lists the interactions of a contact
// GET /crm/contacts/:id/interactions
func (h *CRMHandler) InteractionsOfContact(c *gin.Context) {
	views, err := h.records.InteractionsOfContact(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// Users lists the user directory
// GET /crm/users
func (h *CRMHandler) Users(c *gin.Context) {
	views, err := h.records.Users(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// AnalyzeInteraction classifies one interaction
// POST /crm/interactions/:id/analyze
func (h *CRMHandler) AnalyzeInteraction(c *gin.Context) {
	view, err := h.analysis.AnalyzeInteraction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// AnalyzePending classifies every interaction that has no classification yet
// POST /crm/interactions/analyze
func (h *CRMHandler) AnalyzePending(c *gin.Context) {
	report, err := h.analysis.AnalyzePending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
