package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/domain/document"
)

// RecordHandler serves generic CRUD over the CRM collections.
// The :resource path segment is one of customers, contacts, interaction or users.
type RecordHandler struct {
	BaseHandler
	service *crm.RecordService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(service *crm.RecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// List returns a page of records
// GET /records/:resource?search=&page=&page_size=
func (h *RecordHandler) List(c *gin.Context) {
	var q crm.ListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.service.List(c.Request.Context(), c.Param("resource"), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one record
// GET /records/:resource/:id
func (h *RecordHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("resource"), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Create stores a new record from a JSON object of fields
// POST /records/:resource
func (h *RecordHandler) Create(c *gin.Context) {
	var fields document.Fields
	if !h.bindJSON(c, &fields) {
		return
	}
	doc, err := h.service.Create(c.Request.Context(), c.Param("resource"), fields)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// Update merges the given fields into a record. A null value removes the field.
// PUT /records/:resource/:id
func (h *RecordHandler) Update(c *gin.Context) {
	var fields document.Fields
	if !h.bindJSON(c, &fields) {
		return
	}
	doc, err := h.service.Update(c.Request.Context(), c.Param("resource"), c.Param("id"), fields)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Delete removes a record
// DELETE /records/:resource/:id
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("resource"), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
