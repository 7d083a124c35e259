package handlers

import (
	"github.com/gin-gonic/gin"

	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler handles HTTP requests for purchase orders.
type PurchaseOrderHandler struct {
	*BaseHandler
	service *purchase_order.Service
}

// NewPurchaseOrderHandler creates a new purchase order handler.
func NewPurchaseOrderHandler(base *BaseHandler, service *purchase_order.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, service: service}
}

// Create handles POST /document/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req purchase_order.CreateInput
	if !h.BindJSON(c, &req) {
		return
	}

	po, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, po)
}

// Get handles GET /document/purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	poID, ok := h.PathID(c)
	if !ok {
		return
	}

	po, err := h.service.Get(c.Request.Context(), poID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, po)
}

// List handles GET /document/purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Cancel handles POST /document/purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	poID, ok := h.PathID(c)
	if !ok {
		return
	}

	po, err := h.service.Cancel(c.Request.Context(), poID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, po)
}
