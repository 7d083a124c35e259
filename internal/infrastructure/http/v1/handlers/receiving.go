package handlers

import (
	"github.com/gin-gonic/gin"

	"stockcost/internal/domain/documents/receiving"
	"stockcost/internal/infrastructure/http/v1/dto"
)

// ReceivingHandler handles HTTP requests for receiving vouchers.
type ReceivingHandler struct {
	*BaseHandler
	service *receiving.Service
}

// NewReceivingHandler creates a new receiving handler.
func NewReceivingHandler(base *BaseHandler, service *receiving.Service) *ReceivingHandler {
	return &ReceivingHandler{BaseHandler: base, service: service}
}

// Receive handles POST /document/receiving
func (h *ReceivingHandler) Receive(c *gin.Context) {
	var req receiving.ReceiveInput
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Receive(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// ReceiveStock handles POST /document/receiving/receive-stock
func (h *ReceivingHandler) ReceiveStock(c *gin.Context) {
	var req receiving.ReceiveStockInput
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.ReceiveStock(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /document/receiving/:id
func (h *ReceivingHandler) Get(c *gin.Context) {
	voucherID, ok := h.PathID(c)
	if !ok {
		return
	}

	v, err := h.service.Get(c.Request.Context(), voucherID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// List handles GET /document/receiving
func (h *ReceivingHandler) List(c *gin.Context) {
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

// Cancel handles POST /document/receiving/:id/cancel
func (h *ReceivingHandler) Cancel(c *gin.Context) {
	voucherID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.CancelReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.CancelReceipt(c.Request.Context(), voucherID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
