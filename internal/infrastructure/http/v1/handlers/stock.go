package handlers

import (
	"github.com/gin-gonic/gin"

	"stockcost/internal/domain/registers/stock"
	"stockcost/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock register.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock register handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// GetBalances handles GET /registers/stock/balances?productId=
func (h *StockHandler) GetBalances(c *gin.Context) {
	productID, err := dto.ParseID("productId", c.Query("productId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	balances, err := h.service.Balances(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewStockBalancesResponse(productID, balances))
}

// GetMovements handles GET /registers/stock/movements?productId=
func (h *StockHandler) GetMovements(c *gin.Context) {
	var q dto.MovementsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	productID, filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.service.History(c.Request.Context(), productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": movements})
}

// Adjust handles POST /registers/stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	var req stock.AdjustInput
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Adjust(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}
