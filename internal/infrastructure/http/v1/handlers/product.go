package handlers

import (
	"github.com/gin-gonic/gin"

	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Create handles POST /catalog/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req product.CreateInput
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// Get handles GET /catalog/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List handles GET /catalog/products
func (h *ProductHandler) List(c *gin.Context) {
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

// AddUOM handles POST /catalog/products/:id/uoms
func (h *ProductHandler) AddUOM(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req product.UOMInput
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.AddUOM(c.Request.Context(), productID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// Convert handles GET /catalog/products/:id/convert?qty=&from=&to=
func (h *ProductHandler) Convert(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}
	var q dto.ConvertQuery
	if !h.BindQuery(c, &q) {
		return
	}
	qty, err := q.ParsedQuantity()
	if err != nil {
		h.Error(c, err)
		return
	}

	conv, err := h.service.Convert(c.Request.Context(), productID, qty, q.From, q.To)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, conv)
}
