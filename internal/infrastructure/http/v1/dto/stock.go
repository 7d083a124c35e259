package dto

import (
	"time"

	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
	"stockcost/internal/domain/registers/stock"
)

// StockBalancesResponse lists a product's balances with their total.
type StockBalancesResponse struct {
	ProductID id.ID                 `json:"productId"`
	Total     types.Quantity        `json:"total"`
	Balances  []entity.StockBalance `json:"balances"`
}

// NewStockBalancesResponse sums balances into a response.
func NewStockBalancesResponse(productID id.ID, balances []entity.StockBalance) StockBalancesResponse {
	total := types.Zero()
	for _, b := range balances {
		total = total.Add(b.Quantity)
	}
	if balances == nil {
		balances = []entity.StockBalance{}
	}
	return StockBalancesResponse{ProductID: productID, Total: total, Balances: balances}
}

// MovementsQuery holds the parameters of GET /registers/stock/movements.
type MovementsQuery struct {
	ProductID   string     `form:"productId" binding:"required"`
	WarehouseID string     `form:"warehouseId"`
	Direction   string     `form:"direction" binding:"omitempty,oneof=IN OUT"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit       int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a movement filter.
func (q MovementsQuery) ToFilter() (id.ID, stock.MovementFilter, error) {
	productID, err := ParseID("productId", q.ProductID)
	if err != nil {
		return productID, stock.MovementFilter{}, err
	}
	f := stock.MovementFilter{
		FromDate: q.From,
		ToDate:   q.To,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if f.WarehouseID, err = ParseOptionalID("warehouseId", q.WarehouseID); err != nil {
		return productID, f, err
	}
	if q.Direction != "" {
		d := entity.Direction(q.Direction)
		f.Direction = &d
	}
	return productID, f, nil
}
