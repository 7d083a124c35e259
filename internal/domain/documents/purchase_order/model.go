// Package purchase_order provides the PurchaseOrder document: ordered lines
// and the quantities received against them.
package purchase_order

import (
	"context"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
)

// Status of a purchase order. LineStatus uses the same values minus cancelled.
type Status string

const (
	StatusOrdered           Status = "ordered"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

// PurchaseOrder is an order to a supplier.
type PurchaseOrder struct {
	entity.Document

	// SupplierID references the supplier in the purchasing system.
	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// WarehouseID is the default destination of the goods.
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Status Status `db:"status" json:"status"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one ordered product. Quantity and ReceivedQuantity are in UOM.
//
// Receipts are booked in base units against ReceivedBase; ReceivedQuantity is
// derived from it and only rounded for display, so completion never drifts
// when goods arrive in a different unit than they were ordered in.
type Line struct {
	ID               id.ID           `db:"id" json:"id"`
	OrderID          id.ID           `db:"order_id" json:"orderId"`
	LineNo           int             `db:"line_no" json:"lineNo"`
	ProductID        id.ID           `db:"product_id" json:"productId"`
	UOM              string          `db:"uom" json:"uom"`
	ConversionFactor decimal.Decimal `db:"conversion_factor" json:"conversionFactor"`
	Quantity         decimal.Decimal `db:"quantity" json:"quantity"`
	ReceivedQuantity decimal.Decimal `db:"received_quantity" json:"receivedQuantity"`
	ReceivedBase     decimal.Decimal `db:"received_base" json:"receivedBase"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Status           Status          `db:"status" json:"status"`
}

// NewPurchaseOrder creates an empty order.
func NewPurchaseOrder(supplierID, warehouseID id.ID) *PurchaseOrder {
	return &PurchaseOrder{
		Document:    entity.NewDocument(),
		SupplierID:  supplierID,
		WarehouseID: warehouseID,
		Status:      StatusOrdered,
	}
}

// AddLine appends an ordered line. factor is the number of base units in one uom.
func (po *PurchaseOrder) AddLine(productID id.ID, uom string, factor, qty, unitPrice decimal.Decimal) *Line {
	po.Lines = append(po.Lines, Line{
		ID:               id.New(),
		OrderID:          po.ID,
		LineNo:           len(po.Lines) + 1,
		ProductID:        productID,
		UOM:              uom,
		ConversionFactor: factor,
		Quantity:         types.RoundQuantity(qty),
		ReceivedQuantity: decimal.Zero,
		ReceivedBase:     decimal.Zero,
		UnitPrice:        unitPrice,
		Status:           StatusOrdered,
	})
	return &po.Lines[len(po.Lines)-1]
}

// Validate checks the header and every line.
func (po *PurchaseOrder) Validate(ctx context.Context) error {
	if err := po.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(po.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if len(po.Lines) == 0 {
		return apperror.NewValidation("purchase order must have at least one line").
			WithDetail("field", "lines")
	}
	for i, l := range po.Lines {
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("line", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("line", i+1)
		}
		if l.UOM == "" {
			return apperror.NewValidation("uom is required").
				WithDetail("line", i+1)
		}
		if !l.ConversionFactor.IsPositive() {
			return apperror.NewValidation("conversion factor must be positive").
				WithDetail("line", i+1)
		}
	}
	return nil
}

// Line returns the line with the given id.
func (po *PurchaseOrder) Line(lineID id.ID) (*Line, bool) {
	for i := range po.Lines {
		if po.Lines[i].ID == lineID {
			return &po.Lines[i], true
		}
	}
	return nil, false
}

// CanReceive checks the order accepts receipts.
func (po *PurchaseOrder) CanReceive() error {
	switch po.Status {
	case StatusCancelled, StatusReceived:
		return apperror.NewInvalidState("purchase order does not accept receipts").
			WithDetail("purchase_order_id", po.ID.String()).
			WithDetail("status", string(po.Status))
	}
	return nil
}

// RefreshStatus derives the order status from its lines.
func (po *PurchaseOrder) RefreshStatus() {
	if po.Status == StatusCancelled {
		return
	}
	complete, touched := 0, false
	for i := range po.Lines {
		l := &po.Lines[i]
		l.refreshStatus()
		if l.Status == StatusReceived {
			complete++
		}
		if l.ReceivedBase.IsPositive() {
			touched = true
		}
	}

	switch {
	case len(po.Lines) > 0 && complete == len(po.Lines):
		po.Status = StatusReceived
	case touched:
		po.Status = StatusPartiallyReceived
	default:
		po.Status = StatusOrdered
	}
}

// Cancel closes an order that has not received anything yet.
func (po *PurchaseOrder) Cancel() error {
	if po.Status == StatusCancelled {
		return apperror.NewAlreadyCancelled("purchase order", po.ID.String())
	}
	for _, l := range po.Lines {
		if l.ReceivedBase.IsPositive() {
			return apperror.NewInvalidState("purchase order has receipts; cancel them first").
				WithDetail("purchase_order_id", po.ID.String())
		}
	}
	po.Status = StatusCancelled
	po.Touch()
	return nil
}

// OrderedBase is the ordered quantity in base units.
func (l *Line) OrderedBase() decimal.Decimal {
	return l.Quantity.Mul(l.ConversionFactor)
}

// OutstandingBase is the base quantity still to be received. Negative when over-received.
func (l *Line) OutstandingBase() decimal.Decimal {
	return l.OrderedBase().Sub(l.ReceivedBase)
}

// Outstanding is OutstandingBase in the line's unit, rounded for display.
func (l *Line) Outstanding() decimal.Decimal {
	return l.FromBase(l.OutstandingBase())
}

// IsComplete reports whether the ordered quantity has been received.
func (l *Line) IsComplete() bool {
	return types.AtLeast(l.ReceivedBase, l.OrderedBase())
}

// Receive books baseQty against the line.
func (l *Line) Receive(baseQty decimal.Decimal) error {
	if !baseQty.IsPositive() {
		return apperror.NewValidation("received quantity must be positive").
			WithDetail("line_id", l.ID.String())
	}
	if l.IsComplete() {
		return apperror.NewInvalidState("purchase order line is already fully received").
			WithDetail("line_id", l.ID.String())
	}
	l.setReceivedBase(l.ReceivedBase.Add(baseQty))
	return nil
}

// Unreceive removes a previously booked baseQty from the line.
func (l *Line) Unreceive(baseQty decimal.Decimal) error {
	if !types.AtLeast(l.ReceivedBase, baseQty) {
		return apperror.NewInvalidState("cannot unreceive more than was received").
			WithDetail("line_id", l.ID.String()).
			WithDetail("received", l.ReceivedBase.String()).
			WithDetail("requested", baseQty.String())
	}
	rest := l.ReceivedBase.Sub(baseQty)
	if rest.IsNegative() {
		rest = decimal.Zero
	}
	l.setReceivedBase(rest)
	return nil
}

// FromBase converts a base quantity into the line's unit, rounded for display.
func (l *Line) FromBase(baseQty decimal.Decimal) decimal.Decimal {
	if !l.ConversionFactor.IsPositive() {
		return types.RoundQuantity(baseQty)
	}
	return types.RoundQuantity(baseQty.Div(l.ConversionFactor))
}

func (l *Line) setReceivedBase(q decimal.Decimal) {
	l.ReceivedBase = types.RoundQuantity(q)
	l.ReceivedQuantity = l.FromBase(l.ReceivedBase)
	l.refreshStatus()
}

func (l *Line) refreshStatus() {
	switch {
	case l.IsComplete():
		l.Status = StatusReceived
	case l.ReceivedBase.IsPositive():
		l.Status = StatusPartiallyReceived
	default:
		l.Status = StatusOrdered
	}
}
