// Package receiving provides the ReceivingVoucher document and the
// orchestration of stock receipts and their cancellation.
package receiving

import (
	"time"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/types"
)

// Status of a receiving voucher.
type Status string

const (
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// Voucher records goods received against one purchase order.
// It is immutable after creation except for the cancel transition.
type Voucher struct {
	entity.Document

	WarehouseID     id.ID  `db:"warehouse_id" json:"warehouseId"`
	PurchaseOrderID id.ID  `db:"purchase_order_id" json:"purchaseOrderId"`
	Status          Status `db:"status" json:"status"`

	// TotalAmount payable to the supplier, currency precision.
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`

	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelReason string     `db:"cancel_reason" json:"cancelReason,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is one received line.
type Item struct {
	ID                  id.ID  `db:"id" json:"id"`
	VoucherID           id.ID  `db:"voucher_id" json:"voucherId"`
	LineNo              int    `db:"line_no" json:"lineNo"`
	ProductID           id.ID  `db:"product_id" json:"productId"`
	PurchaseOrderLineID id.ID  `db:"purchase_order_line_id" json:"purchaseOrderLineId"`
	UOM                 string `db:"uom" json:"uom"`

	// ConversionFactor of UOM at the time of receipt.
	ConversionFactor decimal.Decimal `db:"conversion_factor" json:"conversionFactor"`

	// OrderedQuantity and OutstandingQuantity are in the order line's unit,
	// OutstandingQuantity as it was before this receipt.
	OrderedQuantity     decimal.Decimal `db:"ordered_quantity" json:"orderedQuantity"`
	OutstandingQuantity decimal.Decimal `db:"outstanding_quantity" json:"outstandingQuantity"`

	// ReceivedQuantity in UOM; LineQuantity is the same amount in the order line's unit.
	ReceivedQuantity decimal.Decimal `db:"received_quantity" json:"receivedQuantity"`
	LineQuantity     decimal.Decimal `db:"line_quantity" json:"lineQuantity"`

	// BaseQuantity is what entered inventory.
	BaseQuantity decimal.Decimal `db:"base_quantity" json:"baseQuantity"`

	UnitPrice    decimal.Decimal `db:"unit_price" json:"unitPrice"`
	BaseUnitCost decimal.Decimal `db:"base_unit_cost" json:"baseUnitCost"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`

	// QuantityVariance is outstanding minus received, in the order line's unit.
	// Negative means over-receipt.
	QuantityVariance decimal.Decimal `db:"quantity_variance" json:"quantityVariance"`
	// AmountVariance values QuantityVariance at the ordered unit price.
	AmountVariance decimal.Decimal `db:"amount_variance" json:"amountVariance"`
}

// NewVoucher creates an empty voucher for a warehouse.
func NewVoucher(warehouseID id.ID) *Voucher {
	return &Voucher{
		Document:    entity.NewDocument(),
		WarehouseID: warehouseID,
		Status:      StatusComplete,
		TotalAmount: decimal.Zero,
	}
}

// AddItem appends an item and updates the voucher total.
func (v *Voucher) AddItem(it Item) *Item {
	it.ID = id.New()
	it.VoucherID = v.ID
	it.LineNo = len(v.Items) + 1
	it.Amount = types.RoundMoney(it.Amount)
	it.AmountVariance = types.RoundMoney(it.AmountVariance)
	v.Items = append(v.Items, it)
	v.TotalAmount = v.TotalAmount.Add(it.Amount)
	return &v.Items[len(v.Items)-1]
}

// Cancel moves the voucher to cancelled. Cancelling twice is an error.
func (v *Voucher) Cancel(reason string, at time.Time) error {
	if v.Status == StatusCancelled {
		return apperror.NewAlreadyCancelled("receiving voucher", v.ID.String())
	}
	at = at.UTC()
	v.Status = StatusCancelled
	v.CancelReason = reason
	v.CancelledAt = &at
	v.Touch()
	return nil
}

// IsCancelled reports whether the voucher has been cancelled.
func (v *Voucher) IsCancelled() bool {
	return v.Status == StatusCancelled
}
