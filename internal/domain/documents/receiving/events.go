package receiving

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/id"
)

// Event types published to accounts payable.
const (
	EventVoucherPosted    = "ReceivingVoucherPosted"
	EventVoucherCancelled = "ReceivingVoucherCancelled"
)

// AggregateType of voucher events in the outbox.
const AggregateType = "ReceivingVoucher"

// Event announces a payable change. Amount is negative for cancellations.
type Event struct {
	Type            string          `json:"type"`
	VoucherID       id.ID           `json:"voucherId"`
	Number          string          `json:"number"`
	PurchaseOrderID id.ID           `json:"purchaseOrderId"`
	SupplierID      id.ID           `json:"supplierId"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          string          `json:"reason,omitempty"`
	Items           []EventItem     `json:"items"`
	OccurredAt      time.Time       `json:"occurredAt"`
}

// EventItem is the per-line part of an Event.
type EventItem struct {
	ProductID    id.ID           `json:"productId"`
	BaseQuantity decimal.Decimal `json:"baseQuantity"`
	Amount       decimal.Decimal `json:"amount"`
}

// EventPublisher delivers events. Publish runs inside the business
// transaction, so implementations must write to the same store.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

func newEvent(eventType string, v *Voucher, supplierID id.ID) Event {
	ev := Event{
		Type:            eventType,
		VoucherID:       v.ID,
		Number:          v.Number,
		PurchaseOrderID: v.PurchaseOrderID,
		SupplierID:      supplierID,
		Amount:          v.TotalAmount,
		Reason:          v.CancelReason,
		Items:           make([]EventItem, 0, len(v.Items)),
		OccurredAt:      time.Now().UTC(),
	}
	for _, it := range v.Items {
		ev.Items = append(ev.Items, EventItem{
			ProductID:    it.ProductID,
			BaseQuantity: it.BaseQuantity,
			Amount:       it.Amount,
		})
	}
	if eventType == EventVoucherCancelled {
		ev.Amount = ev.Amount.Neg()
		for i := range ev.Items {
			ev.Items[i].BaseQuantity = ev.Items[i].BaseQuantity.Neg()
			ev.Items[i].Amount = ev.Items[i].Amount.Neg()
		}
	}
	return ev
}
