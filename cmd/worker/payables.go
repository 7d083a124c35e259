package main

import (
	"context"
	"fmt"

	"stockcost/internal/domain/documents/receiving"
	"stockcost/internal/infrastructure/storage/postgres"
	"stockcost/pkg/logger"
)

// Payables is the accounts payable ledger a receipt settles against. A
// posted voucher raises the liability to the supplier, a cancelled one
// releases it. The amount on a cancellation event is already negative.
type Payables interface {
	Post(ctx context.Context, ev receiving.Event) error
	Reverse(ctx context.Context, ev receiving.Event) error
}

// PayablesHandler relays voucher events from sys_outbox to Payables.
// Delivery is at least once, so Payables must be idempotent on VoucherID
// and event type.
type PayablesHandler struct {
	payables Payables
}

func NewPayablesHandler(payables Payables) *PayablesHandler {
	return &PayablesHandler{payables: payables}
}

var _ postgres.OutboxHandler = (*PayablesHandler)(nil)

func (h *PayablesHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	ev, err := postgres.DecodeReceivingEvent(msg)
	if err != nil {
		return err
	}

	switch ev.Type {
	case receiving.EventVoucherPosted:
		return h.payables.Post(ctx, ev)
	case receiving.EventVoucherCancelled:
		return h.payables.Reverse(ctx, ev)
	default:
		return fmt.Errorf("unsupported event type %q", ev.Type)
	}
}

// LogPayables writes each liability change to the worker log. It is the
// sink when no accounts payable system is connected; the log stream is
// then the hand-off to finance.
type LogPayables struct {
	log *logger.Logger
}

func NewLogPayables(log *logger.Logger) *LogPayables {
	return &LogPayables{log: log.WithComponent("payables")}
}

var _ Payables = (*LogPayables)(nil)

func (p *LogPayables) Post(ctx context.Context, ev receiving.Event) error {
	p.record(ctx, "payable posted", ev)
	return nil
}

func (p *LogPayables) Reverse(ctx context.Context, ev receiving.Event) error {
	p.record(ctx, "payable reversed", ev)
	return nil
}

func (p *LogPayables) record(ctx context.Context, msg string, ev receiving.Event) {
	p.log.WithContext(ctx).Infow(msg,
		"voucher_id", ev.VoucherID,
		"number", ev.Number,
		"purchase_order_id", ev.PurchaseOrderID,
		"supplier_id", ev.SupplierID,
		"amount", ev.Amount.String(),
		"items", len(ev.Items),
	)
}
