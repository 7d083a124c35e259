package receiving

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/numerator"
	"stockcost/internal/core/tx"
	"stockcost/internal/core/types"
	"stockcost/internal/domain"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/costing"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/domain/registers/stock"
	"stockcost/internal/domain/uom"
	"stockcost/pkg/logger"
	"stockcost/pkg/validator"
)

var tracer = otel.Tracer("stockcost/receiving")

// NumeratorStrategy for voucher numbers. Vouchers back payables, so no gaps.
var NumeratorStrategy = numerator.StrategyStrict

// ReceiveStockInput receives one purchase order line.
type ReceiveStockInput struct {
	ProductID           id.ID           `json:"productId" validate:"uuid_required"`
	WarehouseID         id.ID           `json:"warehouseId" validate:"uuid_required"`
	PurchaseOrderLineID id.ID           `json:"purchaseOrderLineId" validate:"uuid_required"`
	Quantity            decimal.Decimal `json:"quantity" validate:"decimal_gt0"`
	UOM                 string          `json:"uom" validate:"required"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
}

// ReceiveInput receives several lines of one purchase order into a warehouse.
type ReceiveInput struct {
	WarehouseID id.ID       `json:"warehouseId" validate:"uuid_required"`
	Comment     string      `json:"comment"`
	Items       []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ItemInput is one line of ReceiveInput. UnitPrice is per UOM.
type ItemInput struct {
	ProductID           id.ID           `json:"productId" validate:"uuid_required"`
	PurchaseOrderLineID id.ID           `json:"purchaseOrderLineId" validate:"uuid_required"`
	Quantity            decimal.Decimal `json:"quantity" validate:"decimal_gt0"`
	UOM                 string          `json:"uom" validate:"required"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
}

// ReceiveResult reports the state after a receipt.
type ReceiveResult struct {
	VoucherID           id.ID                 `json:"voucherId"`
	Number              string                `json:"number"`
	PurchaseOrderStatus purchase_order.Status `json:"purchaseOrderStatus"`
	TotalAmount         decimal.Decimal       `json:"totalAmount"`
	Items               []ReceivedItem        `json:"items"`
}

// ReceivedItem is the per-line part of ReceiveResult.
type ReceivedItem struct {
	ProductID            id.ID                 `json:"productId"`
	WarehouseID          id.ID                 `json:"warehouseId"`
	BaseQuantity         types.Quantity        `json:"baseQuantity"`
	NewInventoryQuantity types.Quantity        `json:"newInventoryQuantity"`
	NewAverageCost       decimal.Decimal       `json:"newAverageCost"`
	LineStatus           purchase_order.Status `json:"lineStatus"`
}

// CancelResult reports the state after a cancellation.
type CancelResult struct {
	VoucherID           id.ID                 `json:"voucherId"`
	Number              string                `json:"number"`
	PurchaseOrderStatus purchase_order.Status `json:"purchaseOrderStatus"`
	Items               []CancelledItem       `json:"items"`
}

// CancelledItem is the per-line part of CancelResult.
type CancelledItem struct {
	ProductID            id.ID                 `json:"productId"`
	ReversedQuantity     types.Quantity        `json:"reversedQuantity"`
	NewInventoryQuantity types.Quantity        `json:"newInventoryQuantity"`
	LineStatus           purchase_order.Status `json:"lineStatus"`
}

// ProductStore is the part of the product catalog receipts need.
type ProductStore interface {
	GetForUpdate(ctx context.Context, id id.ID) (*product.Product, error)
	UpdateAverageCost(ctx context.Context, id id.ID, avg decimal.Decimal) error
}

// StockLedger is the part of the stock register receipts need.
type StockLedger interface {
	Receive(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity, ref stock.Reference) (stock.Posting, error)
	Reverse(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity, ref stock.Reference) (stock.Posting, error)
	ProductTotal(ctx context.Context, productID id.ID) (types.Quantity, error)
	MovementsByReference(ctx context.Context, referenceID id.ID) ([]entity.StockMovement, error)
}

// Service orchestrates receipts and cancellations. Every operation runs in
// one transaction: either all effects are persisted or none.
type Service struct {
	repo      Repository
	products  ProductStore
	orders    purchase_order.Repository
	stock     StockLedger
	events    EventPublisher
	numerator numerator.Generator
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new receiving service.
func NewService(
	repo Repository,
	products ProductStore,
	orders purchase_order.Repository,
	stock StockLedger,
	events EventPublisher,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		orders:    orders,
		stock:     stock,
		events:    events,
		numerator: numerator,
		txManager: txManager,
		now:       time.Now,
	}
}

// ReceiveStock receives a single purchase order line.
func (s *Service) ReceiveStock(ctx context.Context, in ReceiveStockInput) (*ReceiveResult, error) {
	return s.Receive(ctx, ReceiveInput{
		WarehouseID: in.WarehouseID,
		Items: []ItemInput{{
			ProductID:           in.ProductID,
			PurchaseOrderLineID: in.PurchaseOrderLineID,
			Quantity:            in.Quantity,
			UOM:                 in.UOM,
			UnitPrice:           in.UnitPrice,
		}},
	})
}

// Receive books goods into inventory, recomputes average costs, advances the
// purchase order and records a voucher.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*ReceiveResult, error) {
	ctx, span := tracer.Start(ctx, "receiving.Receive",
		trace.WithAttributes(attribute.Int("receiving.items", len(in.Items))))
	defer span.End()

	if err := validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("RV"),
		&numerator.Options{Strategy: NumeratorStrategy}, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}

	var (
		v   *Voucher
		res *ReceiveResult
	)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		v = NewVoucher(in.WarehouseID)
		v.Number = number
		v.Comment = in.Comment

		var rerr error
		res, rerr = s.receive(ctx, v, in)
		return rerr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "receipt rejected", "number", number, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("receiving.number", v.Number))

	for _, it := range res.Items {
		logger.Info(ctx, "stock received",
			"voucher", v.Number,
			"product_id", it.ProductID,
			"warehouse_id", it.WarehouseID,
			"base_quantity", it.BaseQuantity.String(),
			"on_hand", it.NewInventoryQuantity.String(),
			"average_cost", it.NewAverageCost.String())
	}
	return res, nil
}

func (s *Service) receive(ctx context.Context, v *Voucher, in ReceiveInput) (*ReceiveResult, error) {
	locked, err := s.lockProducts(ctx, productIDs(in.Items))
	if err != nil {
		return nil, err
	}

	po, err := s.lockOrder(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	if err := po.CanReceive(); err != nil {
		return nil, err
	}
	v.PurchaseOrderID = po.ID

	res := &ReceiveResult{VoucherID: v.ID, Number: v.Number, Items: make([]ReceivedItem, 0, len(in.Items))}

	for i, it := range in.Items {
		p := locked[it.ProductID]
		reg, err := p.Registry()
		if err != nil {
			return nil, err
		}

		unit, err := reg.Resolve(it.UOM)
		if err != nil {
			return nil, err
		}
		baseQty := types.RoundQuantity(it.Quantity.Mul(unit.Factor))
		if !baseQty.IsPositive() {
			return nil, apperror.NewValidation("quantity is too small").
				WithDetail("item", i+1)
		}
		baseCost, err := uom.BaseUnitCost(it.UnitPrice, unit.Factor)
		if err != nil {
			return nil, err
		}

		line, ok := po.Line(it.PurchaseOrderLineID)
		if !ok {
			return nil, apperror.NewPurchaseOrderNotFound(it.PurchaseOrderLineID.String())
		}
		if line.ProductID != p.ID {
			return nil, apperror.NewValidation("product does not match purchase order line").
				WithDetail("item", i+1).
				WithDetail("purchase_order_line_id", line.ID.String())
		}

		// the line books base units; its own unit is only for display
		outstanding := line.OutstandingBase()
		if err := line.Receive(baseQty); err != nil {
			return nil, err
		}

		onHand, err := s.stock.ProductTotal(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("product total: %w", err)
		}
		p.ApplyAverageCost(costing.WeightedAverage(onHand, p.AverageCostPrice, baseQty, baseCost))
		if err := s.products.UpdateAverageCost(ctx, p.ID, p.AverageCostPrice); err != nil {
			return nil, fmt.Errorf("update average cost: %w", err)
		}

		qtyVariance := line.FromBase(outstanding.Sub(baseQty))
		item := v.AddItem(Item{
			ProductID:           p.ID,
			PurchaseOrderLineID: line.ID,
			UOM:                 it.UOM,
			ConversionFactor:    unit.Factor,
			OrderedQuantity:     line.Quantity,
			OutstandingQuantity: line.FromBase(outstanding),
			ReceivedQuantity:    types.RoundQuantity(it.Quantity),
			LineQuantity:        line.FromBase(baseQty),
			BaseQuantity:        baseQty,
			UnitPrice:           it.UnitPrice,
			BaseUnitCost:        types.RoundCost(baseCost),
			Amount:              it.Quantity.Mul(it.UnitPrice),
			QuantityVariance:    qtyVariance,
			AmountVariance:      qtyVariance.Mul(line.UnitPrice),
		})

		posting, err := s.stock.Receive(ctx, v.WarehouseID, p.ID, baseQty, stock.Reference{
			Type:   entity.ReferenceReceivingVoucher,
			ID:     v.ID,
			LineID: item.ID,
		})
		if err != nil {
			return nil, err
		}

		res.Items = append(res.Items, ReceivedItem{
			ProductID:            p.ID,
			WarehouseID:          v.WarehouseID,
			BaseQuantity:         baseQty,
			NewInventoryQuantity: posting.Balance,
			NewAverageCost:       p.AverageCostPrice,
			LineStatus:           line.Status,
		})
	}

	po.RefreshStatus()
	if err := s.orders.SaveProgress(ctx, po); err != nil {
		return nil, fmt.Errorf("save purchase order: %w", err)
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create voucher: %w", err)
	}
	if err := s.events.Publish(ctx, newEvent(EventVoucherPosted, v, po.SupplierID)); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}

	res.PurchaseOrderStatus = po.Status
	res.TotalAmount = v.TotalAmount
	return res, nil
}

// CancelReceipt reverses the inventory effect of a voucher and reopens the
// purchase order lines. Average cost is left as it is.
func (s *Service) CancelReceipt(ctx context.Context, voucherID id.ID, reason string) (*CancelResult, error) {
	ctx, span := tracer.Start(ctx, "receiving.CancelReceipt",
		trace.WithAttributes(attribute.String("receiving.voucher_id", voucherID.String())))
	defer span.End()

	if reason == "" {
		return nil, apperror.NewValidation("cancel reason is required").
			WithDetail("field", "reason")
	}

	var (
		v   *Voucher
		res *CancelResult
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.repo.GetForUpdate(ctx, voucherID)
		if err != nil {
			return err
		}
		if v.IsCancelled() {
			return apperror.NewAlreadyCancelled("receiving voucher", v.ID.String())
		}
		res, err = s.cancel(ctx, v, reason)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "cancellation rejected", "voucher_id", voucherID, "error", err)
		return nil, err
	}

	logger.Info(ctx, "receipt cancelled",
		"voucher", v.Number,
		"items", len(v.Items),
		"reason", reason)
	return res, nil
}

func (s *Service) cancel(ctx context.Context, v *Voucher, reason string) (*CancelResult, error) {
	ids := make([]id.ID, 0, len(v.Items))
	for _, it := range v.Items {
		ids = append(ids, it.ProductID)
	}
	if _, err := s.lockProducts(ctx, ids); err != nil {
		return nil, err
	}

	po, err := s.orders.GetForUpdate(ctx, v.PurchaseOrderID)
	if err != nil {
		return nil, err
	}

	received, err := s.receivedByItem(ctx, v.ID)
	if err != nil {
		return nil, err
	}

	res := &CancelResult{VoucherID: v.ID, Number: v.Number, Items: make([]CancelledItem, 0, len(v.Items))}

	for _, it := range v.Items {
		// the ledger must agree with the voucher before anything is reversed
		if booked := received[it.ID]; !types.AlmostEqual(booked, it.BaseQuantity) {
			return nil, apperror.NewInternal(fmt.Errorf(
				"voucher %s item %d: ledger holds %s, voucher %s",
				v.Number, it.LineNo, booked, it.BaseQuantity))
		}

		posting, err := s.stock.Reverse(ctx, v.WarehouseID, it.ProductID, it.BaseQuantity, stock.Reference{
			Type:   entity.ReferenceReceivingVoucher,
			ID:     v.ID,
			LineID: it.ID,
		})
		if err != nil {
			return nil, err
		}

		line, ok := po.Line(it.PurchaseOrderLineID)
		if !ok {
			return nil, apperror.NewPurchaseOrderNotFound(it.PurchaseOrderLineID.String())
		}
		if err := line.Unreceive(it.BaseQuantity); err != nil {
			return nil, err
		}

		res.Items = append(res.Items, CancelledItem{
			ProductID:            it.ProductID,
			ReversedQuantity:     it.BaseQuantity,
			NewInventoryQuantity: posting.Balance,
			LineStatus:           line.Status,
		})
	}

	po.RefreshStatus()
	if err := s.orders.SaveProgress(ctx, po); err != nil {
		return nil, fmt.Errorf("save purchase order: %w", err)
	}

	if err := v.Cancel(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.MarkCancelled(ctx, v); err != nil {
		return nil, fmt.Errorf("mark cancelled: %w", err)
	}
	if err := s.events.Publish(ctx, newEvent(EventVoucherCancelled, v, po.SupplierID)); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}

	res.PurchaseOrderStatus = po.Status
	return res, nil
}

// Get retrieves a voucher with items.
func (s *Service) Get(ctx context.Context, voucherID id.ID) (*Voucher, error) {
	return s.repo.GetByID(ctx, voucherID)
}

// List returns vouchers matching the filter.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Voucher], error) {
	return s.repo.List(ctx, filter.Normalize())
}

// lockProducts locks each product once, in id order, so concurrent receipts
// and cancellations touching the same products cannot deadlock.
func (s *Service) lockProducts(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	unique := id.SortedUnique(ids)

	locked := make(map[id.ID]*product.Product, len(unique))
	for _, pid := range unique {
		p, err := s.products.GetForUpdate(ctx, pid)
		if err != nil {
			return nil, err
		}
		locked[pid] = p
	}
	return locked, nil
}

// lockOrder resolves and locks the single purchase order all items belong to.
func (s *Service) lockOrder(ctx context.Context, items []ItemInput) (*purchase_order.PurchaseOrder, error) {
	var orderID id.ID
	for i, it := range items {
		oid, err := s.orders.FindOrderIDByLine(ctx, it.PurchaseOrderLineID)
		if err != nil {
			return nil, err
		}
		if i > 0 && oid != orderID {
			return nil, apperror.NewValidation("all items of a voucher must belong to one purchase order").
				WithDetail("item", i+1)
		}
		orderID = oid
	}
	return s.orders.GetForUpdate(ctx, orderID)
}

// receivedByItem nets the ledger movements of a voucher per item.
func (s *Service) receivedByItem(ctx context.Context, voucherID id.ID) (map[id.ID]decimal.Decimal, error) {
	movements, err := s.stock.MovementsByReference(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("get movements: %w", err)
	}
	out := make(map[id.ID]decimal.Decimal, len(movements))
	for _, m := range movements {
		if m.ReferenceType != entity.ReferenceReceivingVoucher {
			continue
		}
		out[m.ReferenceLineID] = out[m.ReferenceLineID].Add(m.SignedQuantity())
	}
	return out, nil
}

func productIDs(items []ItemInput) []id.ID {
	out := make([]id.ID, 0, len(items))
	for _, it := range items {
		out = append(out, it.ProductID)
	}
	return out
}
