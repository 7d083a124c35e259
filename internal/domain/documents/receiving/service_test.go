package receiving_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/domain/documents/receiving"
	"stockcost/internal/domain/registers/stock"
	"stockcost/internal/infrastructure/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	stock     *stock.Service
	orders    *purchase_order.Service
	receiving *receiving.Service
	warehouse id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	numbers := memory.NewNumerator()
	stockSvc := stock.NewService(store.Stock(), store.Products(), store)
	return &fixture{
		ctx:    context.Background(),
		store:  store,
		stock:  stockSvc,
		orders: purchase_order.NewService(store.PurchaseOrders(), store.Products(), numbers, store),
		receiving: receiving.NewService(store.Vouchers(), store.Products(), store.PurchaseOrders(),
			stockSvc, store.Events(), numbers, store),
		warehouse: id.New(),
	}
}

// water is stocked in bottles and bought in cases of 24.
func (f *fixture) water(t *testing.T) *product.Product {
	t.Helper()
	p := product.NewProduct("PRD-WATER", "Water 0.5l", "bottle")
	_, err := p.AddUOM("case", dec("24"), dec("0"))
	require.NoError(t, err)
	require.NoError(t, f.store.Products().Create(f.ctx, p))
	return p
}

func (f *fixture) simple(t *testing.T, code string) *product.Product {
	t.Helper()
	p := product.NewProduct(code, code, "pcs")
	require.NoError(t, f.store.Products().Create(f.ctx, p))
	return p
}

func (f *fixture) order(t *testing.T, lines ...purchase_order.CreateLineInput) *purchase_order.PurchaseOrder {
	t.Helper()
	po, err := f.orders.Create(f.ctx, purchase_order.CreateInput{
		SupplierID:  id.New(),
		WarehouseID: f.warehouse,
		Lines:       lines,
	})
	require.NoError(t, err)
	return po
}

func (f *fixture) product(t *testing.T, productID id.ID) *product.Product {
	t.Helper()
	p, err := f.store.Products().GetByID(f.ctx, productID)
	require.NoError(t, err)
	return p
}

func (f *fixture) onHand(t *testing.T, productID id.ID) decimal.Decimal {
	t.Helper()
	total, err := f.stock.ProductTotal(f.ctx, productID)
	require.NoError(t, err)
	return total
}

func (f *fixture) purchaseOrder(t *testing.T, poID id.ID) *purchase_order.PurchaseOrder {
	t.Helper()
	po, err := f.orders.Get(f.ctx, poID)
	require.NoError(t, err)
	return po
}

func (f *fixture) receiveLine(po *purchase_order.PurchaseOrder, line int, qty, uom, price string) (*receiving.ReceiveResult, error) {
	l := po.Lines[line]
	return f.receiving.ReceiveStock(f.ctx, receiving.ReceiveStockInput{
		ProductID:           l.ProductID,
		WarehouseID:         f.warehouse,
		PurchaseOrderLineID: l.ID,
		Quantity:            dec(qty),
		UOM:                 uom,
		UnitPrice:           dec(price),
	})
}

func TestReceiveCasesConvertsToBaseUnits(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})

	res, err := f.receiveLine(po, 0, "10", "case", "240")
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, "240", item.BaseQuantity.String())
	assert.Equal(t, "240", item.NewInventoryQuantity.String())
	assert.Equal(t, "10", item.NewAverageCost.String())
	assert.Equal(t, purchase_order.StatusReceived, item.LineStatus)
	assert.Equal(t, purchase_order.StatusReceived, res.PurchaseOrderStatus)
	assert.Equal(t, "2400", res.TotalAmount.String())
	assert.NotEmpty(t, res.Number)

	assert.Equal(t, "10", f.product(t, water.ID).AverageCostPrice.String())
	assert.Equal(t, "240", f.onHand(t, water.ID).String())

	v, err := f.receiving.Get(f.ctx, res.VoucherID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "24", v.Items[0].ConversionFactor.String())
	assert.Equal(t, "10", v.Items[0].BaseUnitCost.String())
	assert.True(t, v.Items[0].QuantityVariance.IsZero())
	assert.Equal(t, po.ID, v.PurchaseOrderID)
}

func TestReceiveRecomputesWeightedAverage(t *testing.T) {
	f := newFixture(t)
	p := f.simple(t, "PRD-BOLT")
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: p.ID, UOM: "pcs", Quantity: dec("150"), UnitPrice: dec("10"),
	})

	first, err := f.receiveLine(po, 0, "100", "pcs", "10")
	require.NoError(t, err)
	assert.Equal(t, "10", first.Items[0].NewAverageCost.String())
	assert.Equal(t, purchase_order.StatusPartiallyReceived, first.PurchaseOrderStatus)

	second, err := f.receiveLine(po, 0, "50", "pcs", "12")
	require.NoError(t, err)
	assert.Equal(t, "10.6667", second.Items[0].NewAverageCost.String())
	assert.Equal(t, "150", second.Items[0].NewInventoryQuantity.String())
	assert.Equal(t, purchase_order.StatusReceived, second.PurchaseOrderStatus)
}

func TestReceiveUnconfiguredUOMChangesNothing(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})

	_, err := f.receiveLine(po, 0, "1", "pallet", "5000")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUOMNotConfigured))

	// case-sensitive, never defaulted to 1:1
	_, err = f.receiveLine(po, 0, "1", "Case", "240")
	assert.True(t, apperror.HasCode(err, apperror.CodeUOMNotConfigured))

	assert.True(t, f.onHand(t, water.ID).IsZero())
	assert.True(t, f.product(t, water.ID).AverageCostPrice.IsZero())
	assert.Equal(t, purchase_order.StatusOrdered, f.purchaseOrder(t, po.ID).Status)
	assert.Empty(t, f.store.Events().All(f.ctx))

	list, err := f.receiving.List(f.ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestReceiveRejectsNonPositivePrice(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})

	_, err := f.receiveLine(po, 0, "1", "case", "0")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidUnitCost))

	_, err = f.receiveLine(po, 0, "1", "case", "-5")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidUnitCost))

	assert.True(t, f.onHand(t, water.ID).IsZero())
}

func TestReceiveInDifferentUnitThanOrderLine(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})

	res, err := f.receiveLine(po, 0, "48", "bottle", "10")
	require.NoError(t, err)
	assert.Equal(t, "48", res.Items[0].BaseQuantity.String())
	assert.Equal(t, "10", res.Items[0].NewAverageCost.String())
	assert.Equal(t, purchase_order.StatusPartiallyReceived, res.Items[0].LineStatus)

	line := f.purchaseOrder(t, po.ID).Lines[0]
	assert.Equal(t, "2", line.ReceivedQuantity.String())

	v, err := f.receiving.Get(f.ctx, res.VoucherID)
	require.NoError(t, err)
	assert.Equal(t, "2", v.Items[0].LineQuantity.String())
	assert.Equal(t, "8", v.Items[0].QuantityVariance.String())
	assert.Equal(t, "1920", v.Items[0].AmountVariance.String())
}

func TestReceiveBaseUnitsCompletesPackLine(t *testing.T) {
	f := newFixture(t)
	p := product.NewProduct("PRD-SOAP", "Soap", "pcs")
	_, err := p.AddUOM("pack", dec("3"), dec("0"))
	require.NoError(t, err)
	require.NoError(t, f.store.Products().Create(f.ctx, p))
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: p.ID, UOM: "pack", Quantity: dec("1"), UnitPrice: dec("30"),
	})

	var last *receiving.ReceiveResult
	for i := 0; i < 3; i++ {
		last, err = f.receiveLine(po, 0, "1", "pcs", "10")
		require.NoError(t, err)
	}
	assert.Equal(t, purchase_order.StatusReceived, last.Items[0].LineStatus)
	assert.Equal(t, purchase_order.StatusReceived, last.PurchaseOrderStatus)

	line := f.purchaseOrder(t, po.ID).Lines[0]
	assert.Equal(t, "3", line.ReceivedBase.String())
	assert.Equal(t, "1", line.ReceivedQuantity.String())

	v, err := f.receiving.Get(f.ctx, last.VoucherID)
	require.NoError(t, err)
	assert.Equal(t, "0.3333", v.Items[0].LineQuantity.String())
	assert.True(t, v.Items[0].QuantityVariance.IsZero())

	_, err = f.receiveLine(po, 0, "1", "pcs", "10")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, "3", f.onHand(t, p.ID).String())

	// reversing one receipt reopens the line
	_, err = f.receiving.CancelReceipt(f.ctx, last.VoucherID, "miscount")
	require.NoError(t, err)
	line = f.purchaseOrder(t, po.ID).Lines[0]
	assert.Equal(t, "2", line.ReceivedBase.String())
	assert.Equal(t, purchase_order.StatusPartiallyReceived, line.Status)
}

func TestReceiveSingleBaseUnitAgainstPalletLine(t *testing.T) {
	f := newFixture(t)
	p := product.NewProduct("PRD-CAP", "Bottle cap", "pcs")
	_, err := p.AddUOM("pallet", dec("30000"), dec("0"))
	require.NoError(t, err)
	require.NoError(t, f.store.Products().Create(f.ctx, p))
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: p.ID, UOM: "pallet", Quantity: dec("1"), UnitPrice: dec("300"),
	})

	res, err := f.receiveLine(po, 0, "1", "pcs", "0.01")
	require.NoError(t, err)
	assert.Equal(t, "1", res.Items[0].BaseQuantity.String())
	assert.Equal(t, purchase_order.StatusPartiallyReceived, res.PurchaseOrderStatus)
	assert.Equal(t, "1", f.purchaseOrder(t, po.ID).Lines[0].ReceivedBase.String())
}

func TestOverReceiptRecordsNegativeVariance(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})

	res, err := f.receiveLine(po, 0, "12", "case", "240")
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusReceived, res.PurchaseOrderStatus)

	v, err := f.receiving.Get(f.ctx, res.VoucherID)
	require.NoError(t, err)
	assert.Equal(t, "-2", v.Items[0].QuantityVariance.String())
	assert.Equal(t, "-480", v.Items[0].AmountVariance.String())

	_, err = f.receiveLine(po, 0, "1", "case", "240")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, "288", f.onHand(t, water.ID).String())
}

func TestReceiveIsAtomicAcrossLines(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	bolt := f.simple(t, "PRD-BOLT")
	po := f.order(t,
		purchase_order.CreateLineInput{ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240")},
		purchase_order.CreateLineInput{ProductID: bolt.ID, UOM: "pcs", Quantity: dec("100"), UnitPrice: dec("1")},
	)

	_, err := f.receiving.Receive(f.ctx, receiving.ReceiveInput{
		WarehouseID: f.warehouse,
		Items: []receiving.ItemInput{
			{ProductID: water.ID, PurchaseOrderLineID: po.Lines[0].ID, Quantity: dec("10"), UOM: "case", UnitPrice: dec("240")},
			{ProductID: bolt.ID, PurchaseOrderLineID: po.Lines[1].ID, Quantity: dec("1"), UOM: "box", UnitPrice: dec("100")},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeUOMNotConfigured))

	assert.True(t, f.onHand(t, water.ID).IsZero())
	assert.True(t, f.product(t, water.ID).AverageCostPrice.IsZero())
	got := f.purchaseOrder(t, po.ID)
	assert.Equal(t, purchase_order.StatusOrdered, got.Status)
	assert.True(t, got.Lines[0].ReceivedQuantity.IsZero())

	history, err := f.stock.History(f.ctx, water.ID, stock.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReceiveMultipleLines(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	bolt := f.simple(t, "PRD-BOLT")
	po := f.order(t,
		purchase_order.CreateLineInput{ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240")},
		purchase_order.CreateLineInput{ProductID: bolt.ID, UOM: "pcs", Quantity: dec("100"), UnitPrice: dec("1")},
	)

	res, err := f.receiving.Receive(f.ctx, receiving.ReceiveInput{
		WarehouseID: f.warehouse,
		Items: []receiving.ItemInput{
			{ProductID: water.ID, PurchaseOrderLineID: po.Lines[0].ID, Quantity: dec("10"), UOM: "case", UnitPrice: dec("240")},
			{ProductID: bolt.ID, PurchaseOrderLineID: po.Lines[1].ID, Quantity: dec("40"), UOM: "pcs", UnitPrice: dec("1.5")},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, purchase_order.StatusPartiallyReceived, res.PurchaseOrderStatus)
	assert.Equal(t, "2460", res.TotalAmount.String())
	assert.Equal(t, "1.5", f.product(t, bolt.ID).AverageCostPrice.String())

	events := f.store.Events().All(f.ctx)
	require.Len(t, events, 1)
	assert.Equal(t, receiving.EventVoucherPosted, events[0].Type)
	assert.Equal(t, "2460", events[0].Amount.String())
	assert.Len(t, events[0].Items, 2)
}

func TestReceiveRejectsLinesOfDifferentOrders(t *testing.T) {
	f := newFixture(t)
	bolt := f.simple(t, "PRD-BOLT")
	line := purchase_order.CreateLineInput{ProductID: bolt.ID, UOM: "pcs", Quantity: dec("10"), UnitPrice: dec("1")}
	first := f.order(t, line)
	second := f.order(t, line)

	_, err := f.receiving.Receive(f.ctx, receiving.ReceiveInput{
		WarehouseID: f.warehouse,
		Items: []receiving.ItemInput{
			{ProductID: bolt.ID, PurchaseOrderLineID: first.Lines[0].ID, Quantity: dec("1"), UOM: "pcs", UnitPrice: dec("1")},
			{ProductID: bolt.ID, PurchaseOrderLineID: second.Lines[0].ID, Quantity: dec("1"), UOM: "pcs", UnitPrice: dec("1")},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestReceiveRejectsProductMismatch(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	bolt := f.simple(t, "PRD-BOLT")
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})

	_, err := f.receiving.ReceiveStock(f.ctx, receiving.ReceiveStockInput{
		ProductID:           bolt.ID,
		WarehouseID:         f.warehouse,
		PurchaseOrderLineID: po.Lines[0].ID,
		Quantity:            dec("1"),
		UOM:                 "pcs",
		UnitPrice:           dec("1"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.True(t, f.onHand(t, bolt.ID).IsZero())
}

func TestReceiveUnknownLineOrProduct(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})

	_, err := f.receiving.ReceiveStock(f.ctx, receiving.ReceiveStockInput{
		ProductID: water.ID, WarehouseID: f.warehouse, PurchaseOrderLineID: id.New(),
		Quantity: dec("1"), UOM: "case", UnitPrice: dec("240"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodePurchaseOrderNotFound))

	_, err = f.receiving.ReceiveStock(f.ctx, receiving.ReceiveStockInput{
		ProductID: id.New(), WarehouseID: f.warehouse, PurchaseOrderLineID: po.Lines[0].ID,
		Quantity: dec("1"), UOM: "case", UnitPrice: dec("240"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
}

func TestReceiveAgainstCancelledOrder(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})
	_, err := f.orders.Cancel(f.ctx, po.ID)
	require.NoError(t, err)

	_, err = f.receiveLine(po, 0, "1", "case", "240")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestReceiveValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.receiving.Receive(f.ctx, receiving.ReceiveInput{WarehouseID: f.warehouse})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.receiving.ReceiveStock(f.ctx, receiving.ReceiveStockInput{
		ProductID: id.New(), WarehouseID: f.warehouse, PurchaseOrderLineID: id.New(),
		Quantity: dec("0"), UOM: "pcs", UnitPrice: dec("1"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCancelReceiptReversesStockAndKeepsAverage(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})
	received, err := f.receiveLine(po, 0, "10", "case", "240")
	require.NoError(t, err)

	res, err := f.receiving.CancelReceipt(f.ctx, received.VoucherID, "wrong delivery")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "240", res.Items[0].ReversedQuantity.String())
	assert.True(t, res.Items[0].NewInventoryQuantity.IsZero())
	assert.Equal(t, purchase_order.StatusOrdered, res.Items[0].LineStatus)
	assert.Equal(t, purchase_order.StatusOrdered, res.PurchaseOrderStatus)

	assert.True(t, f.onHand(t, water.ID).IsZero())
	assert.Equal(t, "10", f.product(t, water.ID).AverageCostPrice.String())

	v, err := f.receiving.Get(f.ctx, received.VoucherID)
	require.NoError(t, err)
	assert.True(t, v.IsCancelled())
	assert.Equal(t, "wrong delivery", v.CancelReason)
	require.NotNil(t, v.CancelledAt)

	events := f.store.Events().All(f.ctx)
	require.Len(t, events, 2)
	assert.Equal(t, receiving.EventVoucherCancelled, events[1].Type)
	assert.Equal(t, "-2400", events[1].Amount.String())
	assert.Equal(t, "-240", events[1].Items[0].BaseQuantity.String())

	history, err := f.stock.History(f.ctx, water.ID, stock.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, history, 2)

	// the line can be received again
	_, err = f.receiveLine(po, 0, "10", "case", "240")
	require.NoError(t, err)
}

func TestCancelReceiptTwice(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})
	received, err := f.receiveLine(po, 0, "5", "case", "240")
	require.NoError(t, err)

	_, err = f.receiving.CancelReceipt(f.ctx, received.VoucherID, "duplicate")
	require.NoError(t, err)

	_, err = f.receiving.CancelReceipt(f.ctx, received.VoucherID, "duplicate")
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyCancelled))
	assert.True(t, f.onHand(t, water.ID).IsZero())
	assert.Len(t, f.store.Events().All(f.ctx), 2)
}

func TestCancelReceiptInsufficientStock(t *testing.T) {
	f := newFixture(t)
	water := f.water(t)
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: water.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240"),
	})
	received, err := f.receiveLine(po, 0, "10", "case", "240")
	require.NoError(t, err)

	_, err = f.stock.Adjust(f.ctx, stock.AdjustInput{
		WarehouseID:     f.warehouse,
		ProductID:       water.ID,
		CountedQuantity: dec("100"),
		Reason:          "breakage",
	})
	require.NoError(t, err)

	_, err = f.receiving.CancelReceipt(f.ctx, received.VoucherID, "wrong delivery")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStockToReverse))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "100", appErr.Details["available"])

	assert.Equal(t, "100", f.onHand(t, water.ID).String())
	v, err := f.receiving.Get(f.ctx, received.VoucherID)
	require.NoError(t, err)
	assert.False(t, v.IsCancelled())
	assert.Equal(t, purchase_order.StatusReceived, f.purchaseOrder(t, po.ID).Status)
}

func TestCancelReceiptRequiresReason(t *testing.T) {
	f := newFixture(t)

	_, err := f.receiving.CancelReceipt(f.ctx, id.New(), "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.receiving.CancelReceipt(f.ctx, id.New(), "no such voucher")
	assert.True(t, apperror.HasCode(err, apperror.CodeVoucherNotFound))
}

func TestValuationIsProductWide(t *testing.T) {
	f := newFixture(t)
	p := f.simple(t, "PRD-BOLT")
	po := f.order(t, purchase_order.CreateLineInput{
		ProductID: p.ID, UOM: "pcs", Quantity: dec("200"), UnitPrice: dec("10"),
	})
	_, err := f.receiveLine(po, 0, "100", "pcs", "10")
	require.NoError(t, err)

	// a second warehouse holding the same product
	other := f.warehouse
	f.warehouse = id.New()
	res, err := f.receiveLine(po, 0, "100", "pcs", "20")
	require.NoError(t, err)

	assert.Equal(t, "15", res.Items[0].NewAverageCost.String())
	assert.Equal(t, "100", res.Items[0].NewInventoryQuantity.String())
	assert.Equal(t, "200", f.onHand(t, p.ID).String())

	bal, err := f.stock.Balance(f.ctx, other, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", bal.Quantity.String())
}

func TestConcurrentReceiptsOfOneProduct(t *testing.T) {
	const n = 8

	lines := make([]purchase_order.CreateLineInput, 0, n)
	prices := make([]string, 0, n)
	for i := 0; i < n; i++ {
		price := fmt.Sprintf("%d", 10+i)
		prices = append(prices, price)
		lines = append(lines, purchase_order.CreateLineInput{UOM: "pcs", Quantity: dec("10"), UnitPrice: dec(price)})
	}
	withProduct := func(productID id.ID) []purchase_order.CreateLineInput {
		out := make([]purchase_order.CreateLineInput, 0, n)
		for _, l := range lines {
			l.ProductID = productID
			out = append(out, l)
		}
		return out
	}

	seq := newFixture(t)
	seqBolt := seq.simple(t, "PRD-BOLT")
	seqPO := seq.order(t, withProduct(seqBolt.ID)...)
	for i := 0; i < n; i++ {
		_, err := seq.receiveLine(seqPO, i, "10", "pcs", prices[i])
		require.NoError(t, err)
	}
	want := seq.product(t, seqBolt.ID).AverageCostPrice

	f := newFixture(t)
	bolt := f.simple(t, "PRD-BOLT")
	po := f.order(t, withProduct(bolt.ID)...)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.receiveLine(po, i, "10", "pcs", prices[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "line %d", i+1)
	}

	assert.Equal(t, "80", f.onHand(t, bolt.ID).String())

	history, err := f.stock.History(f.ctx, bolt.ID, stock.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, history, n)
	for _, m := range history {
		assert.Equal(t, entity.DirectionIn, m.Direction)
		assert.Equal(t, "10", m.Quantity.String())
	}

	// arrival order only moves intermediate rounding at the fourth place
	got := f.product(t, bolt.ID).AverageCostPrice
	assert.True(t, got.Sub(want).Abs().LessThan(dec("0.001")), "average %s, sequential %s", got, want)
	assert.Equal(t, "13.5", want.String())

	assert.Equal(t, purchase_order.StatusReceived, f.purchaseOrder(t, po.ID).Status)
	list, err := f.receiving.List(f.ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list.Items, n)
}
