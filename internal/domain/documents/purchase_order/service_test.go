package purchase_order_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/infrastructure/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*purchase_order.Service, *product.Product) {
	t.Helper()
	store := memory.New()
	p := product.NewProduct("WATER", "Water", "bottle")
	_, err := p.AddUOM("case", dec("24"), dec("0"))
	require.NoError(t, err)
	require.NoError(t, store.Products().Create(context.Background(), p))
	return purchase_order.NewService(store.PurchaseOrders(), store.Products(), memory.NewNumerator(), store), p
}

func TestCreatePurchaseOrder(t *testing.T) {
	ctx := context.Background()
	svc, p := setup(t)

	po, err := svc.Create(ctx, purchase_order.CreateInput{
		SupplierID:  id.New(),
		WarehouseID: id.New(),
		Lines: []purchase_order.CreateLineInput{
			{ProductID: p.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240")},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^PO-\d{4}-00001$`, po.Number)
	assert.Equal(t, purchase_order.StatusOrdered, po.Status)

	got, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, purchase_order.StatusOrdered, got.Lines[0].Status)

	list, err := svc.List(ctx, domain.ListFilter{Status: string(purchase_order.StatusOrdered)})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestCreateRejectsUnknownUnit(t *testing.T) {
	ctx := context.Background()
	svc, p := setup(t)

	_, err := svc.Create(ctx, purchase_order.CreateInput{
		SupplierID:  id.New(),
		WarehouseID: id.New(),
		Lines: []purchase_order.CreateLineInput{
			{ProductID: p.ID, UOM: "pallet", Quantity: dec("1"), UnitPrice: dec("1")},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeUOMNotConfigured))

	_, err = svc.Create(ctx, purchase_order.CreateInput{SupplierID: id.New(), WarehouseID: id.New()})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCancelPurchaseOrder(t *testing.T) {
	ctx := context.Background()
	svc, p := setup(t)
	po, err := svc.Create(ctx, purchase_order.CreateInput{
		SupplierID:  id.New(),
		WarehouseID: id.New(),
		Lines: []purchase_order.CreateLineInput{
			{ProductID: p.ID, UOM: "case", Quantity: dec("10"), UnitPrice: dec("240")},
		},
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, po.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyCancelled))

	_, err = svc.Cancel(ctx, id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodePurchaseOrderNotFound))
}
