package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/domain"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/registers/stock"
)

func TestRunInTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := product.NewProduct("PRD-1", "Water", "bottle")
	require.NoError(t, s.Products().Create(ctx, p))

	wh := id.New()
	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Stock().Increment(ctx, wh, p.ID, decimal.NewFromInt(24)); err != nil {
			return err
		}
		if err := s.Products().UpdateAverageCost(ctx, p.ID, decimal.NewFromInt(10)); err != nil {
			return err
		}
		m := entity.NewStockMovement(entity.DirectionIn, wh, p.ID, decimal.NewFromInt(24),
			entity.ReferenceReceivingVoucher, id.New(), id.New())
		if err := s.Stock().CreateMovements(ctx, []entity.StockMovement{m}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	total, err := s.Stock().TotalByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.AverageCostPrice.IsZero())

	history, err := s.Stock().GetMovementHistory(ctx, p.ID, stock.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestNestedTransactionReusesOuter(t *testing.T) {
	ctx := context.Background()
	s := New()
	wh, pid := id.New(), id.New()

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := s.Stock().Increment(ctx, wh, pid, decimal.NewFromInt(5))
			return err
		})
	})
	require.NoError(t, err)

	bal, err := s.Stock().GetBalance(ctx, wh, pid)
	require.NoError(t, err)
	assert.Equal(t, "5", bal.Quantity.String())
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := product.NewProduct("PRD-1", "Water", "bottle")
	_, err := p.AddUOM("case", decimal.NewFromInt(24), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, s.Products().Create(ctx, p))

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.UOMs[0].ConversionFactor = decimal.NewFromInt(1)
	got.AverageCostPrice = decimal.NewFromInt(99)

	again, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "24", again.UOMs[0].ConversionFactor.String())
	assert.True(t, again.AverageCostPrice.IsZero())
}

func TestProductCodeIsUnique(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Products().Create(ctx, product.NewProduct("PRD-1", "Water", "bottle")))

	err := s.Products().Create(ctx, product.NewProduct("PRD-1", "Juice", "bottle"))
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	_, err = s.Products().GetByID(ctx, id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
}

func TestDecrementIfAvailable(t *testing.T) {
	ctx := context.Background()
	s := New()
	wh, pid := id.New(), id.New()

	_, ok, err := s.Stock().DecrementIfAvailable(ctx, wh, pid, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Stock().Increment(ctx, wh, pid, decimal.NewFromInt(10))
	require.NoError(t, err)

	_, ok, err = s.Stock().DecrementIfAvailable(ctx, wh, pid, decimal.NewFromInt(11))
	require.NoError(t, err)
	assert.False(t, ok)

	left, ok, err := s.Stock().DecrementIfAvailable(ctx, wh, pid, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, left.IsZero())
}

func TestMovementHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	wh, pid, ref := id.New(), id.New(), id.New()

	var batch []entity.StockMovement
	for i := 1; i <= 3; i++ {
		batch = append(batch, entity.NewStockMovement(entity.DirectionIn, wh, pid,
			decimal.NewFromInt(int64(i)), entity.ReferenceReceivingVoucher, ref, id.New()))
	}
	require.NoError(t, s.Stock().CreateMovements(ctx, batch))

	history, err := s.Stock().GetMovementHistory(ctx, pid, stock.MovementFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "3", history[0].Quantity.String())
	assert.Equal(t, "2", history[1].Quantity.String())

	byRef, err := s.Stock().GetMovementsByReference(ctx, ref)
	require.NoError(t, err)
	require.Len(t, byRef, 3)
	assert.Equal(t, "1", byRef[0].Quantity.String())
}

func TestProductListSearch(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Products().Create(ctx, product.NewProduct("PRD-1", "Mineral water", "bottle")))
	require.NoError(t, s.Products().Create(ctx, product.NewProduct("PRD-2", "Orange juice", "bottle")))

	res, err := s.Products().List(ctx, domain.ListFilter{Search: "WATER"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "PRD-1", res.Items[0].Code)
	assert.EqualValues(t, 1, res.TotalCount)
}
