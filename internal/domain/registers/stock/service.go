package stock

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/tx"
	"stockcost/internal/core/types"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/pkg/logger"
	"stockcost/pkg/validator"
)

// Reference identifies the document line behind a movement.
type Reference struct {
	Type   string
	ID     id.ID
	LineID id.ID
}

// ProductLocker locks a product row. Receipts and adjustments of one product
// serialize on it.
type ProductLocker interface {
	GetForUpdate(ctx context.Context, id id.ID) (*product.Product, error)
}

// AdjustInput sets the counted on-hand quantity of a product in a warehouse.
type AdjustInput struct {
	WarehouseID id.ID `json:"warehouseId" validate:"uuid_required"`
	ProductID   id.ID `json:"productId" validate:"uuid_required"`
	// CountedQuantity in base units.
	CountedQuantity decimal.Decimal `json:"countedQuantity" validate:"decimal_gte0"`
	Reason          string          `json:"reason" validate:"required"`
}

// AdjustResult reports the applied delta.
type AdjustResult struct {
	AdjustmentID id.ID                 `json:"adjustmentId"`
	Previous     types.Quantity        `json:"previousQuantity"`
	Current      types.Quantity        `json:"currentQuantity"`
	Movement     *entity.StockMovement `json:"movement,omitempty"`
}

// Posting is the outcome of a single balance change.
type Posting struct {
	Balance  types.Quantity
	Movement entity.StockMovement
}

// Service provides business operations for the stock register.
type Service struct {
	repo      Repository
	products  ProductLocker
	txManager tx.Manager
}

// NewService creates a new stock service.
func NewService(repo Repository, products ProductLocker, txManager tx.Manager) *Service {
	return &Service{repo: repo, products: products, txManager: txManager}
}

// Receive adds qty to the balance and appends an IN movement.
// Must run inside the caller's transaction.
func (s *Service) Receive(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity, ref Reference) (Posting, error) {
	qty = types.RoundQuantity(qty)
	if !qty.IsPositive() {
		return Posting{}, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", qty.String())
	}

	newQty, err := s.repo.Increment(ctx, warehouseID, productID, qty)
	if err != nil {
		return Posting{}, fmt.Errorf("increment stock: %w", err)
	}

	m := entity.NewStockMovement(entity.DirectionIn, warehouseID, productID, qty, ref.Type, ref.ID, ref.LineID)
	if err := s.repo.CreateMovements(ctx, []entity.StockMovement{m}); err != nil {
		return Posting{}, fmt.Errorf("record movement: %w", err)
	}
	return Posting{Balance: newQty, Movement: m}, nil
}

// Reverse removes qty from the balance and appends an OUT movement.
// Refuses with INSUFFICIENT_STOCK_TO_REVERSE when the balance does not cover qty.
// Must run inside the caller's transaction.
func (s *Service) Reverse(ctx context.Context, warehouseID, productID id.ID, qty types.Quantity, ref Reference) (Posting, error) {
	qty = types.RoundQuantity(qty)
	if !qty.IsPositive() {
		return Posting{}, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", qty.String())
	}

	newQty, ok, err := s.repo.DecrementIfAvailable(ctx, warehouseID, productID, qty)
	if err != nil {
		return Posting{}, fmt.Errorf("decrement stock: %w", err)
	}
	if !ok {
		bal, err := s.repo.GetBalance(ctx, warehouseID, productID)
		if err != nil {
			return Posting{}, fmt.Errorf("get balance: %w", err)
		}
		return Posting{}, apperror.NewInsufficientStockToReverse(
			productID.String(), warehouseID.String(), qty.String(), bal.Quantity.String())
	}

	m := entity.NewStockMovement(entity.DirectionOut, warehouseID, productID, qty, ref.Type, ref.ID, ref.LineID)
	if err := s.repo.CreateMovements(ctx, []entity.StockMovement{m}); err != nil {
		return Posting{}, fmt.Errorf("record movement: %w", err)
	}
	return Posting{Balance: newQty, Movement: m}, nil
}

// Adjust records a physical count. The difference to the book balance is
// posted as an IN or OUT movement. Average cost is not affected.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	if err := validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	res := &AdjustResult{AdjustmentID: id.New()}
	counted := types.RoundQuantity(in.CountedQuantity)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.products.GetForUpdate(ctx, in.ProductID); err != nil {
			return err
		}
		bal, err := s.repo.GetBalanceForUpdate(ctx, in.WarehouseID, in.ProductID)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		res.Previous = bal.Quantity
		res.Current = bal.Quantity

		delta := counted.Sub(bal.Quantity)
		if delta.IsZero() {
			return nil
		}

		ref := Reference{Type: entity.ReferenceStockAdjustment, ID: res.AdjustmentID, LineID: res.AdjustmentID}
		var posting Posting
		if delta.IsPositive() {
			posting, err = s.Receive(ctx, in.WarehouseID, in.ProductID, delta, ref)
		} else {
			posting, err = s.Reverse(ctx, in.WarehouseID, in.ProductID, delta.Neg(), ref)
		}
		if err != nil {
			return err
		}
		res.Current = posting.Balance
		res.Movement = &posting.Movement
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"adjustment_id", res.AdjustmentID,
		"product_id", in.ProductID,
		"warehouse_id", in.WarehouseID,
		"previous", res.Previous.String(),
		"current", res.Current.String(),
		"reason", in.Reason)

	return res, nil
}

// ProductTotal returns the on-hand quantity of a product across warehouses.
func (s *Service) ProductTotal(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var total types.Quantity
	err := tx.ReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		var err error
		total, err = s.repo.TotalByProduct(ctx, productID)
		return err
	})
	return total, err
}

// Balances returns per-warehouse balances of a product.
func (s *Service) Balances(ctx context.Context, productID id.ID) ([]entity.StockBalance, error) {
	var balances []entity.StockBalance
	err := tx.ReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		var err error
		balances, err = s.repo.GetBalancesByProduct(ctx, productID)
		return err
	})
	return balances, err
}

// Balance returns the balance of a product in one warehouse.
func (s *Service) Balance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	return s.repo.GetBalance(ctx, warehouseID, productID)
}

// History returns the movement ledger of a product.
func (s *Service) History(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.GetMovementHistory(ctx, productID, filter)
}

// MovementsByReference returns the movements produced by a document.
func (s *Service) MovementsByReference(ctx context.Context, referenceID id.ID) ([]entity.StockMovement, error) {
	return s.repo.GetMovementsByReference(ctx, referenceID)
}
