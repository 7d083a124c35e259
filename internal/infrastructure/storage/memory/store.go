// Package memory provides an in-process implementation of every repository
// together with a transaction manager.
//
// A transaction holds the store lock for its whole duration and works on the
// live state; a snapshot taken at BEGIN is restored when fn fails. Stored
// slices are never mutated in place, so a shallow snapshot is enough.
package memory

import (
	"context"
	"maps"
	"sync"

	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/core/tx"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/domain/documents/receiving"
)

// Compile-time check that Store implements tx.Manager interface.
var _ tx.Manager = (*Store)(nil)

type balanceKey struct {
	warehouseID id.ID
	productID   id.ID
}

type state struct {
	products  map[id.ID]product.Product
	codes     map[string]id.ID
	orders    map[id.ID]purchase_order.PurchaseOrder
	lineIndex map[id.ID]id.ID
	vouchers  map[id.ID]receiving.Voucher
	balances  map[balanceKey]entity.StockBalance
	movements []entity.StockMovement
	events    []receiving.Event
}

func newState() *state {
	return &state{
		products:  make(map[id.ID]product.Product),
		codes:     make(map[string]id.ID),
		orders:    make(map[id.ID]purchase_order.PurchaseOrder),
		lineIndex: make(map[id.ID]id.ID),
		vouchers:  make(map[id.ID]receiving.Voucher),
		balances:  make(map[balanceKey]entity.StockBalance),
	}
}

func (st *state) snapshot() *state {
	return &state{
		products:  maps.Clone(st.products),
		codes:     maps.Clone(st.codes),
		orders:    maps.Clone(st.orders),
		lineIndex: maps.Clone(st.lineIndex),
		vouchers:  maps.Clone(st.vouchers),
		balances:  maps.Clone(st.balances),
		movements: st.movements[:len(st.movements):len(st.movements)],
		events:    st.events[:len(st.events):len(st.events)],
	}
}

// Store is the in-memory database.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

type txKey struct{ s *Store }

func (s *Store) inTx(ctx context.Context) bool {
	return ctx.Value(txKey{s}) != nil
}

// RunInTransaction executes fn atomically. Nested calls reuse the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.snapshot()
	if err := fn(context.WithValue(ctx, txKey{s}, true)); err != nil {
		s.st = saved
		return err
	}
	return nil
}

// do runs fn against the state, taking the lock unless ctx is inside a transaction.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Products returns the product repository.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// PurchaseOrders returns the purchase order repository.
func (s *Store) PurchaseOrders() *PurchaseOrderRepo { return &PurchaseOrderRepo{s: s} }

// Vouchers returns the receiving voucher repository.
func (s *Store) Vouchers() *VoucherRepo { return &VoucherRepo{s: s} }

// Stock returns the stock register repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

// Events returns the event publisher.
func (s *Store) Events() *EventLog { return &EventLog{s: s} }
