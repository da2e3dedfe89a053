package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mhardiyanto/go-stock-orders/internal/lockx"
)

// Ledger owns the stock quantity of every product. Quantities change only
// through Reserve, Release and Add; each mutation runs under the product's
// lock for its full duration, so mutations on one product are serialized.
type Ledger struct {
	store Store
	locks *lockx.Table
	log   zerolog.Logger
}

func NewLedger(store Store, locks *lockx.Table, log zerolog.Logger) *Ledger {
	return &Ledger{store: store, locks: locks, log: log.With().Str("component", "ledger").Logger()}
}

// Reserve decrements stock by qty, failing with ErrInsufficientStock (as a
// *StockShortage) when not enough is available. The check and the decrement
// happen under the product lock, so a granted reservation is never revoked
// by a concurrent caller.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve qty must be positive, got %d", qty)
	}
	if err := l.locks.Acquire(ctx, productID); err != nil {
		return err
	}
	defer l.locks.Release(productID)

	left, err := l.store.AdjustStock(ctx, productID, -qty)
	if err != nil {
		return err
	}
	l.log.Debug().Str("product_id", productID).Int("qty", qty).Int("stock", left).Msg("stock reserved")
	return nil
}

// Release returns qty units to the product. Used only to undo a reservation
// that belongs to an aborted order.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release qty must be positive, got %d", qty)
	}
	if err := l.locks.Acquire(ctx, productID); err != nil {
		return err
	}
	defer l.locks.Release(productID)

	left, err := l.store.AdjustStock(ctx, productID, qty)
	if err != nil {
		return err
	}
	l.log.Debug().Str("product_id", productID).Int("qty", qty).Int("stock", left).Msg("stock released")
	return nil
}

// Add restocks the product.
func (l *Ledger) Add(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("add qty must be positive, got %d", qty)
	}
	if err := l.locks.Acquire(ctx, productID); err != nil {
		return err
	}
	defer l.locks.Release(productID)

	left, err := l.store.AdjustStock(ctx, productID, qty)
	if err != nil {
		return err
	}
	l.log.Info().Str("product_id", productID).Int("qty", qty).Int("stock", left).Msg("stock added")
	return nil
}

// CheckAvailability reports whether qty units are currently available. The
// read is lock-free and advisory: only Reserve decides whether a reservation
// is granted.
func (l *Ledger) CheckAvailability(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("check qty must be positive, got %d", qty)
	}
	p, err := l.store.Get(ctx, productID)
	if err != nil {
		return false, err
	}
	return p.Stock >= qty, nil
}
