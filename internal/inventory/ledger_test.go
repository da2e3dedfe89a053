package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mhardiyanto/go-stock-orders/internal/lockx"
)

func newTestLedger(t *testing.T, products ...Product) (*Ledger, *MemStore) {
	t.Helper()
	store := NewMemStore()
	for _, p := range products {
		require.NoError(t, store.Insert(context.Background(), p))
	}
	return NewLedger(store, lockx.NewTable(0), zerolog.Nop()), store
}

func product(id string, stock int) Product {
	now := time.Now().UTC()
	return Product{
		ID: id, SKU: "sku-" + id, Name: "product " + id,
		Price: decimal.NewFromInt(10), Stock: stock, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestReserveDecrementsStock(t *testing.T) {
	ledger, store := newTestLedger(t, product("p1", 5))
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, "p1", 3))
	p, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 2, p.Stock)
}

func TestReserveInsufficientStock(t *testing.T) {
	ledger, store := newTestLedger(t, product("p1", 2))
	ctx := context.Background()

	err := ledger.Reserve(ctx, "p1", 3)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var shortage *StockShortage
	require.ErrorAs(t, err, &shortage)
	require.Equal(t, 2, shortage.Available)
	require.Equal(t, 3, shortage.Requested)

	// denied reservation leaves stock untouched
	p, _ := store.Get(ctx, "p1")
	require.Equal(t, 2, p.Stock)
}

func TestReserveUnknownProduct(t *testing.T) {
	ledger, _ := newTestLedger(t)
	err := ledger.Reserve(context.Background(), "nope", 1)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestReleaseAndAddIncrement(t *testing.T) {
	ledger, store := newTestLedger(t, product("p1", 0))
	ctx := context.Background()

	require.NoError(t, ledger.Add(ctx, "p1", 10))
	require.NoError(t, ledger.Reserve(ctx, "p1", 4))
	require.NoError(t, ledger.Release(ctx, "p1", 4))

	p, _ := store.Get(ctx, "p1")
	require.Equal(t, 10, p.Stock)
}

func TestRejectNonPositiveQuantities(t *testing.T) {
	ledger, _ := newTestLedger(t, product("p1", 5))
	ctx := context.Background()

	require.Error(t, ledger.Reserve(ctx, "p1", 0))
	require.Error(t, ledger.Release(ctx, "p1", -1))
	require.Error(t, ledger.Add(ctx, "p1", 0))
	_, err := ledger.CheckAvailability(ctx, "p1", -2)
	require.Error(t, err)
}

func TestCheckAvailabilityIsAdvisory(t *testing.T) {
	ledger, _ := newTestLedger(t, product("p1", 5))
	ctx := context.Background()

	ok, err := ledger.CheckAvailability(ctx, "p1", 5)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ledger.CheckAvailability(ctx, "p1", 6)
	require.NoError(t, err)
	require.False(t, ok)

	// a passing check does not mutate anything
	require.NoError(t, ledger.Reserve(ctx, "p1", 5))
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	const stock = 5
	const callers = 20
	ledger, store := newTestLedger(t, product("p1", stock))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(ctx, "p1", 1)
		}()
	}
	wg.Wait()
	close(results)

	var granted, denied int
	for err := range results {
		switch {
		case err == nil:
			granted++
		default:
			require.ErrorIs(t, err, ErrInsufficientStock)
			denied++
		}
	}
	require.Equal(t, stock, granted, "exactly the stock's worth of reservations succeed")
	require.Equal(t, callers-stock, denied)

	p, _ := store.Get(ctx, "p1")
	require.Equal(t, 0, p.Stock)
}

func TestQuantityNeverNegativeUnderMixedOps(t *testing.T) {
	ledger, store := newTestLedger(t, product("p1", 3))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); _ = ledger.Reserve(ctx, "p1", 2) }()
		go func() { defer wg.Done(); _ = ledger.Add(ctx, "p1", 1) }()
		go func() { defer wg.Done(); _ = ledger.Release(ctx, "p1", 1) }()
	}
	wg.Wait()

	p, _ := store.Get(ctx, "p1")
	require.GreaterOrEqual(t, p.Stock, 0)
}
