package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mhardiyanto/go-stock-orders/internal/inventory"
	"github.com/mhardiyanto/go-stock-orders/internal/lockx"
)

// fakeLedger wraps a real in-memory ledger with injectable release failures.
type fakeLedger struct {
	*inventory.Ledger
	store *inventory.MemStore

	mu           sync.Mutex
	failReleases int // fail this many Release calls before succeeding
	releaseCalls int
}

func newFakeLedger(t *testing.T, stocks map[string]int) *fakeLedger {
	t.Helper()
	store := inventory.NewMemStore()
	for id, stock := range stocks {
		require.NoError(t, store.Insert(context.Background(), inventory.Product{
			ID: id, SKU: "sku-" + id, Name: id, Stock: stock, Active: true,
		}))
	}
	return &fakeLedger{
		Ledger: inventory.NewLedger(store, lockx.NewTable(0), zerolog.Nop()),
		store:  store,
	}
}

func (f *fakeLedger) Release(ctx context.Context, productID string, qty int) error {
	f.mu.Lock()
	f.releaseCalls++
	fail := f.failReleases > 0
	if fail {
		f.failReleases--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("ledger unreachable")
	}
	return f.Ledger.Release(ctx, productID, qty)
}

func (f *fakeLedger) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestReserveAllSuccess(t *testing.T) {
	ledger := newFakeLedger(t, map[string]int{"p1": 5, "p2": 3})
	r := NewReserver(ledger, 3, zerolog.Nop())

	set, err := r.ReserveAll(context.Background(), []LineItem{
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p1", Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, set.tokens, 2)
	require.Equal(t, 3, ledger.stock(t, "p1"))
	require.Equal(t, 2, ledger.stock(t, "p2"))
}

func TestReserveAllAllOrNothing(t *testing.T) {
	// p2 cannot satisfy qty 10: p1's reservation must be rolled back and no
	// stock change survives.
	ledger := newFakeLedger(t, map[string]int{"p1": 5, "p2": 3})
	r := NewReserver(ledger, 3, zerolog.Nop())

	_, err := r.ReserveAll(context.Background(), []LineItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 10},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Equal(t, 5, ledger.stock(t, "p1"))
	require.Equal(t, 3, ledger.stock(t, "p2"))
}

func TestReserveAllSurfacesFirstFailure(t *testing.T) {
	ledger := newFakeLedger(t, map[string]int{"p1": 5})
	r := NewReserver(ledger, 3, zerolog.Nop())

	_, err := r.ReserveAll(context.Background(), []LineItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1}, // unknown product
	})
	require.ErrorIs(t, err, inventory.ErrProductNotFound)
	require.Equal(t, 5, ledger.stock(t, "p1"))
}

func TestTokensAreSingleUse(t *testing.T) {
	ledger := newFakeLedger(t, map[string]int{"p1": 5})
	r := NewReserver(ledger, 3, zerolog.Nop())

	set, err := r.ReserveAll(context.Background(), []LineItem{{ProductID: "p1", Quantity: 2}})
	require.NoError(t, err)
	require.Equal(t, 3, ledger.stock(t, "p1"))

	require.NoError(t, set.Release(context.Background()))
	require.Equal(t, 5, ledger.stock(t, "p1"))

	// a second release must not double-credit
	require.NoError(t, set.Release(context.Background()))
	require.Equal(t, 5, ledger.stock(t, "p1"))
}

func TestCommitMakesReleaseNoOp(t *testing.T) {
	ledger := newFakeLedger(t, map[string]int{"p1": 5})
	r := NewReserver(ledger, 3, zerolog.Nop())

	set, err := r.ReserveAll(context.Background(), []LineItem{{ProductID: "p1", Quantity: 2}})
	require.NoError(t, err)
	set.Commit()

	require.NoError(t, set.Release(context.Background()))
	require.Equal(t, 3, ledger.stock(t, "p1"), "committed reservation stays decremented")
}

func TestReleaseRetriesTransientFailures(t *testing.T) {
	ledger := newFakeLedger(t, map[string]int{"p1": 5})
	ledger.failReleases = 2
	r := NewReserver(ledger, 5, zerolog.Nop())

	set, err := r.ReserveAll(context.Background(), []LineItem{{ProductID: "p1", Quantity: 2}})
	require.NoError(t, err)

	require.NoError(t, set.Release(context.Background()))
	require.Equal(t, 5, ledger.stock(t, "p1"))
	require.Equal(t, 3, ledger.releaseCalls)
}

func TestReleaseEscalatesAfterRetriesExhausted(t *testing.T) {
	ledger := newFakeLedger(t, map[string]int{"p1": 5})
	ledger.failReleases = 100
	r := NewReserver(ledger, 2, zerolog.Nop())

	set, err := r.ReserveAll(context.Background(), []LineItem{{ProductID: "p1", Quantity: 2}})
	require.NoError(t, err)

	err = set.Release(context.Background())
	require.ErrorIs(t, err, ErrCompensationFailed)

	// token is still live: a later retry can finish the compensation
	ledger.mu.Lock()
	ledger.failReleases = 0
	ledger.mu.Unlock()
	require.NoError(t, set.Release(context.Background()))
	require.Equal(t, 5, ledger.stock(t, "p1"))
}

func TestConcurrentOverlappingOrdersComplete(t *testing.T) {
	// {A,B} vs {B,A} over the same lock table; canonical lock order means
	// both finish.
	ledger := newFakeLedger(t, map[string]int{"a": 1000, "b": 1000})
	r := NewReserver(ledger, 3, zerolog.Nop())

	var wg sync.WaitGroup
	run := func(items []LineItem) {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			set, err := r.ReserveAll(context.Background(), items)
			require.NoError(t, err)
			require.NoError(t, set.Release(context.Background()))
		}
	}
	wg.Add(2)
	go run([]LineItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 1}})
	go run([]LineItem{{ProductID: "b", Quantity: 1}, {ProductID: "a", Quantity: 1}})
	wg.Wait()

	require.Equal(t, 1000, ledger.stock(t, "a"))
	require.Equal(t, 1000, ledger.stock(t, "b"))
}
