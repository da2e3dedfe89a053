package lockx

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrWaitTimeout is returned when a lock could not be acquired within the
// table's configured wait timeout.
var ErrWaitTimeout = errors.New("lockx: lock wait timeout")

// Table hands out one exclusive lock per key. It is the in-process analogue
// of per-row pessimistic locking: every stock mutation for a product runs
// under that product's lock.
//
// Locks are channel-based so acquisition can respect context cancellation
// and an optional wait timeout. Entries are reference-counted and removed
// from the map once nobody holds or waits for them.
type Table struct {
	mu      sync.Mutex
	locks   map[string]*entry
	timeout time.Duration // zero = wait forever
}

type entry struct {
	ch   chan struct{} // capacity 1; owning the token = holding the lock
	refs int
}

func NewTable(timeout time.Duration) *Table {
	return &Table{locks: make(map[string]*entry), timeout: timeout}
}

func (t *Table) get(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		e.ch <- struct{}{}
		t.locks[key] = e
	}
	e.refs++
	return e
}

func (t *Table) put(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(t.locks, key)
	}
}

// Acquire blocks until the key's lock is held, the context is cancelled, or
// the wait timeout expires.
func (t *Table) Acquire(ctx context.Context, key string) error {
	e := t.get(key)

	var timeoutCh <-chan time.Time
	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		t.put(key)
		return ctx.Err()
	case <-timeoutCh:
		t.put(key)
		return ErrWaitTimeout
	}
}

// Release frees the key's lock. The caller must currently hold it.
func (t *Table) Release(key string) {
	t.mu.Lock()
	e, ok := t.locks[key]
	t.mu.Unlock()
	if !ok {
		return
	}
	e.ch <- struct{}{}
	t.put(key)
}

// AcquireAll takes the locks for every key in one canonical order (ascending,
// deduplicated) regardless of the order the caller lists them. Two concurrent
// multi-key operations over overlapping sets therefore cannot deadlock.
//
// On success it returns a release func that frees all locks; on failure every
// lock acquired so far has already been released.
func (t *Table) AcquireAll(ctx context.Context, keys []string) (func(), error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for i, k := range sorted {
		if err := t.Acquire(ctx, k); err != nil {
			for j := i - 1; j >= 0; j-- {
				t.Release(sorted[j])
			}
			return nil, err
		}
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			t.Release(sorted[i])
		}
	}, nil
}
