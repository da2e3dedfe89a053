package lockx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusive(t *testing.T) {
	tbl := NewTable(0)
	ctx := context.Background()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, tbl.Acquire(ctx, "p1"))
			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
			tbl.Release("p1")
		}()
	}
	wg.Wait()
	require.Equal(t, 1, max, "at most one holder at a time")
}

func TestAcquireAllCanonicalOrderAvoidsDeadlock(t *testing.T) {
	tbl := NewTable(0)
	ctx := context.Background()

	run := func(keys []string) {
		for i := 0; i < 200; i++ {
			release, err := tbl.AcquireAll(ctx, keys)
			require.NoError(t, err)
			release()
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); run([]string{"a", "b"}) }()
	go func() { defer wg.Done(); run([]string{"b", "a"}) }()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock: overlapping AcquireAll calls did not finish")
	}
}

func TestAcquireAllDuplicateKeys(t *testing.T) {
	tbl := NewTable(0)
	release, err := tbl.AcquireAll(context.Background(), []string{"x", "x", "y"})
	require.NoError(t, err)
	release()

	// everything must be free again
	release, err = tbl.AcquireAll(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	release()
}

func TestAcquireWaitTimeout(t *testing.T) {
	tbl := NewTable(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, tbl.Acquire(ctx, "p1"))
	err := tbl.Acquire(ctx, "p1")
	require.ErrorIs(t, err, ErrWaitTimeout)

	tbl.Release("p1")
	require.NoError(t, tbl.Acquire(ctx, "p1"))
	tbl.Release("p1")
}

func TestAcquireContextCancelled(t *testing.T) {
	tbl := NewTable(0)
	require.NoError(t, tbl.Acquire(context.Background(), "p1"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := tbl.Acquire(ctx, "p1")
	require.ErrorIs(t, err, context.Canceled)
	tbl.Release("p1")
}

func TestAcquireAllReleasesOnFailure(t *testing.T) {
	tbl := NewTable(50 * time.Millisecond)
	ctx := context.Background()

	// hold "b" so AcquireAll(a, b) times out after taking "a"
	require.NoError(t, tbl.Acquire(ctx, "b"))
	_, err := tbl.AcquireAll(ctx, []string{"b", "a"})
	require.ErrorIs(t, err, ErrWaitTimeout)

	// "a" must have been unwound
	require.NoError(t, tbl.Acquire(ctx, "a"))
	tbl.Release("a")
	tbl.Release("b")
}
