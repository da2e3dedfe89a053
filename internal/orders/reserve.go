package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrCompensationFailed means an aborted order's stock reservations could not
// all be returned to the ledger. It is a stock/order inconsistency and must
// reach an operator; it is never swallowed.
var ErrCompensationFailed = errors.New("reservation compensation failed")

// StockLedger is the slice of the inventory service the coordinator needs.
type StockLedger interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
}

type LineItem struct {
	ProductID string
	Quantity  int
}

// Token is the compensating handle for one granted reservation. Single-use:
// once released or committed it never credits stock again.
type Token struct {
	ProductID string
	Quantity  int

	mu    sync.Mutex
	spent bool
}

// ReservationSet is the outcome of a successful multi-item reservation. The
// caller either Commits it (the decrements become permanent) or Releases it
// (every token is returned to the ledger).
type ReservationSet struct {
	r      *Reserver
	tokens []*Token
}

// Reserver drives the all-or-nothing reservation of an order's line items
// against the ledger. Reservations proceed in ascending product id so two
// orders over overlapping product sets cannot deadlock; compensation runs in
// reverse but needs no particular order, each release stands alone.
type Reserver struct {
	ledger  StockLedger
	retries int
	log     zerolog.Logger
}

func NewReserver(ledger StockLedger, retries int, log zerolog.Logger) *Reserver {
	if retries < 1 {
		retries = 1
	}
	return &Reserver{
		ledger:  ledger,
		retries: retries,
		log:     log.With().Str("component", "reserver").Logger(),
	}
}

// ReserveAll reserves every line item or none. On the first failed item it
// releases everything reserved so far and surfaces that first failure. If
// the rollback itself cannot complete, the compensation error takes
// precedence: partial stock loss outranks a refused order.
func (r *Reserver) ReserveAll(ctx context.Context, items []LineItem) (*ReservationSet, error) {
	sorted := make([]LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	set := &ReservationSet{r: r}
	for _, it := range sorted {
		if err := r.ledger.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			if cerr := set.Release(context.WithoutCancel(ctx)); cerr != nil {
				r.log.Error().Err(err).Msg("reservation failed and rollback incomplete")
				return nil, cerr
			}
			return nil, err
		}
		set.tokens = append(set.tokens, &Token{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return set, nil
}

// Commit converts the reservations into permanent stock decrements by
// spending every token. A later Release becomes a no-op.
func (s *ReservationSet) Commit() {
	for _, t := range s.tokens {
		t.mu.Lock()
		t.spent = true
		t.mu.Unlock()
	}
}

// Release returns every unspent token to the ledger, retrying each with
// backoff. It keeps going past individual failures so one stuck product does
// not block the others, then reports the first failure as
// ErrCompensationFailed.
func (s *ReservationSet) Release(ctx context.Context) error {
	var firstErr error
	for i := len(s.tokens) - 1; i >= 0; i-- {
		if err := s.r.release(ctx, s.tokens[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Reserver) release(ctx context.Context, t *Token) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spent {
		return nil
	}

	var err error
	for attempt := 0; attempt < r.retries; attempt++ {
		if attempt > 0 {
			sleep(ctx, backoff(attempt))
		}
		if err = r.ledger.Release(ctx, t.ProductID, t.Quantity); err == nil {
			t.spent = true
			return nil
		}
		r.log.Warn().Err(err).
			Str("product_id", t.ProductID).
			Int("qty", t.Quantity).
			Int("attempt", attempt+1).
			Msg("reservation release failed, retrying")
	}

	// Stock was decremented but could not be returned. Operator alert: the
	// ledger and the order store now disagree until someone reconciles them.
	r.log.Error().Err(err).
		Str("alert", "compensation_failed").
		Str("product_id", t.ProductID).
		Int("qty", t.Quantity).
		Msg("could not return reserved stock to ledger")
	return fmt.Errorf("release product %s qty %d: %w", t.ProductID, t.Quantity, ErrCompensationFailed)
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
