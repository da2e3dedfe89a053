package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mhardiyanto/go-stock-orders/internal/inventory"
)

// Catalog is the product lookup the assembler consumes. Name and price
// snapshots come from here at reservation time.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (inventory.Product, error)
}

// Publisher announces committed orders to the event channel. At-least-once.
type Publisher interface {
	PublishOrderCreated(o Order)
	PublishOrderStatusChanged(o Order)
}

type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	ShippingAddress string        `json:"shipping_address"`
	Items           []ItemRequest `json:"items"`
}

// Service assembles order aggregates. An order exists only if every line
// item's stock reservation succeeded first; a persist failure after the
// reservations hands them straight back to the ledger.
type Service struct {
	catalog       Catalog
	reserver      *Reserver
	store         Store
	publisher     Publisher
	lookupRetries int
	log           zerolog.Logger
}

func NewService(catalog Catalog, reserver *Reserver, store Store, publisher Publisher, lookupRetries int, log zerolog.Logger) *Service {
	if lookupRetries < 1 {
		lookupRetries = 1
	}
	return &Service{
		catalog:       catalog,
		reserver:      reserver,
		store:         store,
		publisher:     publisher,
		lookupRetries: lookupRetries,
		log:           log.With().Str("component", "orders").Logger(),
	}
}

func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if len(req.Items) == 0 {
		return Order{}, fmt.Errorf("order must contain at least one item")
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return Order{}, fmt.Errorf("quantity for product %s must be positive", it.ProductID)
		}
	}

	// Snapshot name/price before touching stock. A missing product fails the
	// order here, before anything needs compensating.
	snapshots := make(map[string]inventory.Product, len(req.Items))
	lines := make([]LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, err := s.lookupProduct(ctx, it.ProductID)
		if err != nil {
			return Order{}, err
		}
		snapshots[it.ProductID] = p
		lines = append(lines, LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	set, err := s.reserver.ReserveAll(ctx, lines)
	if err != nil {
		return Order{}, err
	}

	now := time.Now().UTC()
	o := Order{
		ID:              uuid.NewString(),
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, it := range req.Items { // items keep the caller's order
		p := snapshots[it.ProductID]
		qty := decimal.NewFromInt(int64(it.Quantity))
		o.Items = append(o.Items, OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       p.Price,
			Subtotal:    p.Price.Mul(qty),
		})
	}
	o.ComputeTotal()

	if err := s.store.Insert(ctx, o); err != nil {
		// Stock is decremented but no order exists. Hand it back.
		if cerr := set.Release(context.WithoutCancel(ctx)); cerr != nil {
			s.log.Error().Err(err).Str("order_id", o.ID).Msg("order persist failed and rollback incomplete")
			return Order{}, cerr
		}
		return Order{}, fmt.Errorf("persist order: %w", err)
	}
	set.Commit()

	s.publisher.PublishOrderCreated(o)
	s.log.Info().Str("order_id", o.ID).Str("total", o.TotalAmount.String()).Int("items", len(o.Items)).Msg("order created")
	return o, nil
}

func (s *Service) lookupProduct(ctx context.Context, id string) (inventory.Product, error) {
	var lastErr error
	for attempt := 0; attempt < s.lookupRetries; attempt++ {
		if attempt > 0 {
			sleep(ctx, backoff(attempt))
		}
		p, err := s.catalog.GetProduct(ctx, id)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, inventory.ErrProductNotFound) {
			return inventory.Product{}, err
		}
		lastErr = err
	}
	return inventory.Product{}, fmt.Errorf("catalog lookup for product %s: %w", id, lastErr)
}

// UpdateStatus applies one state machine transition and persists it. Stock
// was committed at creation time, so no ledger or lock interaction happens
// here.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := Transition(o.Status, next); err != nil {
		return Order{}, err
	}
	if err := s.store.UpdateStatus(ctx, orderID, next); err != nil {
		return Order{}, err
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()

	s.publisher.PublishOrderStatusChanged(o)
	s.log.Info().Str("order_id", orderID).Str("status", string(next)).Msg("order status updated")
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.store.List(ctx)
}

func (s *Service) ListOrdersByStatus(ctx context.Context, status Status) ([]Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.store.ListByStatus(ctx, status)
}

func (s *Service) ListOrdersByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.store.ListByEmail(ctx, email)
}
