package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateSKU      = errors.New("sku already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockShortage carries the detail of a denied reservation. It unwraps to
// ErrInsufficientStock so callers can branch with errors.Is and still read
// the numbers with errors.As.
type StockShortage struct {
	ProductID string
	Available int
	Requested int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available=%d requested=%d",
		e.ProductID, e.Available, e.Requested)
}

func (e *StockShortage) Unwrap() error { return ErrInsufficientStock }

type Product struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Store is the persistence boundary for products. AdjustStock is the only
// mutation of the quantity column and must refuse to drive it negative.
type Store interface {
	Insert(ctx context.Context, p Product) error
	Get(ctx context.Context, id string) (Product, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	List(ctx context.Context, activeOnly bool) ([]Product, error)
	Update(ctx context.Context, p Product) error
	SetActive(ctx context.Context, id string, active bool) error

	// AdjustStock applies delta atomically and returns the new quantity.
	// A negative delta that would underflow returns *StockShortage.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
}
