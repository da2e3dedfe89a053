package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ProductInput is the registration/update payload. Stock is seeded only at
// creation; afterwards the quantity moves exclusively through the Ledger.
type ProductInput struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      *bool           `json:"active,omitempty"`
}

// Catalog manages product records: registration, lookup, updates and soft
// delete. Products referenced by historical orders are never destroyed, only
// deactivated.
type Catalog struct {
	store Store
	log   zerolog.Logger
}

func NewCatalog(store Store, log zerolog.Logger) *Catalog {
	return &Catalog{store: store, log: log.With().Str("component", "catalog").Logger()}
}

func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if in.SKU == "" || in.Name == "" {
		return Product{}, fmt.Errorf("sku and name are required")
	}
	if in.Stock < 0 {
		return Product{}, fmt.Errorf("initial stock must not be negative")
	}
	if _, err := c.store.GetBySKU(ctx, in.SKU); err == nil {
		return Product{}, fmt.Errorf("sku %s: %w", in.SKU, ErrDuplicateSKU)
	} else if !errors.Is(err, ErrProductNotFound) {
		return Product{}, err
	}

	now := time.Now().UTC()
	p := Product{
		ID:          uuid.NewString(),
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := c.store.Insert(ctx, p); err != nil {
		return Product{}, err
	}
	c.log.Info().Str("product_id", p.ID).Str("sku", p.SKU).Msg("product created")
	return p, nil
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (Product, error) {
	return c.store.Get(ctx, id)
}

func (c *Catalog) GetProductBySKU(ctx context.Context, sku string) (Product, error) {
	return c.store.GetBySKU(ctx, sku)
}

func (c *Catalog) ListProducts(ctx context.Context) ([]Product, error) {
	return c.store.List(ctx, false)
}

func (c *Catalog) ListActiveProducts(ctx context.Context) ([]Product, error) {
	return c.store.List(ctx, true)
}

// UpdateProduct rewrites the descriptive fields. A SKU change re-checks
// uniqueness; the stock quantity is deliberately left alone.
func (c *Catalog) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, error) {
	p, err := c.store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if in.SKU != "" && in.SKU != p.SKU {
		if _, err := c.store.GetBySKU(ctx, in.SKU); err == nil {
			return Product{}, fmt.Errorf("sku %s: %w", in.SKU, ErrDuplicateSKU)
		} else if !errors.Is(err, ErrProductNotFound) {
			return Product{}, err
		}
		p.SKU = in.SKU
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	p.Description = in.Description
	p.Price = in.Price
	if in.Active != nil {
		p.Active = *in.Active
	}
	p.UpdatedAt = time.Now().UTC()

	if err := c.store.Update(ctx, p); err != nil {
		return Product{}, err
	}
	c.log.Info().Str("product_id", p.ID).Msg("product updated")
	return p, nil
}

// DeactivateProduct is the logical delete: the record stays for historical
// orders, the active flag hides it from listings.
func (c *Catalog) DeactivateProduct(ctx context.Context, id string) error {
	if err := c.store.SetActive(ctx, id, false); err != nil {
		return err
	}
	c.log.Info().Str("product_id", id).Msg("product deactivated")
	return nil
}
