package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore is a map-backed Store. It backs tests and keeps the ledger and
// coordinator semantics independent of the database.
type MemStore struct {
	mu       sync.RWMutex
	products map[string]Product
	bySKU    map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{products: make(map[string]Product), bySKU: make(map[string]string)}
}

func (s *MemStore) Insert(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySKU[p.SKU]; ok {
		return fmt.Errorf("sku %s: %w", p.SKU, ErrDuplicateSKU)
	}
	s.products[p.ID] = p
	s.bySKU[p.SKU] = p.ID
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	return p, nil
}

func (s *MemStore) GetBySKU(ctx context.Context, sku string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySKU[sku]
	if !ok {
		return Product{}, fmt.Errorf("sku %s: %w", sku, ErrProductNotFound)
	}
	return s.products[id], nil
}

func (s *MemStore) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (s *MemStore) Update(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.products[p.ID]
	if !ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrProductNotFound)
	}
	if old.SKU != p.SKU {
		if _, taken := s.bySKU[p.SKU]; taken {
			return fmt.Errorf("sku %s: %w", p.SKU, ErrDuplicateSKU)
		}
		delete(s.bySKU, old.SKU)
		s.bySKU[p.SKU] = p.ID
	}
	p.Stock = old.Stock // quantity moves only through AdjustStock
	s.products[p.ID] = p
	return nil
}

func (s *MemStore) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	p.Active = active
	s.products[id] = p
	return nil
}

func (s *MemStore) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
	}
	next := p.Stock + delta
	if next < 0 {
		return p.Stock, &StockShortage{ProductID: id, Available: p.Stock, Requested: -delta}
	}
	p.Stock = next
	s.products[id] = p
	return next, nil
}
