package inventory

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
)

// MemoryStore keeps products in process. A mutex per product keeps reserve
// linearizable per id while calls on disjoint products never contend; the
// map itself is only read-locked on the hot path.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*productEntry
}

type productEntry struct {
	mu sync.Mutex
	p  market.Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*productEntry)}
}

// Put inserts or replaces a product row. Catalog writes come through here
// from the excluded CRUD layer.
func (s *MemoryStore) Put(p market.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[p.ID]; ok {
		e.mu.Lock()
		e.p = p
		e.mu.Unlock()
		return
	}
	s.items[p.ID] = &productEntry{p: p}
}

func (s *MemoryStore) entry(id string) *productEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[id]
}

func (s *MemoryStore) Get(ctx context.Context, productID string) (market.Product, error) {
	e := s.entry(productID)
	if e == nil {
		return market.Product{}, market.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p, nil
}

func (s *MemoryStore) Reserve(ctx context.Context, productID string, qty int) (Snapshot, error) {
	e := s.entry(productID)
	if e == nil {
		return Snapshot{}, &market.ProductUnavailableError{ProductID: productID, Reason: market.ErrProductNotFound}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.p.Active {
		return Snapshot{}, &market.ProductUnavailableError{ProductID: productID, Reason: market.ErrProductInactive}
	}
	if e.p.Stock < qty {
		return Snapshot{}, &market.InsufficientStockError{
			ProductID: productID, Requested: qty, Available: e.p.Stock,
		}
	}

	e.p.Stock -= qty
	return Snapshot{ProductID: productID, SellerID: e.p.SellerID, UnitPrice: e.p.Price}, nil
}

func (s *MemoryStore) Release(ctx context.Context, productID string, qty int) error {
	e := s.entry(productID)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	e.p.Stock += qty
	e.mu.Unlock()
	return nil
}
