// Package inventory holds per-product stock counters with
// compare-and-decrement semantics. It never emits events; rollback of a
// reservation is the engine's job via Release.
package inventory

import (
	"context"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/shopspring/decimal"
)

// Snapshot is captured inside the same critical section as the decrement, so
// the price an order is billed at can never drift from the price that was
// live when stock was taken.
type Snapshot struct {
	ProductID string
	SellerID  string
	UnitPrice decimal.Decimal
}

type Store interface {
	// Get returns the current product row. Lookup only; the core never
	// mutates product metadata other than stock.
	Get(ctx context.Context, productID string) (market.Product, error)

	// Reserve atomically checks active && stock >= qty and decrements.
	// Fails with *market.ProductUnavailableError or
	// *market.InsufficientStockError. Linearizable per product id.
	Reserve(ctx context.Context, productID string, qty int) (Snapshot, error)

	// Release undoes a reservation. Additive, so always safe to retry.
	// Unknown product ids are a no-op.
	Release(ctx context.Context, productID string, qty int) error
}
