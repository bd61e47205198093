// Package ledger is the append-only order store. Orders enter exactly once
// via Append and afterwards change only through the status state machine;
// cancellation is a status, never a deletion.
package ledger

import (
	"context"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
)

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status market.Status
	UserID string
}

type Ledger interface {
	// Append persists a freshly built order. Fails if the id already exists.
	Append(ctx context.Context, o market.Order) error

	Get(ctx context.Context, orderID string) (market.Order, error)

	// List returns orders newest-first. page starts at 1.
	List(ctx context.Context, f Filter, page, limit int) ([]market.Order, error)

	// SetStatus applies one state-machine transition and bumps UpdatedAt.
	// Returns the updated order and the status it transitioned from.
	// Fails with market.ErrOrderNotFound or *market.InvalidTransitionError.
	SetStatus(ctx context.Context, orderID string, to market.Status) (market.Order, market.Status, error)
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ClampPage normalizes page/limit the same way for every adapter.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
