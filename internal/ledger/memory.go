package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
)

type MemoryLedger struct {
	mu     sync.RWMutex
	orders map[string]market.Order
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: make(map[string]market.Order)}
}

func (l *MemoryLedger) Append(ctx context.Context, o market.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	o.Items = append([]market.LineItem(nil), o.Items...)
	l.orders[o.ID] = o
	return nil
}

func (l *MemoryLedger) Get(ctx context.Context, orderID string) (market.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[orderID]
	if !ok {
		return market.Order{}, market.ErrOrderNotFound
	}
	o.Items = append([]market.LineItem(nil), o.Items...)
	return o, nil
}

func (l *MemoryLedger) List(ctx context.Context, f Filter, page, limit int) ([]market.Order, error) {
	page, limit = ClampPage(page, limit)

	l.mu.RLock()
	matched := make([]market.Order, 0, len(l.orders))
	for _, o := range l.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		matched = append(matched, o)
	}
	l.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := (page - 1) * limit
	if start >= len(matched) {
		return []market.Order{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]market.Order, end-start)
	for i, o := range matched[start:end] {
		o.Items = append([]market.LineItem(nil), o.Items...)
		out[i] = o
	}
	return out, nil
}

func (l *MemoryLedger) SetStatus(ctx context.Context, orderID string, to market.Status) (market.Order, market.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return market.Order{}, "", market.ErrOrderNotFound
	}
	from := o.Status
	if !to.Valid() || !market.CanTransition(from, to) {
		return market.Order{}, "", &market.InvalidTransitionError{From: from, To: to}
	}

	o.Status = to
	// UpdatedAt stays monotonically non-decreasing even if the wall clock
	// jumps backwards.
	if now := time.Now().UTC(); now.After(o.UpdatedAt) {
		o.UpdatedAt = now
	}
	l.orders[orderID] = o

	o.Items = append([]market.LineItem(nil), o.Items...)
	return o, from, nil
}
