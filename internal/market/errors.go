package market

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder      = errors.New("order has no line items")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product inactive")
	ErrOrderNotFound   = errors.New("order not found")
)

// ProductUnavailableError: the product cannot be ordered at all, as opposed
// to existing with too little stock. Reason is ErrProductNotFound or
// ErrProductInactive.
type ProductUnavailableError struct {
	ProductID string
	Reason    error
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s unavailable: %v", e.ProductID, e.Reason)
}

func (e *ProductUnavailableError) Unwrap() error { return e.Reason }

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// PersistenceError marks a storage failure during commit. Distinct from
// availability errors so the caller can treat it as retryable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
