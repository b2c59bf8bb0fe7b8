package domain

import (
	"errors"
	"fmt"
)

// Closed error taxonomy for the order-creation pipeline. Callers match with
// errors.Is / errors.As; no other error kinds escape the service layer.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrTooManyItems      = errors.New("too many items")
	ErrTotalTooLow       = errors.New("order total too low")
	ErrTotalTooHigh      = errors.New("order total too high")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
)

// PersistenceError wraps an underlying storage failure after compensating
// rollback was attempted. The original cause is preserved for logging.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
