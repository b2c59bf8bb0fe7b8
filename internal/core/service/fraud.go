package service

import (
	"fmt"

	"github.com/mercata/orderflow/internal/core/domain"
)

const (
	// MaxItemQuantity is the per-product quantity ceiling.
	MaxItemQuantity = 50
	// MaxItemsPerOrder bounds the number of distinct line items.
	MaxItemsPerOrder = 50
	// MinOrderTotal and MaxOrderTotal bound the computed total, minor units.
	MinOrderTotal int64 = 1
	MaxOrderTotal int64 = 1_000_000
)

// ValidateOrderBounds rejects structurally implausible orders. It is pure and
// runs before any stock check or persistence. Rules run in order; the first
// violation wins.
func ValidateOrderBounds(items []domain.ResolvedLineItem, total int64) error {
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > MaxItemQuantity {
			return fmt.Errorf("%w: product %s quantity %d", domain.ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
	}
	if len(items) > MaxItemsPerOrder {
		return fmt.Errorf("%w: %d line items", domain.ErrTooManyItems, len(items))
	}
	if total < MinOrderTotal {
		return fmt.Errorf("%w: total %d", domain.ErrTotalTooLow, total)
	}
	if total > MaxOrderTotal {
		return fmt.Errorf("%w: total %d", domain.ErrTotalTooHigh, total)
	}
	return nil
}
