package port

import (
	"context"

	"github.com/mercata/orderflow/internal/core/domain"
)

// OrderRepository persists the order aggregate. Header and line items are
// written as separate statements; the service layer owns the compensating
// rollback when a later step fails.
type OrderRepository interface {
	// InsertOrder writes the order header.
	InsertOrder(ctx context.Context, order domain.Order) error

	// InsertLineItems writes all line items for an order. A failing
	// implementation may leave part of the batch behind; callers must delete
	// by order id when compensating.
	InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error

	// DeleteLineItems removes all line items of an order (rollback only).
	DeleteLineItems(ctx context.Context, orderID string) error

	// DeleteOrder removes the order header (rollback only).
	DeleteOrder(ctx context.Context, orderID string) error

	// GetOrder returns the order and its line items, domain.ErrOrderNotFound
	// when absent.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, []domain.OrderLineItem, error)

	// TransitionStatus conditionally moves an order from one status to
	// another; returns false if the order was not in the expected status.
	TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error)

	// CountOrdersByUser returns how many orders a user has placed.
	CountOrdersByUser(ctx context.Context, userID string) (int, error)
}
