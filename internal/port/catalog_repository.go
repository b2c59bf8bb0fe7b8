package port

import (
	"context"

	"github.com/mercata/orderflow/internal/core/domain"
)

// CatalogRepository exposes product lookup and the stock ledger. Stock
// arithmetic must never be a read-modify-write: DecrementStock is a single
// conditional update at the storage layer and is the sole authority on
// whether stock suffices.
type CatalogRepository interface {
	// GetProduct retrieves a product by ID, nil when absent.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	// DecrementStock atomically subtracts quantity if enough stock remains and
	// returns the exact stock level this decrement produced. Returns
	// domain.ErrInsufficientStock without mutating anything when stock is
	// short or the product is unknown.
	DecrementStock(ctx context.Context, productID string, quantity int) (int, error)

	// RestoreStock adds quantity back, used by rollback and cancellation.
	RestoreStock(ctx context.Context, productID string, quantity int) error
}
