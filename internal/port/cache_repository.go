package port

import (
	"context"
	"time"
)

// PriceCache is a short-TTL read cache for authoritative unit prices. It is a
// latency optimization only: a miss or a cache error must fall through to the
// catalog, and the cache is never consulted for stock decisions.
type PriceCache interface {
	// GetPrice returns the cached price and whether the entry was present.
	GetPrice(ctx context.Context, productID string) (int64, bool, error)

	// SetPrice stores a price with the given TTL, best effort.
	SetPrice(ctx context.Context, productID string, price int64, ttl time.Duration) error
}
