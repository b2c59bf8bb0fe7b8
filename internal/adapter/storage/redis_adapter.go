package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const priceKeyPrefix = "price:"

// RedisAdapter is the short-TTL price cache. It is advisory only: every
// error degrades to a cache miss at the call site and the catalog remains
// the source of truth.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetPrice(ctx context.Context, productID string) (int64, bool, error) {
	price, err := r.client.Get(ctx, priceKeyPrefix+productID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (r *RedisAdapter) SetPrice(ctx context.Context, productID string, price int64, ttl time.Duration) error {
	return r.client.Set(ctx, priceKeyPrefix+productID, price, ttl).Err()
}
