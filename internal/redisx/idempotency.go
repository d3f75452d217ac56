package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// IdempotencyCache is the fast path in front of the ledger's unique (buyer, key) index.
// The database stays the source of truth.
type IdempotencyCache struct {
	Redis *redis.Client
}

func (c *IdempotencyCache) Lookup(ctx context.Context, buyerID, key string) (string, bool, error) {
	id, err := c.Redis.Get(ctx, fmt.Sprintf(KeyIdemOrderPlace, buyerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (c *IdempotencyCache) Remember(ctx context.Context, buyerID, key, orderID string) error {
	return c.Redis.Set(ctx, fmt.Sprintf(KeyIdemOrderPlace, buyerID, key), orderID, TTLIdempotency).Err()
}
