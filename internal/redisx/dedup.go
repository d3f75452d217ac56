package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Deduper struct {
	Redis   *redis.Client
	Service string
}

// FirstSeen atomically marks id as processed and reports whether this call did it.
func (d *Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.Redis.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}

func (d *Deduper) Forget(ctx context.Context, id string) error {
	return d.Redis.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
