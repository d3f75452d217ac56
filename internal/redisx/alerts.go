package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/redis/go-redis/v9"
)

// AlertFeed keeps the newest Size staff alerts.
type AlertFeed struct {
	Redis *redis.Client
	Size  int
}

func (f *AlertFeed) Push(ctx context.Context, a orders.StaffAlert) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = f.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, KeyStaffAlerts, b)
		p.LTrim(ctx, KeyStaffAlerts, 0, int64(f.Size-1))
		return nil
	})
	return err
}

func (f *AlertFeed) Recent(ctx context.Context, n int) ([]orders.StaffAlert, error) {
	if n <= 0 || n > f.Size {
		n = f.Size
	}
	raw, err := f.Redis.LRange(ctx, KeyStaffAlerts, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]orders.StaffAlert, 0, len(raw))
	for _, r := range raw {
		var a orders.StaffAlert
		if err := json.Unmarshal([]byte(r), &a); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
