package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisOrderCache keeps JSON snapshots of committed orders.
type RedisOrderCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisOrderCache(rdb redis.Cmdable, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{rdb: rdb, ttl: ttl}
}

func orderKey(id string) string { return "order:" + id }

func (r *RedisOrderCache) Get(ctx context.Context, orderID string) (*domain.Order, bool, error) {
	raw, err := r.rdb.Get(ctx, orderKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var o domain.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		// a corrupt entry is treated as a miss and overwritten on the next Set
		return nil, false, err
	}
	return &o, true, nil
}

func (r *RedisOrderCache) Set(ctx context.Context, o *domain.Order) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, orderKey(o.ID), raw, r.ttl).Err()
}

var _ usecase.OrderCache = (*RedisOrderCache)(nil)
