package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisOrderCache_RoundTripAndExpiry(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewRedisOrderCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)

	o := &domain.Order{
		ID:         "o1",
		CustomerID: "c1",
		Items:      []domain.LineItem{{ProductID: "p1", Barcode: "01012400001", Name: "Tea", Quantity: 2, UnitPrice: 15000, Total: 30000}},
		TotalPrice: 30000,
		Payment:    domain.PaymentInfo{AmountPaid: 50000, Change: 20000},
		Status:     domain.StatusCompleted,
		CreatedAt:  time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, o))
	assert.True(t, mr.Exists("order:o1"))

	got, ok, err := c.Get(ctx, "o1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, o, got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisOrderCache_CorruptEntry(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set("order:o1", "{not json"))

	_, ok, err := NewRedisOrderCache(rdb, time.Minute).Get(context.Background(), "o1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisIdempotency_LockRememberRelease(t *testing.T) {
	_, rdb := newRedis(t)
	s := NewRedisIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "emp-1", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryLock(ctx, "emp-1", "k1")
	require.NoError(t, err)
	assert.False(t, ok, "second lock while in flight")

	ok, err = s.TryLock(ctx, "emp-2", "k1")
	require.NoError(t, err)
	assert.True(t, ok, "keys are scoped per employee")

	_, found, err := s.Recall(ctx, "emp-1", "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remember(ctx, "emp-1", "k1", "order-9"))
	id, found, err := s.Recall(ctx, "emp-1", "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "order-9", id)

	require.NoError(t, s.Release(ctx, "emp-2", "k1"))
	ok, err = s.TryLock(ctx, "emp-2", "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisIdempotency_ServerDown(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()

	_, err := NewRedisIdempotencyStore(rdb, time.Hour).TryLock(context.Background(), "emp-1", "k1")
	assert.Error(t, err)
}
