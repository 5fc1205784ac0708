package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestOrderStatusCache(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := CachedOrderStatus(ctx, rdb, "o-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, CacheOrderStatus(ctx, rdb, "o-1", "paid"))
	s, ok, err := CachedOrderStatus(ctx, rdb, "o-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, OrderStatus{OrderID: "o-1", Status: "paid"}, s)

	mr.FastForward(TTLStatusCache + time.Second)
	_, ok, err = CachedOrderStatus(ctx, rdb, "o-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	key := DedupKey("inventory", "evt-1")

	first, err := MarkOnce(ctx, rdb, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := MarkOnce(ctx, rdb, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, Unmark(ctx, rdb, key))
	again, err := MarkOnce(ctx, rdb, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "order_status:abc", OrderStatusKey("abc"))
	assert.Equal(t, "dedup:inventory:e1", DedupKey("inventory", "e1"))
	assert.Equal(t, "session:s1", SessionKey("s1"))
}
