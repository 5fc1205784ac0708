package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// OrderStatus is the cached shape served by GET /api/orders/{id}.
type OrderStatus struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func CacheOrderStatus(ctx context.Context, rdb redis.Cmdable, orderID, status string) error {
	b, err := json.Marshal(OrderStatus{OrderID: orderID, Status: status})
	if err != nil {
		return err
	}
	return rdb.Set(ctx, OrderStatusKey(orderID), b, TTLStatusCache).Err()
}

// CachedOrderStatus returns ok=false on a cache miss.
func CachedOrderStatus(ctx context.Context, rdb redis.Cmdable, orderID string) (OrderStatus, bool, error) {
	var s OrderStatus
	b, err := rdb.Get(ctx, OrderStatusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, false, err
	}
	return s, true, nil
}

// MarkOnce sets key with ttl and reports whether this call was the first.
func MarkOnce(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Unmark drops a MarkOnce key so a failed attempt can be retried.
func Unmark(ctx context.Context, rdb redis.Cmdable, key string) error {
	return rdb.Del(ctx, key).Err()
}
