package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/builderhub/checkout/internal/core/domain"
)

const (
	itemKeyPrefix     = "item:"
	itemCacheTTL      = 5 * time.Minute
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter carries the purchase-attempt idempotency keys and a
// cache of item snapshots for the browse path.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	val, err := r.client.Get(ctx, itemKeyPrefix+itemID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item domain.Item
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return nil, fmt.Errorf("decode cached item: %w", err)
	}
	return &item, nil
}

func (r *RedisAdapter) SetItem(ctx context.Context, item *domain.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	return r.client.Set(ctx, itemKeyPrefix+item.ID, data, itemCacheTTL).Err()
}

func (r *RedisAdapter) InvalidateItem(ctx context.Context, itemID string) error {
	return r.client.Del(ctx, itemKeyPrefix+itemID).Err()
}
