package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"RestaurantAPI/internal/model"

	"github.com/redis/go-redis/v9"
)

func NewRedisMenuCache(client *redis.Client) *RedisMenuCache {
	return &RedisMenuCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisMenuCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisMenuCache) Get(ctx context.Context, id int64) (*model.MenuItem, error) {
	data, err := r.client.Get(ctx, menuKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var item model.MenuItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("unmarshal menu item failed: %w", err)
	}
	return &item, nil
}

func (r *RedisMenuCache) Set(ctx context.Context, item *model.MenuItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal menu item failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, menuKey(item.MenuItemID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisMenuCache) Delete(ctx context.Context, id int64) error {
	if err := r.client.Del(ctx, menuKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func menuKey(id int64) string {
	return fmt.Sprintf("menu:%d", id)
}
