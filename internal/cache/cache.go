package cache

import (
	"context"
	"errors"

	"RestaurantAPI/internal/model"
)

type MenuCache interface {
	Get(ctx context.Context, id int64) (*model.MenuItem, error)
	Set(ctx context.Context, item *model.MenuItem) error
	Delete(ctx context.Context, id int64) error
}

var ErrCacheMiss = errors.New("cache miss")
