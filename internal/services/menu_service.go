package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"RestaurantAPI/internal/cache"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/repository"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/singleflight"
)

// MenuService is the read-only catalog. Cache may be nil.
type MenuService struct {
	Repo   MenuCatalog
	Cache  cache.MenuCache
	Logger *log.Logger
	sfg    singleflight.Group
}

func NewMenuService(repo MenuCatalog, c cache.MenuCache, logger *log.Logger) *MenuService {
	return &MenuService{Repo: repo, Cache: c, Logger: logger}
}

func (s *MenuService) GetByID(ctx context.Context, id int64) (*model.MenuItem, error) {
	if s.Cache != nil {
		item, err := s.Cache.Get(ctx, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.Logger.Warnj(log.JSON{"event": "menu_cache_get_failed", "menu_item_id": id, "error": err.Error()})
		}
	}

	// concurrent misses for the same item share one database read
	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		item, err := s.Repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.Cache != nil {
			if err := s.Cache.Set(ctx, item); err != nil {
				s.Logger.Warnj(log.JSON{"event": "menu_cache_set_failed", "menu_item_id": id, "error": err.Error()})
			}
		}
		return item, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrMenuItemNotFound) {
			return nil, fmt.Errorf("%w: menu item %d", ErrNotFound, id)
		}
		return nil, err
	}
	return v.(*model.MenuItem), nil
}

func (s *MenuService) List(ctx context.Context) ([]model.MenuItem, error) {
	return s.Repo.List(ctx)
}
