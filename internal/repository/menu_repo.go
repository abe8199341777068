package repository

import (
	"context"
	"errors"
	"fmt"

	"RestaurantAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

type MenuRepository struct {
	DB *pgxpool.Pool
}

func NewMenuRepository(db *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{DB: db}
}

const menuColumns = `menuitemid, name, description, price, image_url, category, available, updated_at`

func (r *MenuRepository) GetByID(ctx context.Context, id int64) (*model.MenuItem, error) {
	var m model.MenuItem
	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE menuitemid = $1`
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&m.MenuItemID, &m.Name, &m.Description, &m.Price, &m.ImageURL, &m.Category, &m.Available, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("query menu item: %w", err)
	}
	return &m, nil
}

// List returns available items grouped by category.
func (r *MenuRepository) List(ctx context.Context) ([]model.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE available ORDER BY category NULLS LAST, menuitemid`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.MenuItem{}
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.MenuItemID, &m.Name, &m.Description, &m.Price, &m.ImageURL, &m.Category, &m.Available, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
