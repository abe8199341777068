package model

import "time"

type MenuItem struct {
	MenuItemID  int64     `json:"menu_item_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Available   bool      `json:"available"`
	UpdatedAt   time.Time `json:"updated_at"`
}
