package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Order is a row in the orders table. Items are point-in-time snapshots,
// never live references into the menu.
type Order struct {
	ID                uuid.UUID   `json:"id"`
	UserID            int64       `json:"user_id"`
	Items             []OrderItem `json:"items"`
	Subtotal          float64     `json:"subtotal"`
	Tax               float64     `json:"tax"`
	DeliveryFee       float64     `json:"delivery_fee"`
	Total             float64     `json:"total"`
	DeliveryAddress   string      `json:"delivery_address"`
	Phone             string      `json:"phone"`
	Notes             *string     `json:"notes,omitempty"`
	CheckoutSessionID *string     `json:"checkout_session_id,omitempty"`
	Status            OrderStatus `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	// filled by admin listings only
	UserEmail string `json:"user_email,omitempty"`
}

// OrderItem is stored inside orders.items (jsonb).
type OrderItem struct {
	MenuItemID int64   `json:"menu_item_id,omitempty"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Image      *string `json:"image,omitempty"`
}

// MoneyTolerance is the allowed drift between total and its parts.
const MoneyTolerance = 0.01

// TotalsBalanced reports whether total == subtotal + tax + deliveryFee
// within MoneyTolerance and no amount is negative.
func TotalsBalanced(subtotal, tax, deliveryFee, total float64) bool {
	if subtotal < 0 || tax < 0 || deliveryFee < 0 || total < 0 {
		return false
	}
	return math.Abs(subtotal+tax+deliveryFee-total) < MoneyTolerance+1e-9
}

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
	Status *OrderStatus
	From   *time.Time
	To     *time.Time
	Search string
	Limit  int
	Offset int
}

// NewOrderInput carries everything needed to persist a new order.
type NewOrderInput struct {
	UserID            int64
	Items             []OrderItem
	Subtotal          float64
	Tax               float64
	DeliveryFee       float64
	Total             float64
	DeliveryAddress   string
	Phone             string
	Notes             *string
	CheckoutSessionID *string
	Status            OrderStatus
}
