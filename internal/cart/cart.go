package cart

import (
	"errors"
	"fmt"

	"RestaurantAPI/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotInCart   = errors.New("item not in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

type CartItem struct {
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Image      *string         `json:"image,omitempty"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is owned by a single client session and is not safe for concurrent use.
// Lines keep insertion order.
type Cart struct {
	items []CartItem
}

func New() *Cart {
	return &Cart{}
}

// Add snapshots the menu item's name and price. Adding an item already in
// the cart sums the quantities.
func (c *Cart) Add(item model.MenuItem, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if i := c.index(item.MenuItemID); i >= 0 {
		c.items[i].Quantity += qty
		return nil
	}
	c.items = append(c.items, CartItem{
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		UnitPrice:  decimal.NewFromFloat(item.Price),
		Quantity:   qty,
		Image:      item.ImageURL,
	})
	return nil
}

// UpdateQuantity sets the line quantity; zero or less removes the line.
func (c *Cart) UpdateQuantity(id int64, qty int) error {
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("menu item %d: %w", id, ErrItemNotInCart)
	}
	if qty <= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		return nil
	}
	c.items[i].Quantity = qty
	return nil
}

func (c *Cart) Remove(id int64) error {
	return c.UpdateQuantity(id, 0)
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) index(id int64) int {
	for i := range c.items {
		if c.items[i].MenuItemID == id {
			return i
		}
	}
	return -1
}

// CheckoutRequest renders the cart and its totals into the request body the
// checkout endpoint accepts.
func (c *Cart) CheckoutRequest(rules PricingRules, delivery model.DeliveryInfo) model.CheckoutRequest {
	t := c.Totals(rules)
	req := model.CheckoutRequest{
		Delivery:    delivery,
		Subtotal:    t.Subtotal.InexactFloat64(),
		Tax:         t.Tax.InexactFloat64(),
		DeliveryFee: t.DeliveryFee.InexactFloat64(),
		Total:       t.Total.InexactFloat64(),
	}
	for _, it := range c.items {
		req.Items = append(req.Items, model.CheckoutItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      it.UnitPrice.InexactFloat64(),
			Quantity:   it.Quantity,
			Image:      it.Image,
		})
	}
	return req
}
