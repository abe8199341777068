package services

import (
	"encoding/json"
	"errors"
	"strings"

	"RestaurantAPI/internal/model"
)

// errTryNext tells the resolver chain to move on to the next strategy.
var errTryNext = errors.New("resolver could not produce items")

// ItemResolver rebuilds the ordered items from a completed checkout session.
type ItemResolver interface {
	Resolve(sess *model.CheckoutSession) ([]model.OrderItem, error)
}

// DefaultItemResolvers is metadata first, gateway line items second.
func DefaultItemResolvers() []ItemResolver {
	return []ItemResolver{MetadataItemResolver{}, LineItemResolver{}}
}

// MetadataItemResolver reads the items JSON embedded at checkout.
type MetadataItemResolver struct{}

func (MetadataItemResolver) Resolve(sess *model.CheckoutSession) ([]model.OrderItem, error) {
	raw, ok := sess.Metadata[model.MetaItems]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errTryNext
	}
	var meta []model.MetadataItem
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, errTryNext
	}

	items := make([]model.OrderItem, 0, len(meta))
	for _, m := range meta {
		if m.Quantity < 1 || m.Price < 0 || strings.TrimSpace(m.Name) == "" {
			return nil, errTryNext
		}
		items = append(items, model.OrderItem{
			MenuItemID: m.MenuItemID,
			Name:       m.Name,
			Price:      m.Price,
			Quantity:   m.Quantity,
			Image:      m.Image,
		})
	}
	if len(items) == 0 {
		return nil, errTryNext
	}
	return items, nil
}

// LineItemResolver uses the gateway's line items, skipping the synthetic
// tax and delivery fee lines. Menu item ids are unknown on this path.
type LineItemResolver struct{}

func (LineItemResolver) Resolve(sess *model.CheckoutSession) ([]model.OrderItem, error) {
	var items []model.OrderItem
	for _, li := range sess.LineItems {
		name := strings.TrimSpace(li.Name)
		if name == "" || isSyntheticLine(name) || li.Quantity < 1 || li.UnitPrice < 0 {
			continue
		}
		it := model.OrderItem{Name: name, Price: li.UnitPrice, Quantity: li.Quantity}
		if len(li.Images) > 0 {
			img := li.Images[0]
			it.Image = &img
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, errTryNext
	}
	return items, nil
}

func isSyntheticLine(name string) bool {
	return strings.EqualFold(name, model.LineItemTax) || strings.EqualFold(name, model.LineItemDeliveryFee)
}

func resolveItems(resolvers []ItemResolver, sess *model.CheckoutSession) ([]model.OrderItem, error) {
	for _, r := range resolvers {
		items, err := r.Resolve(sess)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, errTryNext) {
			return nil, err
		}
	}
	return nil, ErrNoItemsResolved
}
