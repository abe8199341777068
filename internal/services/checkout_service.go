package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"RestaurantAPI/internal/cart"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/repository"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// Stripe rejects metadata values longer than this; the items list is left
// out past it and recovered from line items instead.
const maxMetadataValue = 500

var centTolerance = decimal.NewFromFloat(model.MoneyTolerance)

type CheckoutService struct {
	Users    UserDirectory
	Menu     MenuCatalog
	Gateway  PaymentGateway
	Pricing  cart.PricingRules
	BaseURL  string
	Currency string
	Logger   *log.Logger
}

func NewCheckoutService(
	users UserDirectory,
	menu MenuCatalog,
	gw PaymentGateway,
	pricing cart.PricingRules,
	baseURL string,
	currency string,
	logger *log.Logger,
) *CheckoutService {
	return &CheckoutService{
		Users:    users,
		Menu:     menu,
		Gateway:  gw,
		Pricing:  pricing,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Currency: currency,
		Logger:   logger,
	}
}

// CreateCheckoutSession re-prices the submitted cart against the menu and
// opens a hosted payment session carrying everything needed to rebuild the
// order once payment completes.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, callerID int64, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
	user, err := s.Users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve caller: %w", err)
	}

	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	c, err := s.priceCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	totals := c.Totals(s.Pricing)
	if err := matchTotals(req, totals); err != nil {
		return nil, err
	}

	lines := make([]model.LineItem, 0, c.Len()+2)
	metaItems := make([]model.MetadataItem, 0, c.Len())
	for _, it := range c.Items() {
		li := model.LineItem{
			Name:      it.Name,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Quantity:  it.Quantity,
		}
		if it.Image != nil && *it.Image != "" {
			li.Images = []string{*it.Image}
		}
		lines = append(lines, li)
		metaItems = append(metaItems, model.MetadataItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      it.UnitPrice.InexactFloat64(),
			Quantity:   it.Quantity,
			Image:      it.Image,
		})
	}
	if !totals.Tax.IsZero() {
		lines = append(lines, model.LineItem{Name: model.LineItemTax, UnitPrice: totals.Tax.InexactFloat64(), Quantity: 1})
	}
	if !totals.DeliveryFee.IsZero() {
		lines = append(lines, model.LineItem{Name: model.LineItemDeliveryFee, UnitPrice: totals.DeliveryFee.InexactFloat64(), Quantity: 1})
	}

	meta := map[string]string{
		model.MetaUserID:          strconv.FormatInt(user.UserID, 10),
		model.MetaUserEmail:       user.Email,
		model.MetaSubtotal:        totals.Subtotal.StringFixed(2),
		model.MetaTax:             totals.Tax.StringFixed(2),
		model.MetaDeliveryFee:     totals.DeliveryFee.StringFixed(2),
		model.MetaTotal:           totals.Total.StringFixed(2),
		model.MetaDeliveryAddress: strings.TrimSpace(req.Delivery.Address),
		model.MetaPhone:           strings.TrimSpace(req.Delivery.Phone),
	}
	if in := strings.TrimSpace(req.Delivery.Instructions); in != "" {
		meta[model.MetaInstructions] = in
	}
	itemsJSON, err := json.Marshal(metaItems)
	if err != nil {
		return nil, fmt.Errorf("marshal items metadata: %w", err)
	}
	if len(itemsJSON) <= maxMetadataValue {
		meta[model.MetaItems] = string(itemsJSON)
	} else {
		s.Logger.Warnj(log.JSON{"event": "checkout_items_metadata_truncated", "user_id": user.UserID, "size": len(itemsJSON)})
	}

	sess, err := s.Gateway.CreateSession(ctx, model.SessionRequest{
		LineItems:     lines,
		SuccessURL:    s.BaseURL + "/checkout/success?session_id=" + model.SessionIDPlaceholder,
		CancelURL:     s.BaseURL + "/cart",
		CustomerEmail: user.Email,
		Currency:      s.Currency,
		Total:         totals.Total.InexactFloat64(),
		Metadata:      meta,
	})
	if err != nil {
		s.Logger.Errorj(log.JSON{"event": "checkout_session_failed", "user_id": user.UserID, "error": err.Error()})
		return nil, upstream(err)
	}

	s.Logger.Infoj(log.JSON{
		"event":      "checkout_session_created",
		"session_id": sess.ID,
		"user_id":    user.UserID,
		"total":      totals.Total.StringFixed(2),
	})
	return &model.CheckoutResponse{SessionID: sess.ID, RedirectURL: sess.RedirectURL}, nil
}

func validateCheckout(req model.CheckoutRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidCheckout)
	}
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity for item %d must be at least 1", ErrInvalidCheckout, it.MenuItemID)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: price for item %d is negative", ErrInvalidCheckout, it.MenuItemID)
		}
	}
	if strings.TrimSpace(req.Delivery.Address) == "" {
		return fmt.Errorf("%w: delivery address is required", ErrInvalidCheckout)
	}
	if strings.TrimSpace(req.Delivery.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidCheckout)
	}
	// delivery fields travel as gateway metadata values, which are length-capped
	for field, v := range map[string]string{
		"delivery address": req.Delivery.Address,
		"phone":            req.Delivery.Phone,
		"instructions":     req.Delivery.Instructions,
	} {
		if utf8.RuneCountInString(strings.TrimSpace(v)) > maxMetadataValue {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidCheckout, field, maxMetadataValue)
		}
	}
	if !model.TotalsBalanced(req.Subtotal, req.Tax, req.DeliveryFee, req.Total) {
		return fmt.Errorf("%w: total must equal subtotal + tax + delivery fee", ErrInvalidCheckout)
	}
	return nil
}

// priceCart rebuilds the cart from catalog prices; the client's names and
// prices are display hints only.
func (s *CheckoutService) priceCart(ctx context.Context, items []model.CheckoutItem) (*cart.Cart, error) {
	c := cart.New()
	for _, it := range items {
		mi, err := s.Menu.GetByID(ctx, it.MenuItemID)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, repository.ErrMenuItemNotFound) {
				return nil, fmt.Errorf("%w: menu item %d does not exist", ErrInvalidCheckout, it.MenuItemID)
			}
			return nil, fmt.Errorf("load menu item %d: %w", it.MenuItemID, err)
		}
		if !mi.Available {
			return nil, fmt.Errorf("%w: %s is not available", ErrInvalidCheckout, mi.Name)
		}
		snap := *mi
		if snap.ImageURL == nil {
			snap.ImageURL = it.Image
		}
		if err := c.Add(snap, it.Quantity); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
		}
	}
	return c, nil
}

func matchTotals(req model.CheckoutRequest, t cart.Totals) error {
	checks := []struct {
		name string
		got  float64
		want decimal.Decimal
	}{
		{"subtotal", req.Subtotal, t.Subtotal},
		{"tax", req.Tax, t.Tax},
		{"delivery fee", req.DeliveryFee, t.DeliveryFee},
		{"total", req.Total, t.Total},
	}
	for _, c := range checks {
		if decimal.NewFromFloat(c.got).Sub(c.want).Abs().GreaterThan(centTolerance) {
			return fmt.Errorf("%w: %s %.2f does not match current menu pricing (%s)",
				ErrInvalidCheckout, c.name, c.got, c.want.StringFixed(2))
		}
	}
	return nil
}
