package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"RestaurantAPI/internal/cart"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// ReconciliationService turns completed checkout sessions into orders.
// The client verify path and the webhook path both land in reconcile, and
// the store's unique session index guarantees one order per session.
type ReconciliationService struct {
	Orders    OrderStore
	Users     UserDirectory
	Gateway   PaymentGateway
	Resolvers []ItemResolver
	// Notifier is optional; failures are logged, never returned.
	Notifier OrderNotifier
	Logger   *log.Logger
}

func NewReconciliationService(orders OrderStore, users UserDirectory, gw PaymentGateway, logger *log.Logger) *ReconciliationService {
	return &ReconciliationService{
		Orders:    orders,
		Users:     users,
		Gateway:   gw,
		Resolvers: DefaultItemResolvers(),
		Logger:    logger,
	}
}

// VerifySession returns the id of the order for a paid session, creating it
// on first call. Repeat calls return the same id without mutating anything.
func (s *ReconciliationService) VerifySession(ctx context.Context, sessionID string) (uuid.UUID, error) {
	o, err := s.reconcile(ctx, sessionID, "verify")
	if err != nil {
		return uuid.Nil, err
	}
	return o.ID, nil
}

// VerifySessionFor is VerifySession for an authenticated caller, who must
// own the resulting order.
func (s *ReconciliationService) VerifySessionFor(ctx context.Context, callerID int64, sessionID string) (uuid.UUID, error) {
	o, err := s.reconcile(ctx, sessionID, "verify")
	if err != nil {
		return uuid.Nil, err
	}
	if o.UserID != callerID {
		s.Logger.Warnj(log.JSON{"event": "verify_session_foreign_caller", "session_id": sessionID, "caller_id": callerID})
		return uuid.Nil, ErrForbidden
	}
	return o.ID, nil
}

// Reconcile is the manual admin path.
func (s *ReconciliationService) Reconcile(ctx context.Context, sessionID string) (*model.Order, error) {
	return s.reconcile(ctx, sessionID, "admin")
}

// HandleNotification processes a provider webhook. Only a payload that fails
// signature verification is reported back; every other failure is logged
// and acknowledged so the provider stops retrying.
func (s *ReconciliationService) HandleNotification(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.Gateway.ParseEvent(payload, signature)
	if errors.Is(err, ErrInvalidSignature) {
		s.Logger.Warnj(log.JSON{"event": "webhook_rejected", "error": err.Error()})
		return err
	}
	if err != nil {
		// signed by the provider but not something we can read
		s.Logger.Errorj(log.JSON{"event": "webhook_unparseable", "error": err.Error()})
		return nil
	}

	if !ev.Completed {
		s.Logger.Infoj(log.JSON{"event": "webhook_ignored", "type": ev.Type, "session_id": ev.SessionID})
		return nil
	}

	if _, err := s.reconcile(ctx, ev.SessionID, "webhook"); err != nil {
		s.Logger.Errorj(log.JSON{
			"event":      "webhook_reconcile_failed",
			"type":       ev.Type,
			"session_id": ev.SessionID,
			"error":      err.Error(),
		})
	}
	return nil
}

func (s *ReconciliationService) reconcile(ctx context.Context, sessionID, source string) (*model.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidCheckout)
	}

	sess, err := s.Gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, upstream(err)
	}
	if !sess.Paid() {
		return nil, ErrPaymentNotCompleted
	}

	existing, err := s.Orders.FindBySessionID(ctx, sessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("lookup order for session: %w", err)
	}

	user, err := s.resolveUser(ctx, sess)
	if err != nil {
		return nil, err
	}

	items, err := resolveItems(s.Resolvers, sess)
	if err != nil {
		return nil, err
	}

	fin := resolveFinancials(sess, items)

	address := strings.TrimSpace(sess.Metadata[model.MetaDeliveryAddress])
	if address == "" && user.Address != nil {
		address = *user.Address
	}
	phone := strings.TrimSpace(sess.Metadata[model.MetaPhone])
	if phone == "" && user.Phone != nil {
		phone = *user.Phone
	}
	notes := repository.SessionNote + sessionID
	if in := strings.TrimSpace(sess.Metadata[model.MetaInstructions]); in != "" {
		notes += "\n" + in
	}

	sid := sessionID
	o, err := s.Orders.CreateOrder(ctx, model.NewOrderInput{
		UserID:            user.UserID,
		Items:             items,
		Subtotal:          fin.Subtotal.InexactFloat64(),
		Tax:               fin.Tax.InexactFloat64(),
		DeliveryFee:       fin.DeliveryFee.InexactFloat64(),
		Total:             fin.Total.InexactFloat64(),
		DeliveryAddress:   address,
		Phone:             phone,
		Notes:             &notes,
		CheckoutSessionID: &sid,
		Status:            model.OrderStatusConfirmed,
	})
	if errors.Is(err, repository.ErrDuplicateCheckout) {
		// the other path won the race
		o, err = s.Orders.FindBySessionID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load order after duplicate insert: %w", err)
		}
		return o, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.Logger.Infoj(log.JSON{
		"event":      "order_reconciled",
		"source":     source,
		"session_id": sessionID,
		"order_id":   o.ID.String(),
		"user_id":    o.UserID,
		"total":      fin.Total.StringFixed(2),
		"fallback":   fin.Fallback,
	})
	if s.Notifier != nil {
		if err := s.Notifier.SendOrderConfirmation(ctx, user.Email, o); err != nil {
			s.Logger.Warnj(log.JSON{"event": "order_confirmation_failed", "order_id": o.ID.String(), "error": err.Error()})
		}
	}
	return o, nil
}

func (s *ReconciliationService) resolveUser(ctx context.Context, sess *model.CheckoutSession) (*model.User, error) {
	email := strings.TrimSpace(sess.Metadata[model.MetaUserEmail])
	if email == "" {
		email = strings.TrimSpace(sess.CustomerEmail)
	}
	if email == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

type financials struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
	Fallback    bool
}

// resolveFinancials prefers the amounts recorded at checkout. When any of
// them is missing, unparseable or unbalanced, the gateway's charged total is
// trusted and the parts are rebuilt around it.
func resolveFinancials(sess *model.CheckoutSession, items []model.OrderItem) financials {
	subtotal, okSub := metaMoney(sess.Metadata, model.MetaSubtotal)
	tax, okTax := metaMoney(sess.Metadata, model.MetaTax)
	fee, okFee := metaMoney(sess.Metadata, model.MetaDeliveryFee)
	total, okTotal := metaMoney(sess.Metadata, model.MetaTotal)

	if okSub && okTax && okFee && okTotal &&
		subtotal.Add(tax).Add(fee).Sub(total).Abs().LessThanOrEqual(centTolerance) {
		return financials{Subtotal: subtotal, Tax: tax, DeliveryFee: fee, Total: subtotal.Add(tax).Add(fee)}
	}

	itemsSubtotal := decimal.Zero
	for _, it := range items {
		itemsSubtotal = itemsSubtotal.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	itemsSubtotal = cart.RoundCents(itemsSubtotal)

	if !okSub {
		subtotal = itemsSubtotal
	}
	if !okTax {
		tax = decimal.Zero
	}
	if !okFee {
		fee = decimal.Zero
	}
	total = cart.RoundCents(decimal.NewFromFloat(sess.AmountTotal))
	if total.IsPositive() {
		if rem := total.Sub(subtotal).Sub(tax); !rem.IsNegative() {
			return financials{Subtotal: subtotal, Tax: tax, DeliveryFee: rem, Total: total, Fallback: true}
		}
	}

	subtotal = itemsSubtotal
	return financials{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       subtotal.Add(tax).Add(fee),
		Fallback:    true,
	}
}

func metaMoney(meta map[string]string, key string) (decimal.Decimal, bool) {
	raw, ok := meta[key]
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return cart.RoundCents(d), true
}
