package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/services"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	EventSessionCompleted    = "checkout.session.completed"
	EventAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
)

// Gateway is a services.PaymentGateway backed by Stripe Checkout.
type Gateway struct {
	API           *client.API
	WebhookSecret string
}

func NewGateway(secretKey, webhookSecret string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{API: api, WebhookSecret: webhookSecret}
}

func (g *Gateway) CreateSession(ctx context.Context, req model.SessionRequest) (*model.CheckoutSession, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if len(li.Images) > 0 {
			product.Images = stripe.StringSlice(li.Images)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(ToCents(li.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(li.Quantity)),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := g.API.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create stripe session: %v", services.ErrUpstreamFailure, err)
	}
	return toSession(s), nil
}

func (g *Gateway) RetrieveSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	s, err := g.API.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && (se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing) {
			return nil, fmt.Errorf("%w: checkout session %s", services.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: retrieve stripe session: %v", services.ErrUpstreamFailure, err)
	}
	return toSession(s), nil
}

// ParseEvent verifies the Stripe-Signature header before decoding the event.
func (g *Gateway) ParseEvent(payload []byte, signatureHeader string) (*model.GatewayEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrInvalidSignature, err)
	}

	out := &model.GatewayEvent{Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || ev.Data == nil {
		return out, nil
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session event: %w", err)
	}
	out.SessionID = s.ID
	out.Completed = out.Type == EventSessionCompleted || out.Type == EventAsyncPaymentSuccess
	return out, nil
}

func toSession(s *stripe.CheckoutSession) *model.CheckoutSession {
	out := &model.CheckoutSession{
		ID:            s.ID,
		RedirectURL:   s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   FromCents(s.AmountTotal),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			unit := int64(0)
			if li.Price != nil {
				unit = li.Price.UnitAmount
			} else if li.Quantity > 0 {
				unit = li.AmountTotal / li.Quantity
			}
			out.LineItems = append(out.LineItems, model.LineItem{
				Name:      li.Description,
				UnitPrice: FromCents(unit),
				Quantity:  int(li.Quantity),
			})
		}
	}
	return out
}

func ToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
