package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"RestaurantAPI/internal/cache"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/services"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

type snapCreator interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type statusChecker interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

// SessionStore keeps what Snap cannot carry for us.
type SessionStore interface {
	Put(ctx context.Context, sessionID string, s *cache.MirroredSession) error
	Get(ctx context.Context, sessionID string) (*cache.MirroredSession, error)
}

// Gateway is a services.PaymentGateway backed by Midtrans Snap. The session
// id is the Snap order id.
type Gateway struct {
	Snap      snapCreator
	Core      statusChecker
	Sessions  SessionStore
	ServerKey string
}

func NewGateway(serverKey string, production bool, sessions SessionStore) *Gateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var sc snap.Client
	sc.New(serverKey, env)
	var cc coreapi.Client
	cc.New(serverKey, env)
	return &Gateway{Snap: &sc, Core: &cc, Sessions: sessions, ServerKey: serverKey}
}

func (g *Gateway) CreateSession(ctx context.Context, req model.SessionRequest) (*model.CheckoutSession, error) {
	orderID := "ORDER-" + uuid.NewString()
	lines, meta, gross := wholeUnitSession(req)

	items := make([]midtrans.ItemDetails, 0, len(lines))
	for i, li := range lines {
		items = append(items, midtrans.ItemDetails{
			ID:    fmt.Sprintf("%d", i+1),
			Name:  truncate(li.Name, 50),
			Price: int64(li.UnitPrice),
			Qty:   int32(li.Quantity),
		})
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: gross,
		},
		Items:          &items,
		CustomerDetail: &midtrans.CustomerDetails{Email: req.CustomerEmail},
		Callbacks: &snap.Callbacks{
			Finish: strings.ReplaceAll(req.SuccessURL, model.SessionIDPlaceholder, orderID),
		},
	}

	mirrored := &cache.MirroredSession{
		CustomerEmail: req.CustomerEmail,
		AmountTotal:   float64(gross),
		Metadata:      meta,
		CreatedAt:     time.Now().UTC(),
	}
	for _, li := range lines {
		mirrored.LineItems = append(mirrored.LineItems, cache.MirroredLine{
			Name: li.Name, UnitPrice: li.UnitPrice, Quantity: li.Quantity, Images: li.Images,
		})
	}
	// mirror first: a paid transaction without its mirror cannot be reconciled
	if err := g.Sessions.Put(ctx, orderID, mirrored); err != nil {
		return nil, fmt.Errorf("mirror session: %w", err)
	}

	resp, snapErr := g.Snap.CreateTransaction(snapReq)
	if snapErr != nil {
		return nil, fmt.Errorf("%w: create snap transaction: %s", services.ErrUpstreamFailure, snapErr.Message)
	}

	return &model.CheckoutSession{
		ID:            orderID,
		RedirectURL:   resp.RedirectURL,
		PaymentStatus: "unpaid",
		AmountTotal:   float64(gross),
		CustomerEmail: req.CustomerEmail,
		LineItems:     lines,
		Metadata:      meta,
	}, nil
}

// wholeUnitSession rounds every line to whole units, since Snap charges no
// minor units, and rewrites the metadata amounts and item prices from those
// rounded lines. The gross charged is then exactly the total the order records.
func wholeUnitSession(req model.SessionRequest) ([]model.LineItem, map[string]string, int64) {
	lines := make([]model.LineItem, len(req.LineItems))
	var subtotal, tax, fee int64
	for i, li := range req.LineItems {
		price := wholeUnits(li.UnitPrice)
		li.UnitPrice = float64(price)
		lines[i] = li

		amount := price * int64(li.Quantity)
		switch {
		case strings.EqualFold(li.Name, model.LineItemTax):
			tax += amount
		case strings.EqualFold(li.Name, model.LineItemDeliveryFee):
			fee += amount
		default:
			subtotal += amount
		}
	}
	gross := subtotal + tax + fee

	meta := make(map[string]string, len(req.Metadata)+4)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta[model.MetaSubtotal] = decimal.NewFromInt(subtotal).StringFixed(2)
	meta[model.MetaTax] = decimal.NewFromInt(tax).StringFixed(2)
	meta[model.MetaDeliveryFee] = decimal.NewFromInt(fee).StringFixed(2)
	meta[model.MetaTotal] = decimal.NewFromInt(gross).StringFixed(2)

	if raw, ok := meta[model.MetaItems]; ok {
		var items []model.MetadataItem
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			for i := range items {
				items[i].Price = float64(wholeUnits(items[i].Price))
			}
			if b, err := json.Marshal(items); err == nil {
				meta[model.MetaItems] = string(b)
			}
		}
	}
	return lines, meta, gross
}

func (g *Gateway) RetrieveSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	m, err := g.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: checkout session %s", services.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: load mirrored session: %v", services.ErrUpstreamFailure, err)
	}

	status := "unpaid"
	resp, mErr := g.Core.CheckTransaction(sessionID)
	switch {
	case mErr != nil && mErr.StatusCode == http.StatusNotFound:
		// the customer has not picked a payment method yet
	case mErr != nil:
		return nil, fmt.Errorf("%w: check transaction: %s", services.ErrUpstreamFailure, mErr.Message)
	case resp != nil:
		if resp.StatusCode == "404" {
			break
		}
		if settled(resp.TransactionStatus, resp.FraudStatus) {
			status = model.PaymentStatusPaid
		} else {
			status = resp.TransactionStatus
		}
	}

	out := &model.CheckoutSession{
		ID:            sessionID,
		PaymentStatus: status,
		AmountTotal:   m.AmountTotal,
		CustomerEmail: m.CustomerEmail,
		Metadata:      m.Metadata,
	}
	for _, li := range m.LineItems {
		out.LineItems = append(out.LineItems, model.LineItem{
			Name: li.Name, UnitPrice: li.UnitPrice, Quantity: li.Quantity, Images: li.Images,
		})
	}
	return out, nil
}

type notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// ParseEvent decodes an HTTP notification. Midtrans signs inside the body,
// so the header argument is unused.
func (g *Gateway) ParseEvent(payload []byte, _ string) (*model.GatewayEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: malformed notification", services.ErrInvalidSignature)
	}
	if n.OrderID == "" || !VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey, g.ServerKey) {
		return nil, services.ErrInvalidSignature
	}
	return &model.GatewayEvent{
		Type:      n.TransactionStatus,
		SessionID: n.OrderID,
		Completed: settled(n.TransactionStatus, n.FraudStatus),
	}, nil
}

func settled(transactionStatus, fraudStatus string) bool {
	switch transactionStatus {
	case "settlement":
		return true
	case "capture":
		return fraudStatus == "accept"
	}
	return false
}

// VerifySignature checks sha512(order_id + status_code + gross_amount + server_key).
func VerifySignature(orderID, statusCode, grossAmount, signature, serverKey string) bool {
	hash := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	expected := hex.EncodeToString(hash[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// wholeUnits rounds to the currency's minor-unit-free amount Snap expects.
func wholeUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(0).IntPart()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
