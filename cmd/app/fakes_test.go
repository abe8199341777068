package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"RestaurantAPI/internal/cart"
	"RestaurantAPI/internal/config"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/repository"
	"RestaurantAPI/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*model.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uuid.UUID]*model.Order{}}
}

func (m *memOrders) CreateOrder(_ context.Context, in model.NewOrderInput) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.CheckoutSessionID != nil {
		for _, o := range m.orders {
			if o.CheckoutSessionID != nil && *o.CheckoutSessionID == *in.CheckoutSessionID {
				return nil, repository.ErrDuplicateCheckout
			}
		}
	}
	o := &model.Order{
		ID: uuid.New(), UserID: in.UserID, Items: in.Items,
		Subtotal: in.Subtotal, Tax: in.Tax, DeliveryFee: in.DeliveryFee, Total: in.Total,
		DeliveryAddress: in.DeliveryAddress, Phone: in.Phone, Notes: in.Notes,
		CheckoutSessionID: in.CheckoutSessionID, Status: in.Status,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (m *memOrders) FindBySessionID(_ context.Context, sessionID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.CheckoutSessionID != nil && *o.CheckoutSessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) List(_ context.Context, f model.OrderFilter) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.To != nil && !o.CreatedAt.Before(*f.To) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Status = status
	cp := *o
	return &cp, nil
}

func (m *memOrders) UpdateStatusIf(_ context.Context, id uuid.UUID, from, to model.OrderStatus) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, repository.ErrStatusChanged
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

type memUsers []model.User

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for i := range m {
		if m[i].Email == email {
			return &m[i], nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	for i := range m {
		if m[i].UserID == id {
			return &m[i], nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type memMenu map[int64]model.MenuItem

func (m memMenu) GetByID(_ context.Context, id int64) (*model.MenuItem, error) {
	it, ok := m[id]
	if !ok {
		return nil, repository.ErrMenuItemNotFound
	}
	return &it, nil
}

func (m memMenu) List(_ context.Context) ([]model.MenuItem, error) {
	out := []model.MenuItem{}
	for _, it := range m {
		out = append(out, it)
	}
	return out, nil
}

// fakeGateway stores sessions in memory. Signature "good" is the only valid one;
// payloads are {"session_id": "...", "type": "..."}.
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*model.CheckoutSession
	seq      int
}

func (g *fakeGateway) CreateSession(_ context.Context, req model.SessionRequest) (*model.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	s := &model.CheckoutSession{
		ID:            id,
		RedirectURL:   "https://pay.example.com/" + id,
		PaymentStatus: "unpaid",
		AmountTotal:   req.Total,
		CustomerEmail: req.CustomerEmail,
		LineItems:     req.LineItems,
		Metadata:      req.Metadata,
	}
	g.sessions[id] = s
	return s, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, id string) (*model.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) ParseEvent(payload []byte, sig string) (*model.GatewayEvent, error) {
	if sig != "good" {
		return nil, services.ErrInvalidSignature
	}
	var body struct {
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrInvalidSignature, err)
	}
	return &model.GatewayEvent{
		Type:      body.Type,
		SessionID: body.SessionID,
		Completed: body.Type == "checkout.session.completed",
	}, nil
}

func (g *fakeGateway) markPaid(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].PaymentStatus = model.PaymentStatusPaid
}

type testEnv struct {
	app     *application
	orders  *memOrders
	gateway *fakeGateway
}

func newTestEnv() *testEnv {
	logger := log.New("test")
	logger.SetOutput(io.Discard)

	users := memUsers{
		{UserID: 1, Email: "ana@example.com", Role: model.RoleCustomer},
		{UserID: 2, Email: "ben@example.com", Role: model.RoleCustomer},
		{UserID: 3, Email: "boss@example.com", Role: model.RoleAdmin},
	}
	menu := memMenu{
		1: {MenuItemID: 1, Name: "Margherita", Price: 10.50, Available: true},
		2: {MenuItemID: 2, Name: "Tiramisu", Price: 6.00, Available: false},
	}
	orders := newMemOrders()
	gw := &fakeGateway{sessions: map[string]*model.CheckoutSession{}}

	menuSvc := services.NewMenuService(menu, nil, logger)
	app := &application{
		cfg:      &config.Config{PaymentProvider: config.ProviderStripe},
		logger:   logger,
		menuSvc:  menuSvc,
		checkout: services.NewCheckoutService(users, menuSvc, gw, cart.DefaultPricingRules(), "https://food.example.com", "usd", logger),
		recon:    services.NewReconciliationService(orders, users, gw, logger),
		orderSvc: services.NewOrderService(orders, users, logger),
	}
	return &testEnv{app: app, orders: orders, gateway: gw}
}
