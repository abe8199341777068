package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

func testLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

// MockOrderStore is an in-memory OrderStore enforcing one order per session.
type MockOrderStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*model.Order
	bySession map[string]uuid.UUID
	Creates   int
	FindErr   error

	// BeforeCreate runs before the uniqueness check, outside the lock.
	BeforeCreate func()
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders:    map[uuid.UUID]*model.Order{},
		bySession: map[string]uuid.UUID{},
	}
}

func (m *MockOrderStore) CreateOrder(_ context.Context, in model.NewOrderInput) (*model.Order, error) {
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.CheckoutSessionID != nil {
		if _, ok := m.bySession[*in.CheckoutSessionID]; ok {
			return nil, repository.ErrDuplicateCheckout
		}
	}
	now := time.Now()
	o := &model.Order{
		ID:                uuid.New(),
		UserID:            in.UserID,
		Items:             in.Items,
		Subtotal:          in.Subtotal,
		Tax:               in.Tax,
		DeliveryFee:       in.DeliveryFee,
		Total:             in.Total,
		DeliveryAddress:   in.DeliveryAddress,
		Phone:             in.Phone,
		Notes:             in.Notes,
		CheckoutSessionID: in.CheckoutSessionID,
		Status:            in.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.orders[o.ID] = o
	if in.CheckoutSessionID != nil {
		m.bySession[*in.CheckoutSessionID] = o.ID
	}
	m.Creates++
	cp := *o
	return &cp, nil
}

func (m *MockOrderStore) FindBySessionID(_ context.Context, sessionID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if id, ok := m.bySession[sessionID]; ok {
		cp := *m.orders[id]
		return &cp, nil
	}
	note := repository.SessionNote + sessionID
	for _, o := range m.orders {
		if o.Notes != nil && (*o.Notes == note || strings.HasPrefix(*o.Notes, note+"\n")) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrderStore) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderStore) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
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

func (m *MockOrderStore) List(_ context.Context, f model.OrderFilter) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *MockOrderStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
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

func (m *MockOrderStore) UpdateStatusIf(_ context.Context, id uuid.UUID, from, to model.OrderStatus) (*model.Order, error) {
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

func (m *MockOrderStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// seed inserts an order directly, bypassing validation.
func (m *MockOrderStore) seed(o model.Order) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	m.orders[o.ID] = &o
	return &o
}

// MockUsers implements UserDirectory.
type MockUsers struct {
	Users []model.User
	Err   error
}

func (m *MockUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Users {
		if strings.EqualFold(m.Users[i].Email, strings.TrimSpace(email)) {
			u := m.Users[i]
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *MockUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Users {
		if m.Users[i].UserID == id {
			u := m.Users[i]
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// MockMenu implements MenuCatalog and counts reads.
type MockMenu struct {
	mu    sync.Mutex
	Items map[int64]model.MenuItem
	Err   error
	Calls int
}

func (m *MockMenu) GetByID(_ context.Context, id int64) (*model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	it, ok := m.Items[id]
	if !ok {
		return nil, repository.ErrMenuItemNotFound
	}
	return &it, nil
}

func (m *MockMenu) List(_ context.Context) ([]model.MenuItem, error) {
	out := []model.MenuItem{}
	for _, it := range m.Items {
		out = append(out, it)
	}
	return out, m.Err
}

// MockGateway implements PaymentGateway.
type MockGateway struct {
	mu        sync.Mutex
	Sessions  map[string]*model.CheckoutSession
	Created   []model.SessionRequest
	CreateErr error
	Event     *model.GatewayEvent
	ParseErr  error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{Sessions: map[string]*model.CheckoutSession{}}
}

func (m *MockGateway) CreateSession(_ context.Context, req model.SessionRequest) (*model.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Created = append(m.Created, req)
	id := "cs_test_" + uuid.NewString()
	s := &model.CheckoutSession{
		ID:            id,
		RedirectURL:   "https://pay.example.com/" + id,
		PaymentStatus: "unpaid",
		AmountTotal:   req.Total,
		CustomerEmail: req.CustomerEmail,
		LineItems:     req.LineItems,
		Metadata:      req.Metadata,
	}
	m.Sessions[id] = s
	return s, nil
}

func (m *MockGateway) RetrieveSession(_ context.Context, id string) (*model.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockGateway) ParseEvent(_ []byte, signature string) (*model.GatewayEvent, error) {
	if m.ParseErr != nil {
		return nil, m.ParseErr
	}
	if signature != "good" {
		return nil, ErrInvalidSignature
	}
	return m.Event, nil
}
