package services

import (
	"context"

	"RestaurantAPI/internal/model"

	"github.com/google/uuid"
)

// OrderStore is implemented by repository.OrderRepository.
type OrderStore interface {
	CreateOrder(ctx context.Context, in model.NewOrderInput) (*model.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	List(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (*model.Order, error)
}

type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type MenuCatalog interface {
	GetByID(ctx context.Context, id int64) (*model.MenuItem, error)
	List(ctx context.Context) ([]model.MenuItem, error)
}

// PaymentGateway is the hosted checkout provider.
// RetrieveSession returns ErrNotFound for unknown sessions and ParseEvent
// returns ErrInvalidSignature when the payload cannot be trusted.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req model.SessionRequest) (*model.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	ParseEvent(payload []byte, signatureHeader string) (*model.GatewayEvent, error)
}

// OrderNotifier tells the customer about an order created from a paid session.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, toEmail string, o *model.Order) error
}
