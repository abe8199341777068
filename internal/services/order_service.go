package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type OrderService struct {
	Orders OrderStore
	Users  UserDirectory
	Logger *log.Logger
}

func NewOrderService(orders OrderStore, users UserDirectory, logger *log.Logger) *OrderService {
	return &OrderService{Orders: orders, Users: users, Logger: logger}
}

// CreatePendingInput is a direct order placed without a payment session.
type CreatePendingInput struct {
	Items           []model.OrderItem `json:"items"`
	Subtotal        float64           `json:"subtotal"`
	Tax             float64           `json:"tax"`
	DeliveryFee     float64           `json:"delivery_fee"`
	Total           float64           `json:"total"`
	DeliveryAddress string            `json:"delivery_address"`
	Phone           string            `json:"phone"`
	Notes           *string           `json:"notes,omitempty"`
}

func (s *OrderService) CreatePending(ctx context.Context, userID int64, in CreatePendingInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	for _, it := range in.Items {
		if it.Quantity < 1 || it.Price < 0 || strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("%w: item %q is malformed", ErrInvalidOrder, it.Name)
		}
	}
	if !model.TotalsBalanced(in.Subtotal, in.Tax, in.DeliveryFee, in.Total) {
		return nil, fmt.Errorf("%w: total must equal subtotal + tax + delivery fee", ErrInvalidOrder)
	}
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	o, err := s.Orders.CreateOrder(ctx, model.NewOrderInput{
		UserID:          userID,
		Items:           in.Items,
		Subtotal:        in.Subtotal,
		Tax:             in.Tax,
		DeliveryFee:     in.DeliveryFee,
		Total:           in.Total,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Phone:           strings.TrimSpace(in.Phone),
		Notes:           in.Notes,
		Status:          model.OrderStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *OrderService) GetForUser(ctx context.Context, userID int64, id uuid.UUID) (*model.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.Orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	return s.Orders.List(ctx, f)
}

// AdminSetStatus is the administrative override: any recognized status is
// applied regardless of the current one.
func (s *OrderService) AdminSetStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, model.ErrUnknownStatus
	}
	o, err := s.Orders.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.Logger.Infoj(log.JSON{"event": "order_status_override", "order_id": id.String(), "status": status})
	return o, nil
}

func (s *OrderService) AdminCancel(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.AdminSetStatus(ctx, id, model.OrderStatusCancelled)
}

// AdminAdvance applies the transition table instead of overriding.
func (s *OrderService) AdminAdvance(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	if !to.Valid() {
		return nil, model.ErrUnknownStatus
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, to)
}

// CustomerCancel lets an owner cancel an order that has not been confirmed yet.
func (s *OrderService) CustomerCancel(ctx context.Context, userID int64, id uuid.UUID) (*model.Order, error) {
	o, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if o.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: cannot cancel an order that is %s", ErrInvalidTransition, o.Status)
	}
	return s.transition(ctx, o, model.OrderStatusCancelled)
}

// CustomerSetStatus is the customer-facing status endpoint; cancelling is
// the only move a customer may make.
func (s *OrderService) CustomerSetStatus(ctx context.Context, userID int64, id uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	if !to.Valid() {
		return nil, model.ErrUnknownStatus
	}
	if to != model.OrderStatusCancelled {
		if _, err := s.GetForUser(ctx, userID, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: customers may only cancel orders", ErrInvalidTransition)
	}
	return s.CustomerCancel(ctx, userID, id)
}

func (s *OrderService) transition(ctx context.Context, o *model.Order, to model.OrderStatus) (*model.Order, error) {
	if !model.CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	updated, err := s.Orders.UpdateStatusIf(ctx, o.ID, o.Status, to)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.Logger.Infoj(log.JSON{"event": "order_status_changed", "order_id": o.ID.String(), "from": o.Status, "to": to})
	return updated, nil
}
