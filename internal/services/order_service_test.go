package services

import (
	"context"
	"testing"

	"RestaurantAPI/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderService() (*OrderService, *MockOrderStore) {
	store := NewMockOrderStore()
	return NewOrderService(store, &MockUsers{Users: testUsers}, testLogger()), store
}

func TestCustomerCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order is cancelled", func(t *testing.T) {
		svc, store := newOrderService()
		o := store.seed(model.Order{UserID: 1, Status: model.OrderStatusPending})

		got, err := svc.CustomerCancel(ctx, 1, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, got.Status)
	})

	t.Run("other customer is rejected", func(t *testing.T) {
		svc, store := newOrderService()
		o := store.seed(model.Order{UserID: 1, Status: model.OrderStatusPending})

		_, err := svc.CustomerCancel(ctx, 2, o.ID)
		assert.ErrorIs(t, err, ErrUnauthorized)
		stored, _ := store.GetByID(ctx, o.ID)
		assert.Equal(t, model.OrderStatusPending, stored.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _ := newOrderService()
		_, err := svc.CustomerCancel(ctx, 1, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	for _, st := range []model.OrderStatus{
		model.OrderStatusConfirmed, model.OrderStatusPreparing,
		model.OrderStatusDelivered, model.OrderStatusCancelled,
	} {
		t.Run("rejects "+st.String(), func(t *testing.T) {
			svc, store := newOrderService()
			o := store.seed(model.Order{UserID: 1, Status: st})

			_, err := svc.CustomerCancel(ctx, 1, o.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			stored, _ := store.GetByID(ctx, o.ID)
			assert.Equal(t, st, stored.Status)
		})
	}
}

func TestPreparingOrder_CustomerVersusAdminCancel(t *testing.T) {
	svc, store := newOrderService()
	ctx := context.Background()
	o := store.seed(model.Order{UserID: 1, Status: model.OrderStatusPreparing})

	_, err := svc.CustomerCancel(ctx, 1, o.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := svc.AdminCancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
}

func TestCustomerSetStatus(t *testing.T) {
	svc, store := newOrderService()
	ctx := context.Background()
	o := store.seed(model.Order{UserID: 1, Status: model.OrderStatusPending})

	_, err := svc.CustomerSetStatus(ctx, 1, o.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.CustomerSetStatus(ctx, 2, o.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CustomerSetStatus(ctx, 1, o.ID, model.OrderStatus("SHIPPED"))
	assert.ErrorIs(t, err, model.ErrUnknownStatus)

	got, err := svc.CustomerSetStatus(ctx, 1, o.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
}

func TestAdminSetStatus_Unconditional(t *testing.T) {
	svc, store := newOrderService()
	ctx := context.Background()

	for _, from := range model.AllOrderStatuses {
		for _, to := range model.AllOrderStatuses {
			o := store.seed(model.Order{UserID: 1, Status: from})
			got, err := svc.AdminSetStatus(ctx, o.ID, to)
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, got.Status)
		}
	}

	_, err := svc.AdminSetStatus(ctx, uuid.New(), model.OrderStatusReady)
	assert.ErrorIs(t, err, ErrNotFound)

	o := store.seed(model.Order{UserID: 1, Status: model.OrderStatusPending})
	_, err = svc.AdminSetStatus(ctx, o.ID, model.OrderStatus("bogus"))
	assert.ErrorIs(t, err, model.ErrUnknownStatus)
}

func TestAdminAdvance_UsesTransitionTable(t *testing.T) {
	svc, store := newOrderService()
	ctx := context.Background()
	o := store.seed(model.Order{UserID: 1, Status: model.OrderStatusConfirmed})

	got, err := svc.AdminAdvance(ctx, o.ID, model.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, got.Status)

	_, err = svc.AdminAdvance(ctx, o.ID, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.AdminAdvance(ctx, o.ID, model.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetForUser(t *testing.T) {
	svc, store := newOrderService()
	ctx := context.Background()
	o := store.seed(model.Order{UserID: 1, Status: model.OrderStatusPending})

	got, err := svc.GetForUser(ctx, 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = svc.GetForUser(ctx, 2, o.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := svc.ListForUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreatePending(t *testing.T) {
	ctx := context.Background()
	valid := CreatePendingInput{
		Items:           []model.OrderItem{{Name: "Burger", Price: 8, Quantity: 2}, {Name: "Fries", Price: 5, Quantity: 1}},
		Subtotal:        21,
		Tax:             1.68,
		DeliveryFee:     4.99,
		Total:           27.67,
		DeliveryAddress: " 1 Main St ",
		Phone:           "555",
	}

	t.Run("creates pending order", func(t *testing.T) {
		svc, _ := newOrderService()
		o, err := svc.CreatePending(ctx, 1, valid)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPending, o.Status)
		assert.Equal(t, "1 Main St", o.DeliveryAddress)
		assert.Nil(t, o.CheckoutSessionID)
	})

	t.Run("unbalanced totals", func(t *testing.T) {
		svc, store := newOrderService()
		in := valid
		in.Total = 30
		_, err := svc.CreatePending(ctx, 1, in)
		assert.ErrorIs(t, err, ErrInvalidOrder)
		assert.Equal(t, 0, store.count())
	})

	t.Run("no items", func(t *testing.T) {
		svc, _ := newOrderService()
		in := valid
		in.Items = nil
		_, err := svc.CreatePending(ctx, 1, in)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _ := newOrderService()
		_, err := svc.CreatePending(ctx, 77, valid)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
