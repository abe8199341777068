package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"RestaurantAPI/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateCheckout = errors.New("order for this checkout session already exists")
	ErrStatusChanged     = errors.New("order status changed concurrently")
)

const (
	EventOrderCreated       = "order.created"
	EventOrderConfirmed     = "order.confirmed"
	EventOrderStatusChanged = "order.status_changed"
)

// SessionNote is the prefix embedded in orders.notes for orders created from a checkout session.
const SessionNote = "checkout_session:"

const orderColumns = `o.id, o.userid, o.items, o.subtotal, o.tax, o.delivery_fee, o.total,
	o.delivery_address, o.phone, o.notes, o.checkout_session_id, o.status, o.created_at, o.updated_at`

type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db}
}

type orderEventPayload struct {
	OrderID        uuid.UUID          `json:"order_id"`
	UserID         int64              `json:"user_id"`
	Status         model.OrderStatus  `json:"status"`
	PreviousStatus *model.OrderStatus `json:"previous_status,omitempty"`
	Total          float64            `json:"total"`
	At             time.Time          `json:"at"`
}

// CreateOrder inserts the order and its outbox event in one transaction.
// A second order for the same checkout session returns ErrDuplicateCheckout.
func (r *OrderRepository) CreateOrder(ctx context.Context, in model.NewOrderInput) (*model.Order, error) {
	itemsJSON, err := json.Marshal(in.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

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
	}

	q := `
		INSERT INTO orders
			(id, userid, items, subtotal, tax, delivery_fee, total,
			 delivery_address, phone, notes, checkout_session_id, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (checkout_session_id) WHERE checkout_session_id IS NOT NULL DO NOTHING
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, q,
		o.ID, o.UserID, itemsJSON, o.Subtotal, o.Tax, o.DeliveryFee, o.Total,
		o.DeliveryAddress, o.Phone, o.Notes, o.CheckoutSessionID, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicateCheckout
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	eventType := EventOrderCreated
	if o.Status == model.OrderStatusConfirmed {
		eventType = EventOrderConfirmed
	}
	if err := insertEvent(ctx, tx, eventType, o, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return o, nil
}

// FindBySessionID looks an order up by its checkout session, either through
// the dedicated column or through the session note.
func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	note := SessionNote + sessionID
	q := `SELECT ` + orderColumns + ` FROM orders o
		WHERE o.checkout_session_id = $1
		   OR o.notes = $2
		   OR strpos(o.notes, $2 || E'\n') = 1
		ORDER BY o.created_at
		LIMIT 1`
	o, err := scanOrder(r.DB.QueryRow(ctx, q, sessionID, note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order by session: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	o, err := scanOrder(r.DB.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders o WHERE o.userid = $1 ORDER BY o.created_at DESC`
	rows, err := r.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user: %w", err)
	}
	defer rows.Close()

	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// List is the admin listing. Search matches id prefix, address, phone, notes or user email.
func (r *OrderRepository) List(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	var sb strings.Builder
	args := make([]interface{}, 0, 6)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT ` + orderColumns + `, u.email FROM orders o JOIN users u ON u.userid = o.userid WHERE TRUE`)
	if f.Status != nil {
		sb.WriteString(" AND o.status = " + arg(string(*f.Status)))
	}
	if f.From != nil {
		sb.WriteString(" AND o.created_at >= " + arg(*f.From))
	}
	if f.To != nil {
		sb.WriteString(" AND o.created_at < " + arg(*f.To))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + s + "%")
		sb.WriteString(" AND (o.id::text ILIKE " + arg(s+"%") +
			" OR o.delivery_address ILIKE " + p +
			" OR o.phone ILIKE " + p +
			" OR o.notes ILIKE " + p +
			" OR u.email ILIKE " + p + ")")
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString(" ORDER BY o.created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset))

	rows, err := r.DB.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows, &emailDest{})
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus overwrites the status unconditionally.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	return r.updateStatus(ctx, id, nil, status)
}

// UpdateStatusIf moves the order to status only while it is still in from.
// ErrStatusChanged means the row exists but no longer holds from.
func (r *OrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (*model.Order, error) {
	return r.updateStatus(ctx, id, &from, to)
}

func (r *OrderRepository) updateStatus(ctx context.Context, id uuid.UUID, from *model.OrderStatus, to model.OrderStatus) (*model.Order, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var prev string
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&prev); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	previous := model.OrderStatus(prev)
	if from != nil && previous != *from {
		return nil, ErrStatusChanged
	}

	q := `UPDATE orders o SET status = $2, updated_at = NOW() WHERE o.id = $1 RETURNING ` + orderColumns
	o, err := scanOrder(tx.QueryRow(ctx, q, id, string(to)))
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := insertEvent(ctx, tx, EventOrderStatusChanged, o, &previous); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return o, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, eventType string, o *model.Order, previous *model.OrderStatus) error {
	payload, err := json.Marshal(orderEventPayload{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Status:         o.Status,
		PreviousStatus: previous,
		Total:          o.Total,
		At:             time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO order_events (order_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, NOW())
	`, o.ID, eventType, payload)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

type emailDest struct {
	email string
}

func scanOrder(row pgx.Row, extra ...*emailDest) (*model.Order, error) {
	var o model.Order
	var itemsJSON []byte
	var status string
	dest := []interface{}{
		&o.ID, &o.UserID, &itemsJSON, &o.Subtotal, &o.Tax, &o.DeliveryFee, &o.Total,
		&o.DeliveryAddress, &o.Phone, &o.Notes, &o.CheckoutSessionID, &status, &o.CreatedAt, &o.UpdatedAt,
	}
	for _, e := range extra {
		dest = append(dest, &e.email)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	for _, e := range extra {
		o.UserEmail = e.email
	}
	return &o, nil
}
