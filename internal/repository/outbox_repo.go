package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OutboxEvent struct {
	ID        int64
	OrderID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

type OutboxRepository struct {
	DB *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

// GetUnpublished returns up to limit events in insertion order.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, event_type, payload, created_at
		FROM order_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx, `UPDATE order_events SET published_at = NOW() WHERE id = $1 AND published_at IS NULL`, id)
	return err
}
