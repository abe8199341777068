package publisher

import (
	"context"
	"time"

	"RestaurantAPI/internal/repository"

	"github.com/labstack/gommon/log"
	"github.com/segmentio/kafka-go"
)

const (
	Topic     = "order-events"
	batchSize = 100
)

type EventStore interface {
	GetUnpublished(ctx context.Context, limit int) ([]repository.OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller relays order_events rows to Kafka. A row is marked published
// only after the broker accepted it, so delivery is at-least-once.
type OutboxPoller struct {
	tick   time.Duration
	store  EventStore
	writer MessageWriter
	logger *log.Logger
}

func NewOutboxPoller(store EventStore, logger *log.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewOutboxPollerWithWriter(store, w, logger)
}

func NewOutboxPollerWithWriter(store EventStore, w MessageWriter, logger *log.Logger) *OutboxPoller {
	return &OutboxPoller{tick: time.Second, store: store, writer: w, logger: logger}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.store.GetUnpublished(ctx, batchSize)
	if err != nil {
		p.logger.Errorj(log.JSON{"event": "outbox_fetch_failed", "error": err.Error()})
		return 0
	}

	published := 0
	for _, ev := range events {
		if err := p.publish(ctx, ev); err != nil {
			p.logger.Warnj(log.JSON{"event": "outbox_publish_failed", "id": ev.ID, "error": err.Error()})
			// keep per-order ordering: later events for this batch wait for the next tick
			return published
		}
		if err := p.store.MarkPublished(ctx, ev.ID); err != nil {
			p.logger.Warnj(log.JSON{"event": "outbox_mark_failed", "id": ev.ID, "error": err.Error()})
			return published
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, ev repository.OutboxEvent) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID.String()),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	})
}
