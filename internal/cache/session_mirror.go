package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MirroredSession is what a gateway that cannot carry metadata needs to
// rebuild a checkout session on retrieval.
type MirroredSession struct {
	CustomerEmail string            `json:"customer_email"`
	AmountTotal   float64           `json:"amount_total"`
	LineItems     []MirroredLine    `json:"line_items"`
	Metadata      map[string]string `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}

type MirroredLine struct {
	Name      string   `json:"name"`
	UnitPrice float64  `json:"unit_price"`
	Quantity  int      `json:"quantity"`
	Images    []string `json:"images,omitempty"`
}

type SessionMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionMirror(client *redis.Client) *SessionMirror {
	return &SessionMirror{client: client, ttl: 72 * time.Hour}
}

func (m *SessionMirror) Put(ctx context.Context, sessionID string, s *MirroredSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	// SETNX: a session is immutable once created
	ok, err := m.client.SetNX(ctx, sessionKey(sessionID), data, m.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already mirrored", sessionID)
	}
	return nil
}

func (m *SessionMirror) Get(ctx context.Context, sessionID string) (*MirroredSession, error) {
	data, err := m.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var s MirroredSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &s, nil
}

func sessionKey(id string) string {
	return "checkout_session:" + id
}
