package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"talentBack/internal/models"
)

// DefaultChannel is the pub/sub channel booking events travel on.
const DefaultChannel = "booking-events"

// Event is the payload published for every notice and pushed to sockets.
type Event struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	BookingID string    `json:"booking_id,omitempty"`
	PaymentID string    `json:"payment_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes notices to a Redis channel so that every API instance
// can forward them to its own socket connections.
type RedisSink struct {
	client  publisher
	channel string
	now     func() time.Time
}

func NewRedisSink(client publisher, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel, now: func() time.Time { return time.Now().UTC() }}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, n models.Notice) error {
	data, err := json.Marshal(Event{
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		BookingID: n.BookingID,
		PaymentID: n.PaymentID,
		SentAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", s.channel, err)
	}
	return nil
}
