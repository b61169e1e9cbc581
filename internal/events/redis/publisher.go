// Package redis publishes identity events to a Redis stream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/model"
)

const eventUserRegistered = "identity.user-registered"

// UserRegisteredEvent carries the OTP a mail worker delivers to the user.
type UserRegisteredEvent struct {
	OccurredAt time.Time `json:"occurredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Email      string    `json:"email"`
	Otp        string    `json:"otp"`
	MessageID  uuid.UUID `json:"messageId"`
}

// Publisher appends events to a stream with XADD.
type Publisher struct {
	client redis.UniversalClient
	clock  clock.Clock
	stream string
	maxLen int64
}

var _ model.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher writing to stream.
func NewPublisher(client redis.UniversalClient, stream string, clk clock.Clock) *Publisher {
	return &Publisher{
		client: client,
		clock:  clk,
		stream: stream,
		maxLen: 10_000,
	}
}

// Publish appends a user-registered event. Consumers drop messages past
// expiresAt, so ttl bounds delivery the way a broker message TTL would.
func (p *Publisher) Publish(ctx context.Context, email, otp string, ttl time.Duration) error {
	now := p.clock.Now()
	event := UserRegisteredEvent{
		MessageID:  uuid.New(),
		Email:      email,
		Otp:        otp,
		OccurredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":    eventUserRegistered,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
