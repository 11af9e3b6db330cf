package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nishant-k1/flushjohn-api-sub000/pkg/messaging"
)

// Envelope is the message clients receive on an order channel
type Envelope struct {
	Event    string      `json:"event"`
	OrderID  string      `json:"orderId"`
	Data     interface{} `json:"data"`
	EmitTime time.Time   `json:"emittedAt"`
}

// RedisBroadcaster pushes order updates to Redis pub/sub so socket gateways
// can relay them to connected dashboards.
type RedisBroadcaster struct {
	redisClient messaging.RedisClient
	channel     string
	now         func() time.Time
}

// NewRedisBroadcaster creates a broadcaster publishing under channel prefix
func NewRedisBroadcaster(client messaging.RedisClient, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{
		redisClient: client,
		channel:     channel,
		now:         time.Now,
	}
}

// Emit publishes to the per-order channel and to the shared channel
func (b *RedisBroadcaster) Emit(ctx context.Context, event string, orderID uuid.UUID, payload interface{}) error {
	msg := Envelope{
		Event:    event,
		OrderID:  orderID.String(),
		Data:     payload,
		EmitTime: b.now().UTC(),
	}

	orderChannel := fmt.Sprintf("%s:%s", b.channel, orderID)
	if err := b.redisClient.Publish(ctx, orderChannel, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event, orderChannel, err)
	}

	if err := b.redisClient.Publish(ctx, b.channel, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event, b.channel, err)
	}

	return nil
}

func (b *RedisBroadcaster) Close() error {
	return b.redisClient.Close()
}
