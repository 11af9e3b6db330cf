package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

type published struct {
	channel string
	message interface{}
}

type fakeRedis struct {
	published []published
	failOn    string
	closed    bool
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) error {
	if channel == f.failOn {
		return errors.New("connection refused")
	}
	f.published = append(f.published, published{channel: channel, message: message})
	return nil
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisBroadcaster(t *testing.T) {
	orderID := uuid.MustParse("0b5e4d1c-1f5f-4a6e-9d5a-3c2b1a0f9e8d")
	emittedAt := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	t.Run("publishes to order and shared channels", func(t *testing.T) {
		client := &fakeRedis{}
		b := NewRedisBroadcaster(client, "payments")
		b.now = func() time.Time { return emittedAt }

		err := b.Emit(context.Background(), "payment-updated", orderID, map[string]string{"status": "succeeded"})
		require.NoError(t, err)

		require.Len(t, client.published, 2)
		assert.Equal(t, "payments:"+orderID.String(), client.published[0].channel)
		assert.Equal(t, "payments", client.published[1].channel)

		env, ok := client.published[0].message.(Envelope)
		require.True(t, ok)
		assert.Equal(t, "payment-updated", env.Event)
		assert.Equal(t, orderID.String(), env.OrderID)
		assert.Equal(t, emittedAt, env.EmitTime)

		raw, err := json.Marshal(env)
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"payment-updated","orderId":"`+orderID.String()+`","data":{"status":"succeeded"},"emittedAt":"2024-06-03T09:00:00Z"}`, string(raw))
	})

	t.Run("order channel failure is returned", func(t *testing.T) {
		client := &fakeRedis{failOn: "payments:" + orderID.String()}
		b := NewRedisBroadcaster(client, "payments")

		err := b.Emit(context.Background(), "order-updated", orderID, nil)

		assert.ErrorContains(t, err, "connection refused")
		assert.Empty(t, client.published)
	})

	t.Run("close releases the client", func(t *testing.T) {
		client := &fakeRedis{}
		require.NoError(t, NewRedisBroadcaster(client, "payments").Close())
		assert.True(t, client.closed)
	})
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	event := &entity.PaymentEvent{
		Kind:           entity.PaymentUpdated,
		OrderID:        uuid.New(),
		PaymentID:      uuid.New(),
		Status:         model.PaymentStatusSucceeded,
		Method:         model.PaymentMethodCard,
		Amount:         decimal.RequireFromString("500"),
		RefundedAmount: decimal.Zero,
		Currency:       "usd",
		OccurredAt:     time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	}

	t.Run("keys by order", func(t *testing.T) {
		w := &fakeWriter{}
		p := newKafkaPublisher(w, "payment-events", zap.NewNop())

		require.NoError(t, p.Publish(context.Background(), event))

		require.Len(t, w.messages, 1)
		msg := w.messages[0]
		assert.Equal(t, event.OrderID.String(), string(msg.Key))
		assert.Equal(t, event.OccurredAt, msg.Time)
		require.Len(t, msg.Headers, 2)
		assert.Equal(t, "PaymentUpdated", string(msg.Headers[0].Value))

		var decoded entity.PaymentEvent
		require.NoError(t, json.Unmarshal(msg.Value, &decoded))
		assert.Equal(t, event.PaymentID, decoded.PaymentID)
		assert.Equal(t, model.PaymentStatusSucceeded, decoded.Status)
		assert.True(t, decoded.Amount.Equal(event.Amount))
	})

	t.Run("write failure is wrapped", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("leader not available")}
		p := newKafkaPublisher(w, "payment-events", zap.NewNop())

		err := p.Publish(context.Background(), event)

		assert.ErrorContains(t, err, "payment-events")
		assert.ErrorContains(t, err, "leader not available")
	})

	t.Run("close", func(t *testing.T) {
		w := &fakeWriter{}
		require.NoError(t, newKafkaPublisher(w, "payment-events", zap.NewNop()).Close())
		assert.True(t, w.closed)
	})
}
