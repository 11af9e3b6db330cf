package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// Real-time event names pushed through the Broadcaster
const (
	BroadcastPaymentCreated = "payment-created"
	BroadcastPaymentUpdated = "payment-updated"
	BroadcastPaymentError   = "payment-error"
	BroadcastOrderUpdated   = "order-updated"
)

// Broadcaster pushes best-effort real-time updates to clients watching an order
type Broadcaster interface {
	Emit(ctx context.Context, event string, orderID uuid.UUID, payload interface{}) error
}

// EventPublisher forwards payment domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *entity.PaymentEvent) error
}

// ReceiptSender delivers the payment receipt to the order contact.
// It reports false when nothing was sent, e.g. the order has no email.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, payment *model.Payment, order *model.Order) (bool, error)
}

// Locker hands out short-lived named locks. When acquired is false another
// holder owns the key; release is then a no-op.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}
