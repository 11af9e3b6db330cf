package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// PaymentEventKind names a payment domain event
type PaymentEventKind string

const (
	PaymentCreated PaymentEventKind = "PaymentCreated"
	PaymentUpdated PaymentEventKind = "PaymentUpdated"
	PaymentError   PaymentEventKind = "PaymentError"
)

// PaymentEvent is published to downstream consumers whenever the ledger changes
type PaymentEvent struct {
	Kind           PaymentEventKind    `json:"kind"`
	OrderID        uuid.UUID           `json:"order_id"`
	PaymentID      uuid.UUID           `json:"payment_id"`
	Status         model.PaymentStatus `json:"status,omitempty"`
	Method         model.PaymentMethod `json:"method,omitempty"`
	Amount         decimal.Decimal     `json:"amount"`
	RefundedAmount decimal.Decimal     `json:"refunded_amount"`
	Currency       string              `json:"currency,omitempty"`
	Message        string              `json:"message,omitempty"`
	OccurredAt     time.Time           `json:"occurred_at"`
}
