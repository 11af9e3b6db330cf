package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// PaymentRepository is the payment ledger. Finders return (nil, nil) when no
// row matches. Updates are merge patches; conditional variants report whether
// a row was changed so callers can detect that a concurrent writer won.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindByGatewayChargeRef(ctx context.Context, ref string) (*model.Payment, error)
	FindByGatewayIntentRef(ctx context.Context, ref string) (*model.Payment, error)
	FindByGatewayLinkRef(ctx context.Context, ref string) (*model.Payment, error)

	// FindAllForOrder returns the order's payments oldest first, optionally filtered by status
	FindAllForOrder(ctx context.Context, orderID uuid.UUID, statuses ...model.PaymentStatus) ([]*model.Payment, error)
	// FindRecentForOrder returns payments created at or after since, newest first
	FindRecentForOrder(ctx context.Context, orderID uuid.UUID, since time.Time, statuses ...model.PaymentStatus) ([]*model.Payment, error)

	UpdateByID(ctx context.Context, id uuid.UUID, patch model.PaymentPatch) error
	// UpdateByIDIfStatus applies patch only while the payment is in one of from
	UpdateByIDIfStatus(ctx context.Context, id uuid.UUID, from []model.PaymentStatus, patch model.PaymentPatch) (bool, error)
	// ApplyRefundTotal raises refunded_amount to total and sets status, only if total exceeds the stored value
	ApplyRefundTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal, status model.PaymentStatus) (bool, error)
	// MarkReceiptSent sets receipt_sent once; false means it was already set
	MarkReceiptSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
