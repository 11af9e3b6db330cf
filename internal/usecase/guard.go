package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

// DefaultGuardWindow is used when no window is configured
const DefaultGuardWindow = 10 * time.Second

// DuplicateGuard rejects a new charge while a very recent pending or succeeded
// payment exists for the same order. It is a time-window heuristic against
// double submits, not a lock.
type DuplicateGuard struct {
	payments domainRepo.PaymentRepository
	window   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewDuplicateGuard creates a new DuplicateGuard
func NewDuplicateGuard(payments domainRepo.PaymentRepository, window time.Duration, logger *zap.Logger) *DuplicateGuard {
	if window <= 0 {
		window = DefaultGuardWindow
	}
	return &DuplicateGuard{
		payments: payments,
		window:   window,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the guard's time source
func (g *DuplicateGuard) SetClock(now func() time.Time) {
	g.now = now
}

// Check returns a DuplicateInFlightError when a payment created inside the
// window blocks a new charge. A succeeded match wins over a pending one.
func (g *DuplicateGuard) Check(ctx context.Context, orderID uuid.UUID) error {
	since := g.now().Add(-g.window)
	recent, err := g.payments.FindRecentForOrder(ctx, orderID, since,
		model.PaymentStatusPending, model.PaymentStatusSucceeded)
	if err != nil {
		return fmt.Errorf("failed to check recent payments: %w", err)
	}

	var pending *model.Payment
	for _, p := range recent {
		if p.Status == model.PaymentStatusSucceeded {
			g.logger.Warn("DuplicateGuard: order paid moments ago, rejecting charge",
				zap.String("order_id", orderID.String()),
				zap.String("payment_id", p.ID.String()))
			return domainErrors.NewDuplicateInFlightError(orderID.String(), p.ID.String(), domainErrors.DuplicateReasonAlreadyPaid)
		}
		if pending == nil {
			pending = p
		}
	}

	if pending != nil {
		g.logger.Warn("DuplicateGuard: payment already in flight, rejecting charge",
			zap.String("order_id", orderID.String()),
			zap.String("payment_id", pending.ID.String()),
			zap.Duration("age", g.now().Sub(pending.CreatedAt)))
		return domainErrors.NewDuplicateInFlightError(orderID.String(), pending.ID.String(), domainErrors.DuplicateReasonRetryShortly)
	}
	return nil
}
