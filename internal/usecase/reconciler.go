package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

// balanceStatuses are the payment states that contribute to an order's paid amount
var balanceStatuses = []model.PaymentStatus{
	model.PaymentStatusSucceeded,
	model.PaymentStatusPartiallyRefunded,
	model.PaymentStatusRefunded,
}

// ComputeOrderBalance derives the order's financial state from its line items
// and payments. Payments outside balanceStatuses are skipped.
func ComputeOrderBalance(order *model.Order, payments []*model.Payment) entity.OrderBalance {
	orderTotal := decimal.Zero
	for _, item := range order.LineItems {
		orderTotal = orderTotal.Add(item.Total())
	}
	orderTotal = orderTotal.Round(2)

	totalPaid := decimal.Zero
	totalRefunded := decimal.Zero
	for _, p := range payments {
		if !p.Status.CountsTowardBalance() {
			continue
		}
		totalPaid = totalPaid.Add(p.Amount)
		totalRefunded = totalRefunded.Add(p.RefundedAmount)
	}

	paidAmount := decimal.Max(decimal.Zero, totalPaid.Sub(totalRefunded))
	balanceDue := decimal.Max(decimal.Zero, orderTotal.Sub(paidAmount))

	var status model.OrderPaymentStatus
	switch {
	case paidAmount.IsZero() && totalRefunded.IsPositive():
		// everything collected was given back
		status = model.OrderPaymentStatusRefunded
	case paidAmount.IsZero():
		status = model.OrderPaymentStatusUnpaid
	case paidAmount.LessThan(orderTotal):
		status = model.OrderPaymentStatusPartiallyPaid
	case totalRefunded.IsPositive():
		status = model.OrderPaymentStatusRefunded
	default:
		status = model.OrderPaymentStatusPaid
	}

	return entity.OrderBalance{
		OrderTotal:    orderTotal,
		PaidAmount:    paidAmount,
		BalanceDue:    balanceDue,
		TotalRefunded: totalRefunded,
		PaymentStatus: status,
	}
}

// Reconciler recomputes and persists order balances from the full ledger
type Reconciler struct {
	payments    domainRepo.PaymentRepository
	orders      domainRepo.OrderRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(
	payments domainRepo.PaymentRepository,
	orders domainRepo.OrderRepository,
	broadcaster Broadcaster,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		payments:    payments,
		orders:      orders,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// RecomputeOrderBalance derives the balance from scratch and writes the four
// balance fields onto the order. Calling it repeatedly has no further effect.
func (r *Reconciler) RecomputeOrderBalance(ctx context.Context, orderID uuid.UUID) (*entity.OrderBalance, error) {
	order, err := r.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, domainErrors.NewReconciliationError(orderID.String(), err)
	}
	if order == nil {
		return nil, domainErrors.NewOrderNotFoundError(orderID.String())
	}

	payments, err := r.payments.FindAllForOrder(ctx, orderID, balanceStatuses...)
	if err != nil {
		return nil, domainErrors.NewReconciliationError(orderID.String(), err)
	}

	balance := ComputeOrderBalance(order, payments)
	if err := r.orders.UpdateOrderBalance(ctx, orderID, balance); err != nil {
		return nil, domainErrors.NewReconciliationError(orderID.String(), err)
	}

	r.logger.Info("Order balance recomputed",
		zap.String("order_id", orderID.String()),
		zap.String("order_total", balance.OrderTotal.StringFixed(2)),
		zap.String("paid_amount", balance.PaidAmount.StringFixed(2)),
		zap.String("balance_due", balance.BalanceDue.StringFixed(2)),
		zap.String("payment_status", string(balance.PaymentStatus)))

	if r.broadcaster != nil {
		if err := r.broadcaster.Emit(ctx, BroadcastOrderUpdated, orderID, balance); err != nil {
			r.logger.Warn("Failed to broadcast order update",
				zap.String("order_id", orderID.String()),
				zap.Error(err))
		}
	}
	return &balance, nil
}
