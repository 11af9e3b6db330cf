package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

// amountTolerance is the difference under which two amounts are treated as equal
var amountTolerance = decimal.New(1, -2)

// Event outcomes recorded on the gateway event log
const (
	OutcomeSucceeded      = "succeeded"
	OutcomeFailed         = "failed"
	OutcomeRefundApplied  = "refund_applied"
	OutcomeAlreadyApplied = "already_applied"
	OutcomeUnmatched      = "unmatched"
	OutcomeIgnored        = "ignored"
)

// SuccessDetails are the gateway facts recorded with a success transition
type SuccessDetails struct {
	ChargeRef string
	IntentRef string
	Card      *provider.CardSummary
	// Source names the channel reporting the success, for logs
	Source string
}

// Engine applies payment state transitions reported by the charge response,
// webhooks, manual sync and refunds. Every transition is a compare-and-set on
// the ledger, so applying the same report twice changes nothing the second
// time and only the winning caller runs the follow-up work.
type Engine struct {
	payments   domainRepo.PaymentRepository
	reconciler *Reconciler
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewEngine creates a new Engine
func NewEngine(
	payments domainRepo.PaymentRepository,
	reconciler *Reconciler,
	dispatcher *Dispatcher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		payments:   payments,
		reconciler: reconciler,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// MarkSucceeded moves a pending payment to succeeded, then reconciles the
// order and sends the receipt. applied is false when another caller already
// made the transition or the payment can no longer succeed.
func (e *Engine) MarkSucceeded(ctx context.Context, p *model.Payment, details SuccessDetails) (applied bool, err error) {
	patch := model.PaymentPatch{Status: model.StatusPtr(model.PaymentStatusSucceeded)}
	addRefs(&patch, p, details)

	applied, err = e.payments.UpdateByIDIfStatus(ctx, p.ID, []model.PaymentStatus{model.PaymentStatusPending}, patch)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment succeeded: %w", err)
	}

	current, err := e.reload(ctx, p.ID)
	if err != nil {
		return false, err
	}

	if !applied {
		switch {
		case current.Status == model.PaymentStatusFailed || current.Status == model.PaymentStatusCancelled:
			e.logger.Warn("Success reported for a terminal payment, ignoring",
				zap.String("payment_id", current.ID.String()),
				zap.String("status", string(current.Status)),
				zap.String("source", details.Source))
			e.dispatcher.PaymentError(ctx, current,
				fmt.Errorf("gateway reported success for %s payment", current.Status))
		case current.Status.CountsTowardBalance():
			e.backfillRefs(ctx, current, details)
		}
		return false, nil
	}

	e.logger.Info("Payment succeeded",
		zap.String("payment_id", current.ID.String()),
		zap.String("order_id", current.OrderID.String()),
		zap.String("amount", current.Amount.StringFixed(2)),
		zap.String("source", details.Source))

	e.Settle(ctx, current)
	e.dispatcher.DeliverReceipt(ctx, current)
	return true, nil
}

// MarkFailed moves a pending payment to failed. Failed payments never count
// toward the balance, so no reconciliation follows.
func (e *Engine) MarkFailed(ctx context.Context, p *model.Payment, message string) (bool, error) {
	if message == "" {
		message = "payment failed"
	}
	patch := model.PaymentPatch{
		Status:       model.StatusPtr(model.PaymentStatusFailed),
		ErrorMessage: model.StringPtr(message),
	}
	applied, err := e.payments.UpdateByIDIfStatus(ctx, p.ID, []model.PaymentStatus{model.PaymentStatusPending}, patch)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if !applied {
		e.logger.Debug("Failure report ignored, payment is no longer pending",
			zap.String("payment_id", p.ID.String()))
		return false, nil
	}

	current, err := e.reload(ctx, p.ID)
	if err != nil {
		return false, err
	}
	e.logger.Info("Payment failed",
		zap.String("payment_id", current.ID.String()),
		zap.String("order_id", current.OrderID.String()),
		zap.String("error_message", message))
	e.dispatcher.PaymentUpdated(ctx, current)
	return true, nil
}

// ApplyRefundTotal records the gateway's cumulative refunded total for p.
// The total is capped at the payment amount and only ever raises the stored
// value, so the webhook and the inline refund path converge.
func (e *Engine) ApplyRefundTotal(ctx context.Context, p *model.Payment, reportedTotal decimal.Decimal) (bool, error) {
	newTotal := decimal.Min(reportedTotal, p.Amount)
	if newTotal.Sub(p.RefundedAmount).Abs().LessThan(amountTolerance) || newTotal.LessThan(p.RefundedAmount) {
		return false, nil
	}

	status := model.PaymentStatusPartiallyRefunded
	if newTotal.GreaterThanOrEqual(p.Amount) {
		status = model.PaymentStatusRefunded
	}

	applied, err := e.payments.ApplyRefundTotal(ctx, p.ID, newTotal, status)
	if err != nil {
		return false, fmt.Errorf("failed to apply refund total: %w", err)
	}
	if !applied {
		return false, nil
	}

	current, err := e.reload(ctx, p.ID)
	if err != nil {
		return false, err
	}
	e.logger.Info("Refund applied",
		zap.String("payment_id", current.ID.String()),
		zap.String("refunded_amount", current.RefundedAmount.StringFixed(2)),
		zap.String("status", string(current.Status)))

	e.Settle(ctx, current)
	return true, nil
}

// Settle recomputes the order balance and announces the payment change.
// A reconciliation failure is reported, not returned: the ledger already changed.
func (e *Engine) Settle(ctx context.Context, p *model.Payment) *entity.OrderBalance {
	balance, err := e.reconciler.RecomputeOrderBalance(ctx, p.OrderID)
	if err != nil {
		e.logger.Error("Order reconciliation failed after ledger change",
			zap.String("payment_id", p.ID.String()),
			zap.String("order_id", p.OrderID.String()),
			zap.Error(err))
		e.dispatcher.PaymentError(ctx, p, err)
	}
	e.dispatcher.PaymentUpdated(ctx, p)
	return balance
}

// HandleEvent applies a normalized gateway event and returns its outcome
func (e *Engine) HandleEvent(ctx context.Context, event *provider.Event) (string, error) {
	switch event.Type {
	case provider.EventChargeSucceeded, provider.EventLinkCompleted:
		return e.handleSucceeded(ctx, event)
	case provider.EventChargeFailed, provider.EventLinkFailed:
		return e.handleFailed(ctx, event)
	case provider.EventChargeRefunded:
		return e.handleRefunded(ctx, event)
	default:
		return OutcomeIgnored, nil
	}
}

func (e *Engine) handleSucceeded(ctx context.Context, event *provider.Event) (string, error) {
	p, err := e.findForSuccess(ctx, event)
	if err != nil {
		return "", err
	}
	if p == nil {
		return OutcomeUnmatched, nil
	}

	applied, err := e.MarkSucceeded(ctx, p, SuccessDetails{
		ChargeRef: event.ChargeRef,
		IntentRef: event.IntentRef,
		Card:      event.Card,
		Source:    "webhook:" + event.GatewayType,
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return OutcomeAlreadyApplied, nil
	}
	return OutcomeSucceeded, nil
}

func (e *Engine) handleFailed(ctx context.Context, event *provider.Event) (string, error) {
	p, err := e.findByRefs(ctx, event.IntentRef, event.ChargeRef)
	if err != nil {
		return "", err
	}
	if p == nil && event.LinkRef != "" {
		if p, err = e.payments.FindByGatewayLinkRef(ctx, event.LinkRef); err != nil {
			return "", err
		}
	}
	if p == nil {
		return OutcomeUnmatched, nil
	}

	applied, err := e.MarkFailed(ctx, p, event.FailureMessage)
	if err != nil {
		return "", err
	}
	if !applied {
		return OutcomeAlreadyApplied, nil
	}
	return OutcomeFailed, nil
}

func (e *Engine) handleRefunded(ctx context.Context, event *provider.Event) (string, error) {
	p, err := e.findByRefs(ctx, event.ChargeRef, event.IntentRef)
	if err != nil {
		return "", err
	}
	if p == nil {
		return OutcomeUnmatched, nil
	}

	// A refund can overtake the success notification for the same charge.
	if p.Status == model.PaymentStatusPending {
		if _, err := e.MarkSucceeded(ctx, p, SuccessDetails{
			ChargeRef: event.ChargeRef,
			IntentRef: event.IntentRef,
			Card:      event.Card,
			Source:    "webhook:" + event.GatewayType,
		}); err != nil {
			return "", err
		}
		if p, err = e.reload(ctx, p.ID); err != nil {
			return "", err
		}
	}
	if !p.Status.Refundable() {
		e.logger.Warn("Refund reported for a payment that cannot be refunded",
			zap.String("payment_id", p.ID.String()),
			zap.String("status", string(p.Status)))
		return OutcomeAlreadyApplied, nil
	}

	applied, err := e.ApplyRefundTotal(ctx, p, event.AmountRefunded)
	if err != nil {
		return "", err
	}
	if !applied {
		return OutcomeAlreadyApplied, nil
	}
	return OutcomeRefundApplied, nil
}

// findForSuccess resolves a success event to its payment. Gateway references
// are tried first; payment-link events without a known reference fall back to
// the order's pending links.
func (e *Engine) findForSuccess(ctx context.Context, event *provider.Event) (*model.Payment, error) {
	p, err := e.findByRefs(ctx, event.IntentRef, event.ChargeRef)
	if err != nil || p != nil {
		return p, err
	}
	if event.LinkRef != "" {
		if p, err = e.payments.FindByGatewayLinkRef(ctx, event.LinkRef); err != nil || p != nil {
			return p, err
		}
	}
	if event.Channel != provider.ChannelPaymentLink && event.LinkRef == "" {
		return nil, nil
	}
	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return nil, nil
	}
	return e.matchPendingLink(ctx, orderID, event.Amount)
}

// matchPendingLink picks the newest pending link whose amount matches within
// tolerance, falling back to the newest pending link of the order.
func (e *Engine) matchPendingLink(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*model.Payment, error) {
	pending, err := e.payments.FindAllForOrder(ctx, orderID, model.PaymentStatusPending)
	if err != nil {
		return nil, err
	}

	var newest *model.Payment
	for i := len(pending) - 1; i >= 0; i-- {
		p := pending[i]
		if p.Method != model.PaymentMethodPaymentLink {
			continue
		}
		if p.Amount.Sub(amount).Abs().LessThan(amountTolerance) {
			return p, nil
		}
		if newest == nil {
			newest = p
		}
	}

	if newest != nil {
		e.logger.Warn("No pending link matches the paid amount, using the most recent pending link",
			zap.String("order_id", orderID.String()),
			zap.String("paid_amount", amount.StringFixed(2)),
			zap.String("payment_id", newest.ID.String()),
			zap.String("payment_amount", newest.Amount.StringFixed(2)))
	}
	return newest, nil
}

// findByRefs tries each reference in order against both the intent and charge columns
func (e *Engine) findByRefs(ctx context.Context, first, second string) (*model.Payment, error) {
	for _, ref := range []string{first, second} {
		if ref == "" {
			continue
		}
		p, err := e.payments.FindByGatewayIntentRef(ctx, ref)
		if err != nil || p != nil {
			return p, err
		}
		p, err = e.payments.FindByGatewayChargeRef(ctx, ref)
		if err != nil || p != nil {
			return p, err
		}
	}
	return nil, nil
}

// backfillRefs records references a late report knows about but the payment lacks
func (e *Engine) backfillRefs(ctx context.Context, p *model.Payment, details SuccessDetails) {
	var patch model.PaymentPatch
	addRefs(&patch, p, details)
	if patch.IsEmpty() {
		return
	}
	if err := e.payments.UpdateByID(ctx, p.ID, patch); err != nil {
		e.logger.Warn("Failed to record gateway references",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err))
	}
}

func addRefs(patch *model.PaymentPatch, p *model.Payment, details SuccessDetails) {
	if details.ChargeRef != "" && p.GatewayChargeRef == nil {
		patch.GatewayChargeRef = model.StringPtr(details.ChargeRef)
	}
	if details.IntentRef != "" && p.GatewayIntentRef == nil {
		patch.GatewayIntentRef = model.StringPtr(details.IntentRef)
	}
	if details.Card != nil && p.CardLast4 == nil {
		patch.CardBrand = model.StringPtr(details.Card.Brand)
		patch.CardLast4 = model.StringPtr(details.Card.Last4)
	}
}

func (e *Engine) reload(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, err := e.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domainErrors.NewPaymentNotFoundError(id.String())
	}
	return p, nil
}
