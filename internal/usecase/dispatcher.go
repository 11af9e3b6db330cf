package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/retry"
)

const (
	// DefaultReceiptLockTTL is the shortest receipt claim handed out
	DefaultReceiptLockTTL = 30 * time.Second
	// DefaultReceiptSendTimeout bounds a single receipt send attempt
	DefaultReceiptSendTimeout = 30 * time.Second

	receiptLockMargin = 5 * time.Second
)

var errReceiptNotSent = errors.New("receipt sender reported nothing was sent")

// DispatcherOptions tunes receipt delivery
type DispatcherOptions struct {
	ReceiptPolicy retry.Policy
	// ReceiptLockTTL is raised to cover every send attempt and its backoff
	ReceiptLockTTL     time.Duration
	ReceiptSendTimeout time.Duration
}

// Dispatcher fans payment events out to the broadcaster and publisher and
// delivers receipts at most once per payment. Its failures are logged and
// reported as PaymentError events, never returned to the ledger flow.
type Dispatcher struct {
	payments    domainRepo.PaymentRepository
	orders      domainRepo.OrderRepository
	sender      ReceiptSender
	broadcaster Broadcaster
	publisher   EventPublisher
	locker      Locker
	policy      retry.Policy
	sendTimeout time.Duration
	lockTTL     time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewDispatcher creates a new Dispatcher. broadcaster and publisher may be nil.
func NewDispatcher(
	payments domainRepo.PaymentRepository,
	orders domainRepo.OrderRepository,
	sender ReceiptSender,
	broadcaster Broadcaster,
	publisher EventPublisher,
	locker Locker,
	opts DispatcherOptions,
	logger *zap.Logger,
) *Dispatcher {
	if opts.ReceiptSendTimeout <= 0 {
		opts.ReceiptSendTimeout = DefaultReceiptSendTimeout
	}
	if opts.ReceiptLockTTL <= 0 {
		opts.ReceiptLockTTL = DefaultReceiptLockTTL
	}
	// the claim outlives the slowest possible delivery
	if worst := opts.ReceiptPolicy.MaxDuration(opts.ReceiptSendTimeout) + receiptLockMargin; worst > opts.ReceiptLockTTL {
		opts.ReceiptLockTTL = worst
	}
	opts.ReceiptPolicy.Retryable = receiptRetryable(opts.ReceiptPolicy.Retryable)

	return &Dispatcher{
		payments:    payments,
		orders:      orders,
		sender:      sender,
		broadcaster: broadcaster,
		publisher:   publisher,
		locker:      locker,
		policy:      opts.ReceiptPolicy,
		sendTimeout: opts.ReceiptSendTimeout,
		lockTTL:     opts.ReceiptLockTTL,
		now:         time.Now,
		logger:      logger,
	}
}

// receiptRetryable stops retries that cannot help: a contact without an email,
// or a timed-out send that may still be delivered
func receiptRetryable(next func(error) bool) func(error) bool {
	return func(err error) bool {
		if errors.Is(err, errReceiptNotSent) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return next == nil || next(err)
	}
}

// ReceiptLockTTL is the claim duration used for receipt sends
func (d *Dispatcher) ReceiptLockTTL() time.Duration {
	return d.lockTTL
}

// SetClock replaces the dispatcher's time source
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

func (d *Dispatcher) PaymentCreated(ctx context.Context, p *model.Payment) {
	d.fire(ctx, BroadcastPaymentCreated, d.newEvent(entity.PaymentCreated, p, ""))
}

func (d *Dispatcher) PaymentUpdated(ctx context.Context, p *model.Payment) {
	d.fire(ctx, BroadcastPaymentUpdated, d.newEvent(entity.PaymentUpdated, p, ""))
}

// PaymentError reports a failure that happened around p without interrupting the caller
func (d *Dispatcher) PaymentError(ctx context.Context, p *model.Payment, cause error) {
	d.fire(ctx, BroadcastPaymentError, d.newEvent(entity.PaymentError, p, cause.Error()))
}

func (d *Dispatcher) newEvent(kind entity.PaymentEventKind, p *model.Payment, message string) *entity.PaymentEvent {
	return &entity.PaymentEvent{
		Kind:           kind,
		OrderID:        p.OrderID,
		PaymentID:      p.ID,
		Status:         p.Status,
		Method:         p.Method,
		Amount:         p.Amount,
		RefundedAmount: p.RefundedAmount,
		Currency:       p.Currency,
		Message:        message,
		OccurredAt:     d.now().UTC(),
	}
}

func (d *Dispatcher) fire(ctx context.Context, name string, event *entity.PaymentEvent) {
	if d.broadcaster != nil {
		if err := d.broadcaster.Emit(ctx, name, event.OrderID, event); err != nil {
			d.logger.Warn("Failed to broadcast payment event",
				zap.String("event", name),
				zap.String("payment_id", event.PaymentID.String()),
				zap.Error(err))
		}
	}
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Warn("Failed to publish payment event",
				zap.String("kind", string(event.Kind)),
				zap.String("payment_id", event.PaymentID.String()),
				zap.Error(err))
		}
	}
}

// DeliverReceipt sends the receipt after a success transition. Failures are
// logged and emitted as PaymentError; the receipt can be re-triggered later.
func (d *Dispatcher) DeliverReceipt(ctx context.Context, p *model.Payment) {
	if _, err := d.SendReceipt(ctx, p.ID); err != nil {
		d.logger.Error("Receipt delivery failed",
			zap.String("payment_id", p.ID.String()),
			zap.String("order_id", p.OrderID.String()),
			zap.Error(err))
		d.PaymentError(ctx, p, fmt.Errorf("receipt delivery failed: %w", err))
	}
}

// SendReceipt delivers the receipt unless it was already sent. The flag is
// re-read under a per-payment claim lock so near-simultaneous triggers send
// once. sent is false when nothing was sent by this call.
func (d *Dispatcher) SendReceipt(ctx context.Context, paymentID uuid.UUID) (sent bool, err error) {
	p, err := d.payments.FindByID(ctx, paymentID)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, domainErrors.NewPaymentNotFoundError(paymentID.String())
	}
	if p.ReceiptSent {
		return false, nil
	}
	if !p.Status.CountsTowardBalance() {
		return false, domainErrors.NewInvalidStateTransitionError(p.ID.String(), string(p.Status), "receipt_sent",
			"a receipt can only be sent for a completed payment")
	}

	release, acquired, err := d.locker.TryLock(ctx, "receipt:"+paymentID.String(), d.lockTTL)
	if err != nil {
		return false, fmt.Errorf("failed to claim receipt lock: %w", err)
	}
	if !acquired {
		d.logger.Debug("Receipt already being sent by another worker",
			zap.String("payment_id", paymentID.String()))
		return false, nil
	}
	defer release()

	p, err = d.payments.FindByID(ctx, paymentID)
	if err != nil {
		return false, err
	}
	if p == nil || p.ReceiptSent {
		return false, nil
	}

	order, err := d.orders.FindOrder(ctx, p.OrderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, domainErrors.NewOrderNotFoundError(p.OrderID.String())
	}

	err = d.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
		ok, err := d.sender.SendReceipt(sendCtx, p, order)
		if err != nil {
			d.logger.Warn("Receipt send attempt failed",
				zap.String("payment_id", p.ID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		if !ok {
			return errReceiptNotSent
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if _, err := d.payments.MarkReceiptSent(ctx, p.ID, d.now()); err != nil {
		return true, fmt.Errorf("receipt sent but flag not recorded: %w", err)
	}

	d.logger.Info("Receipt sent",
		zap.String("payment_id", p.ID.String()),
		zap.String("order_id", p.OrderID.String()))
	return true, nil
}
