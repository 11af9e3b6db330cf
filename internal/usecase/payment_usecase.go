package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

const supersededLinkReason = "superseded by new payment link"

// PaymentOptions are service-level defaults for payment requests
type PaymentOptions struct {
	DefaultCurrency string
	// ReturnURL is where customers land after paying a link, unless the request overrides it
	ReturnURL string
}

// ChargeRequest is the input to ChargeOrder
type ChargeRequest struct {
	PaymentMethodRef string
	SaveCard         bool
	CustomerRef      string
	// RequestID is an optional client-generated id; when set it keys gateway idempotency
	RequestID string
}

// RefundRequest is the input to RefundPayment. A nil Amount refunds everything still refundable.
type RefundRequest struct {
	Amount *decimal.Decimal
	Reason string
}

// customerResolver finds or creates the gateway customer for a contact
type customerResolver interface {
	CreateOrGetCustomer(ctx context.Context, req *provider.CustomerRequest) (*provider.Customer, error)
}

// PaymentUsecase is the caller-facing surface of the reconciliation engine
type PaymentUsecase struct {
	payments   domainRepo.PaymentRepository
	orders     domainRepo.OrderRepository
	gateway    provider.Gateway
	customers  customerResolver
	guard      *DuplicateGuard
	reconciler *Reconciler
	engine     *Engine
	dispatcher *Dispatcher
	opts       PaymentOptions
	logger     *zap.Logger
}

// NewPaymentUsecase creates a new PaymentUsecase
func NewPaymentUsecase(
	payments domainRepo.PaymentRepository,
	orders domainRepo.OrderRepository,
	gateway provider.Gateway,
	customers customerResolver,
	guard *DuplicateGuard,
	reconciler *Reconciler,
	engine *Engine,
	dispatcher *Dispatcher,
	opts PaymentOptions,
	logger *zap.Logger,
) *PaymentUsecase {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "usd"
	}
	return &PaymentUsecase{
		payments:   payments,
		orders:     orders,
		gateway:    gateway,
		customers:  customers,
		guard:      guard,
		reconciler: reconciler,
		engine:     engine,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
}

// CreatePaymentLink issues a hosted payment link for the order's balance due.
// An active pending link for the same amount is returned instead of a new one;
// pending links for other amounts are superseded.
func (u *PaymentUsecase) CreatePaymentLink(ctx context.Context, orderID uuid.UUID, returnURL string) (*entity.PaymentLinkResult, error) {
	order, balance, err := u.loadBalance(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireBalanceDue(balance); err != nil {
		return nil, err
	}

	pendingLinks, err := u.pendingLinks(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if n := len(pendingLinks); n > 0 {
		latest := pendingLinks[n-1]
		if latest.LinkURL != nil && latest.Amount.Sub(balance.BalanceDue).Abs().LessThan(amountTolerance) {
			u.logger.Info("Reusing active payment link",
				zap.String("order_id", orderID.String()),
				zap.String("payment_id", latest.ID.String()))
			return &entity.PaymentLinkResult{
				PaymentID: latest.ID,
				LinkID:    model.Deref(latest.GatewayLinkRef),
				URL:       model.Deref(latest.LinkURL),
				Reused:    true,
			}, nil
		}
	}

	if returnURL == "" {
		returnURL = u.opts.ReturnURL
	}
	currency := u.currencyOf(order)
	link, err := u.gateway.CreatePaymentLink(ctx, &provider.PaymentLinkRequest{
		OrderID:     orderID.String(),
		Amount:      balance.BalanceDue,
		Currency:    currency,
		Description: order.Label(),
		ReturnURL:   returnURL,
	})
	if err != nil {
		u.logger.Error("Failed to create payment link",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, err
	}

	payment := &model.Payment{
		ID:             uuid.New(),
		OrderID:        orderID,
		Amount:         balance.BalanceDue,
		RefundedAmount: decimal.Zero,
		Currency:       currency,
		Method:         model.PaymentMethodPaymentLink,
		Status:         model.PaymentStatusPending,
		GatewayLinkRef: model.StringPtr(link.ID),
		LinkURL:        model.StringPtr(link.URL),
	}
	if err := u.payments.Create(ctx, payment); err != nil {
		u.logger.Error("Payment link created at gateway but not recorded",
			zap.String("order_id", orderID.String()),
			zap.String("link_id", link.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record payment link: %w", err)
	}
	u.dispatcher.PaymentCreated(ctx, payment)

	for _, stale := range pendingLinks {
		u.supersede(ctx, stale)
	}

	return &entity.PaymentLinkResult{
		PaymentID: payment.ID,
		LinkID:    link.ID,
		URL:       link.URL,
	}, nil
}

func (u *PaymentUsecase) supersede(ctx context.Context, p *model.Payment) {
	if ref := model.Deref(p.GatewayLinkRef); ref != "" {
		if err := u.gateway.DeactivatePaymentLink(ctx, ref); err != nil {
			u.logger.Warn("Failed to deactivate superseded payment link",
				zap.String("payment_id", p.ID.String()),
				zap.Error(err))
		}
	}
	applied, err := u.payments.UpdateByIDIfStatus(ctx, p.ID, []model.PaymentStatus{model.PaymentStatusPending}, model.PaymentPatch{
		Status:       model.StatusPtr(model.PaymentStatusCancelled),
		ErrorMessage: model.StringPtr(supersededLinkReason),
	})
	if err != nil {
		u.logger.Warn("Failed to cancel superseded payment link",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err))
		return
	}
	if applied {
		if current, err := u.payments.FindByID(ctx, p.ID); err == nil && current != nil {
			u.dispatcher.PaymentUpdated(ctx, current)
		}
	}
}

// ChargeOrder charges a card for the order's balance due. The payment is
// recorded once the gateway accepted the intent; an immediate success is
// applied inline.
func (u *PaymentUsecase) ChargeOrder(ctx context.Context, orderID uuid.UUID, req ChargeRequest) (*entity.ChargeResult, error) {
	if strings.TrimSpace(req.PaymentMethodRef) == "" {
		return nil, domainErrors.NewValidationError("payment_method_id", "payment method is required")
	}

	order, err := u.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domainErrors.NewOrderNotFoundError(orderID.String())
	}

	if err := u.guard.Check(ctx, orderID); err != nil {
		return nil, err
	}

	balance, err := u.balanceOf(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := requireBalanceDue(balance); err != nil {
		return nil, err
	}

	customerRef := req.CustomerRef
	if req.SaveCard && customerRef == "" {
		if order.ContactEmail == "" {
			return nil, domainErrors.NewValidationError("save_card", "saving a card needs a customer or a contact email on the order")
		}
		customer, err := u.customers.CreateOrGetCustomer(ctx, &provider.CustomerRequest{
			Email: order.ContactEmail,
			Name:  order.ContactName,
			Phone: order.ContactPhone,
		})
		if err != nil {
			return nil, err
		}
		customerRef = customer.ID
	}

	var idempotencyKey string
	if req.RequestID != "" {
		idempotencyKey = fmt.Sprintf("order:%s:charge:%s", orderID, req.RequestID)
	}

	currency := u.currencyOf(order)
	intent, err := u.gateway.CreateChargeIntent(ctx, &provider.ChargeIntentRequest{
		OrderID:          orderID.String(),
		Amount:           balance.BalanceDue,
		Currency:         currency,
		PaymentMethodRef: req.PaymentMethodRef,
		CustomerRef:      customerRef,
		SaveCard:         req.SaveCard,
		Description:      order.Label(),
		ReceiptEmail:     order.ContactEmail,
		IdempotencyKey:   idempotencyKey,
	})
	if err != nil {
		u.logger.Error("Charge rejected by gateway",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, err
	}

	method := model.PaymentMethodCard
	if req.CustomerRef != "" {
		method = model.PaymentMethodSavedCard
	}
	payment := &model.Payment{
		ID:               uuid.New(),
		OrderID:          orderID,
		Amount:           balance.BalanceDue,
		RefundedAmount:   decimal.Zero,
		Currency:         currency,
		Method:           method,
		Status:           model.PaymentStatusPending,
		GatewayIntentRef: model.StringPtr(intent.ID),
		CustomerRef:      model.StringPtr(customerRef),
	}
	if err := u.payments.Create(ctx, payment); err != nil {
		u.logger.Error("Charge accepted by gateway but not recorded",
			zap.String("order_id", orderID.String()),
			zap.String("intent_id", intent.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	u.dispatcher.PaymentCreated(ctx, payment)

	switch intent.Status {
	case provider.IntentStatusSucceeded:
		if _, err := u.engine.MarkSucceeded(ctx, payment, SuccessDetails{
			ChargeRef: intent.ChargeRef,
			IntentRef: intent.ID,
			Card:      intent.Card,
			Source:    "charge_response",
		}); err != nil {
			return nil, err
		}
	case provider.IntentStatusFailed, provider.IntentStatusCanceled:
		if _, err := u.engine.MarkFailed(ctx, payment, intent.FailureMessage); err != nil {
			return nil, err
		}
	}

	current, err := u.engine.reload(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	result := &entity.ChargeResult{
		PaymentID: current.ID,
		IntentRef: intent.ID,
		Status:    current.Status,
	}
	if intent.Status == provider.IntentStatusRequiresAction {
		result.RequiresAction = true
		result.ClientSecret = intent.ClientSecret
	}
	return result, nil
}

// RefundPayment refunds part or all of what remains on a payment
func (u *PaymentUsecase) RefundPayment(ctx context.Context, paymentID uuid.UUID, req RefundRequest) (*entity.RefundResult, error) {
	p, err := u.engine.reload(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.Status.Refundable() {
		return nil, domainErrors.NewInvalidStateTransitionError(p.ID.String(), string(p.Status),
			string(model.PaymentStatusRefunded), "only succeeded or partially refunded payments can be refunded")
	}

	available := p.RefundableAmount()
	if !available.IsPositive() {
		return nil, domainErrors.NewInvalidStateTransitionError(p.ID.String(), string(p.Status),
			string(model.PaymentStatusRefunded), "nothing left to refund")
	}

	amount := available
	if req.Amount != nil {
		amount = req.Amount.Round(2)
		if !amount.IsPositive() {
			return nil, domainErrors.NewValidationError("amount", "refund amount must be greater than zero")
		}
		if amount.GreaterThan(available) {
			return nil, domainErrors.NewValidationError("amount",
				fmt.Sprintf("refund amount %s exceeds refundable amount %s", amount.StringFixed(2), available.StringFixed(2)))
		}
	}

	chargeRef := model.Deref(p.GatewayChargeRef)
	intentRef := model.Deref(p.GatewayIntentRef)
	if chargeRef == "" && intentRef == "" {
		return nil, domainErrors.NewInvalidStateTransitionError(p.ID.String(), string(p.Status),
			string(model.PaymentStatusRefunded), "payment has no gateway charge to refund")
	}

	refund, err := u.gateway.IssueRefund(ctx, &provider.RefundRequest{
		ChargeRef: chargeRef,
		IntentRef: intentRef,
		Amount:    amount,
		Currency:  p.Currency,
		Reason:    req.Reason,
		// Keyed on the refunded total so a resubmitted request is not refunded twice.
		IdempotencyKey: fmt.Sprintf("payment:%s:refund:%s:%s", p.ID, p.RefundedAmount.StringFixed(2), amount.StringFixed(2)),
		Metadata:       map[string]string{provider.MetadataOrderID: p.OrderID.String()},
	})
	if err != nil {
		u.logger.Error("Refund rejected by gateway",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err))
		return nil, err
	}

	reported := u.gatewayRefundTotal(ctx, p, chargeRef, intentRef)
	reported = decimal.Max(reported, p.RefundedAmount.Add(amount))
	if _, err := u.engine.ApplyRefundTotal(ctx, p, reported); err != nil {
		return nil, err
	}

	current, err := u.engine.reload(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	result := &entity.RefundResult{
		RefundRef: refund.ID,
		Amount:    amount,
		Status:    current.Status,
	}
	if order, err := u.orders.FindOrder(ctx, p.OrderID); err == nil && order != nil {
		result.PaymentStatus = order.PaymentStatus
	}
	return result, nil
}

// gatewayRefundTotal reads the charge's cumulative refunded total. Zero is
// returned when it cannot be read; the caller then falls back to local math.
func (u *PaymentUsecase) gatewayRefundTotal(ctx context.Context, p *model.Payment, chargeRef, intentRef string) decimal.Decimal {
	if chargeRef == "" {
		intent, err := u.gateway.RetrieveIntent(ctx, intentRef)
		if err != nil || intent.ChargeRef == "" {
			u.logger.Warn("Could not resolve charge for refund total",
				zap.String("payment_id", p.ID.String()),
				zap.Error(err))
			return decimal.Zero
		}
		chargeRef = intent.ChargeRef
	}
	charge, err := u.gateway.RetrieveCharge(ctx, chargeRef)
	if err != nil {
		u.logger.Warn("Could not read refund total from gateway",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err))
		return decimal.Zero
	}
	return charge.AmountRefunded
}

// SyncPaymentLinkStatus polls the gateway for a paid checkout of the payment's link
func (u *PaymentUsecase) SyncPaymentLinkStatus(ctx context.Context, paymentID uuid.UUID) (*entity.SyncResult, error) {
	p, err := u.engine.reload(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Method != model.PaymentMethodPaymentLink {
		return nil, domainErrors.NewValidationError("payment_id", "only payment link payments can be synced")
	}
	if result := syncResultFor(p); result != nil {
		return result, nil
	}

	linkRef := model.Deref(p.GatewayLinkRef)
	if linkRef == "" {
		return nil, domainErrors.NewValidationError("payment_id", "payment has no payment link")
	}

	session, err := u.gateway.FindPaidLinkSession(ctx, linkRef)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &entity.SyncResult{Success: false, Message: "no completed payment found"}, nil
	}
	if !session.Amount.Sub(p.Amount).Abs().LessThan(amountTolerance) {
		u.logger.Warn("Paid link amount differs from the recorded payment",
			zap.String("payment_id", p.ID.String()),
			zap.String("recorded", p.Amount.StringFixed(2)),
			zap.String("paid", session.Amount.StringFixed(2)))
	}

	applied, err := u.engine.MarkSucceeded(ctx, p, SuccessDetails{
		ChargeRef: session.ChargeRef,
		IntentRef: session.IntentRef,
		Card:      session.Card,
		Source:    "manual_sync",
	})
	if err != nil {
		return nil, err
	}
	if applied {
		return &entity.SyncResult{Success: true, Message: "payment synced"}, nil
	}

	current, err := u.engine.reload(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if result := syncResultFor(current); result != nil {
		return result, nil
	}
	return &entity.SyncResult{Success: false, Message: "payment could not be synced"}, nil
}

// syncResultFor answers a sync without asking the gateway, or returns nil for a pending payment
func syncResultFor(p *model.Payment) *entity.SyncResult {
	switch {
	case p.Status == model.PaymentStatusPending:
		return nil
	case p.Status.CountsTowardBalance():
		return &entity.SyncResult{Success: true, Message: "payment already completed"}
	default:
		return &entity.SyncResult{Success: false, Message: "payment is " + string(p.Status)}
	}
}

// CancelPaymentLink cancels a pending payment link and deactivates it at the gateway
func (u *PaymentUsecase) CancelPaymentLink(ctx context.Context, paymentID uuid.UUID, reason string) (*entity.ActionResult, error) {
	p, err := u.engine.reload(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Method != model.PaymentMethodPaymentLink || p.Status != model.PaymentStatusPending {
		return nil, domainErrors.NewInvalidStateTransitionError(p.ID.String(), string(p.Status),
			string(model.PaymentStatusCancelled), "only pending payment links can be cancelled")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by user"
	}

	if ref := model.Deref(p.GatewayLinkRef); ref != "" {
		if err := u.gateway.DeactivatePaymentLink(ctx, ref); err != nil {
			u.logger.Warn("Failed to deactivate payment link at gateway",
				zap.String("payment_id", p.ID.String()),
				zap.Error(err))
		}
	}

	applied, err := u.payments.UpdateByIDIfStatus(ctx, p.ID, []model.PaymentStatus{model.PaymentStatusPending}, model.PaymentPatch{
		Status:       model.StatusPtr(model.PaymentStatusCancelled),
		ErrorMessage: model.StringPtr(reason),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel payment link: %w", err)
	}

	current, err := u.engine.reload(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !applied {
		if current.Status == model.PaymentStatusCancelled {
			return &entity.ActionResult{Success: true}, nil
		}
		return nil, domainErrors.NewInvalidStateTransitionError(current.ID.String(), string(current.Status),
			string(model.PaymentStatusCancelled), "payment changed state before it could be cancelled")
	}

	u.logger.Info("Payment link cancelled",
		zap.String("payment_id", current.ID.String()),
		zap.String("reason", reason))
	u.dispatcher.PaymentUpdated(ctx, current)
	return &entity.ActionResult{Success: true}, nil
}

// SendReceipt is the manual receipt trigger; an already sent receipt is a success
func (u *PaymentUsecase) SendReceipt(ctx context.Context, paymentID uuid.UUID) (*entity.ActionResult, error) {
	if _, err := u.dispatcher.SendReceipt(ctx, paymentID); err != nil {
		return nil, err
	}
	return &entity.ActionResult{Success: true}, nil
}

func (u *PaymentUsecase) GetPayment(ctx context.Context, paymentID uuid.UUID) (*entity.Payment, error) {
	p, err := u.engine.reload(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return entity.NewPayment(p), nil
}

// ListOrderPayments returns every payment recorded for the order, oldest first
func (u *PaymentUsecase) ListOrderPayments(ctx context.Context, orderID uuid.UUID) ([]*entity.Payment, error) {
	order, err := u.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domainErrors.NewOrderNotFoundError(orderID.String())
	}

	payments, err := u.payments.FindAllForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, entity.NewPayment(p))
	}
	return out, nil
}

// RecomputeOrderBalance is the manual reconciliation trigger
func (u *PaymentUsecase) RecomputeOrderBalance(ctx context.Context, orderID uuid.UUID) (*entity.OrderBalance, error) {
	return u.reconciler.RecomputeOrderBalance(ctx, orderID)
}

func (u *PaymentUsecase) loadBalance(ctx context.Context, orderID uuid.UUID) (*model.Order, entity.OrderBalance, error) {
	order, err := u.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, entity.OrderBalance{}, err
	}
	if order == nil {
		return nil, entity.OrderBalance{}, domainErrors.NewOrderNotFoundError(orderID.String())
	}
	balance, err := u.balanceOf(ctx, order)
	return order, balance, err
}

func (u *PaymentUsecase) balanceOf(ctx context.Context, order *model.Order) (entity.OrderBalance, error) {
	payments, err := u.payments.FindAllForOrder(ctx, order.ID, balanceStatuses...)
	if err != nil {
		return entity.OrderBalance{}, err
	}
	return ComputeOrderBalance(order, payments), nil
}

func (u *PaymentUsecase) pendingLinks(ctx context.Context, orderID uuid.UUID) ([]*model.Payment, error) {
	pending, err := u.payments.FindAllForOrder(ctx, orderID, model.PaymentStatusPending)
	if err != nil {
		return nil, err
	}
	links := pending[:0]
	for _, p := range pending {
		if p.Method == model.PaymentMethodPaymentLink {
			links = append(links, p)
		}
	}
	return links, nil
}

func (u *PaymentUsecase) currencyOf(order *model.Order) string {
	if order.Currency != "" {
		return strings.ToLower(order.Currency)
	}
	return u.opts.DefaultCurrency
}

func requireBalanceDue(balance entity.OrderBalance) error {
	if !balance.OrderTotal.IsPositive() {
		return domainErrors.NewValidationError("order", "order total must be greater than zero")
	}
	if !balance.BalanceDue.IsPositive() {
		return domainErrors.NewValidationError("order", "order has no balance due")
	}
	return nil
}
