package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/adapter/repository/memory"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider/mocks"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/lock"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/usecase"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/retry"
)

// MockGateway is the shared gateway mock
type MockGateway = mocks.Gateway

// fakeReceiptSender counts receipts per payment
type fakeReceiptSender struct {
	mu       sync.Mutex
	sent     map[uuid.UUID]int
	attempts int
	err      error
	noEmail  bool
	delay    time.Duration
}

func (s *fakeReceiptSender) SendReceipt(ctx context.Context, payment *model.Payment, order *model.Order) (bool, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.err != nil {
		return false, s.err
	}
	if s.noEmail {
		return false, nil
	}
	s.sent[payment.ID]++
	return true, nil
}

func (s *fakeReceiptSender) Count(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[id]
}

func (s *fakeReceiptSender) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *fakeReceiptSender) NoEmail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noEmail = true
}

func (s *fakeReceiptSender) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// fakeBroadcaster records emitted event names
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) Emit(ctx context.Context, event string, orderID uuid.UUID, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBroadcaster) Count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == event {
			n++
		}
	}
	return n
}

// fakeClock is a settable time source shared by the store, guard and dispatcher
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctx         context.Context
	store       *memory.Store
	payments    domainRepo.PaymentRepository
	gateway     *MockGateway
	sender      *fakeReceiptSender
	broadcaster *fakeBroadcaster
	clock       *fakeClock
	reconciler  *usecase.Reconciler
	dispatcher  *usecase.Dispatcher
	engine      *usecase.Engine
	usecase     *usecase.PaymentUsecase
	webhooks    *usecase.WebhookUsecase
	customers   *usecase.CustomerUsecase
	order       *model.Order
	intents     int
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, fixtureOptions{})
}

// fixtureOptions may decorate the memory repositories handed to the engine
type fixtureOptions struct {
	wrapPayments func(domainRepo.PaymentRepository) domainRepo.PaymentRepository
	wrapOrders   func(domainRepo.OrderRepository) domainRepo.OrderRepository
}

// newFixtureWith builds the engine over the memory store
func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	logger := zap.NewNop()

	clock := &fakeClock{now: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	store.SetClock(clock.Now)

	payments := store.Payments()
	if opts.wrapPayments != nil {
		payments = opts.wrapPayments(payments)
	}
	orders := store.Orders()
	if opts.wrapOrders != nil {
		orders = opts.wrapOrders(orders)
	}

	gateway := &MockGateway{}
	sender := &fakeReceiptSender{sent: make(map[uuid.UUID]int)}
	broadcaster := &fakeBroadcaster{}

	guard := usecase.NewDuplicateGuard(payments, 10*time.Second, logger)
	guard.SetClock(clock.Now)
	reconciler := usecase.NewReconciler(payments, orders, broadcaster, logger)
	dispatcher := usecase.NewDispatcher(payments, orders, sender, broadcaster, nil, lock.NewLocalLocker(),
		usecase.DispatcherOptions{ReceiptPolicy: retry.Policy{MaxAttempts: 2}}, logger)
	dispatcher.SetClock(clock.Now)
	engine := usecase.NewEngine(payments, reconciler, dispatcher, logger)
	customers := usecase.NewCustomerUsecase(gateway, store.CustomerMappings(), logger)
	payment := usecase.NewPaymentUsecase(payments, orders, gateway, customers, guard, reconciler, engine, dispatcher,
		usecase.PaymentOptions{DefaultCurrency: "usd", ReturnURL: "https://flushjohn.example/thanks"}, logger)
	webhooks := usecase.NewWebhookUsecase(gateway, store.GatewayEvents(), engine, logger)

	order := &model.Order{
		ID:           uuid.New(),
		OrderNumber:  "1001",
		ContactName:  "Dana Site Manager",
		ContactEmail: "dana@example.com",
		Currency:     "usd",
		LineItems: []model.OrderLineItem{
			{ID: 1, Description: "Standard portable toilet", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(200)},
			{ID: 2, Description: "Delivery and pickup", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
		PaymentStatus: model.OrderPaymentStatusUnpaid,
	}
	order.LineItems[0].OrderID = order.ID
	order.LineItems[1].OrderID = order.ID
	store.PutOrder(order)

	return &fixture{
		ctx:         context.Background(),
		store:       store,
		payments:    payments,
		gateway:     gateway,
		sender:      sender,
		broadcaster: broadcaster,
		clock:       clock,
		reconciler:  reconciler,
		dispatcher:  dispatcher,
		engine:      engine,
		usecase:     payment,
		webhooks:    webhooks,
		customers:   customers,
		order:       order,
	}
}

func (f *fixture) orderState(t *testing.T) *model.Order {
	t.Helper()
	order, err := f.store.Orders().FindOrder(f.ctx, f.order.ID)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func (f *fixture) payment(t *testing.T, id uuid.UUID) *model.Payment {
	t.Helper()
	p, err := f.payments.FindByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *fixture) nextIntentID() string {
	f.intents++
	return fmt.Sprintf("pi_%d", f.intents)
}

// chargeWith runs ChargeOrder with the gateway answering intent once
func (f *fixture) chargeWith(t *testing.T, intent *provider.ChargeIntent) *entity.ChargeResult {
	t.Helper()
	f.gateway.On("CreateChargeIntent", mock.Anything, mock.Anything).Return(intent, nil).Once()
	result, err := f.usecase.ChargeOrder(f.ctx, f.order.ID, usecase.ChargeRequest{PaymentMethodRef: "pm_card_visa"})
	require.NoError(t, err)
	return result
}

// chargePending leaves a card payment pending on customer authentication
func (f *fixture) chargePending(t *testing.T) *entity.ChargeResult {
	t.Helper()
	id := f.nextIntentID()
	return f.chargeWith(t, &provider.ChargeIntent{
		ID:           id,
		Status:       provider.IntentStatusRequiresAction,
		ClientSecret: id + "_secret",
	})
}

// chargeSucceeded pays the full balance with charge ch_1
func (f *fixture) chargeSucceeded(t *testing.T) *entity.ChargeResult {
	t.Helper()
	return f.chargeWith(t, &provider.ChargeIntent{
		ID:        f.nextIntentID(),
		Status:    provider.IntentStatusSucceeded,
		ChargeRef: "ch_1",
		Card:      &provider.CardSummary{Brand: "visa", Last4: "4242"},
	})
}

// deliver pushes event through the webhook entry point as a signed delivery
func (f *fixture) deliver(event *provider.Event) (string, error) {
	payload := []byte(fmt.Sprintf(`{"id":%q}`, event.ID))
	signature := "t=1,v1=" + event.ID
	f.gateway.On("ParseEvent", payload, signature).Return(event, nil)
	return f.webhooks.HandleGatewayEvent(f.ctx, payload, signature)
}

// flakyPayments fails intent lookups while failing is set
type flakyPayments struct {
	domainRepo.PaymentRepository
	mu      sync.Mutex
	failing bool
}

func (p *flakyPayments) SetFailing(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = v
}

func (p *flakyPayments) FindByGatewayIntentRef(ctx context.Context, ref string) (*model.Payment, error) {
	p.mu.Lock()
	failing := p.failing
	p.mu.Unlock()
	if failing {
		return nil, errors.New("database unavailable")
	}
	return p.PaymentRepository.FindByGatewayIntentRef(ctx, ref)
}

// brokenBalances rejects every order balance update while failing is set
type brokenBalances struct {
	domainRepo.OrderRepository
	mu      sync.Mutex
	failing bool
}

func (o *brokenBalances) SetFailing(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failing = v
}

func (o *brokenBalances) UpdateOrderBalance(ctx context.Context, id uuid.UUID, balance entity.OrderBalance) error {
	o.mu.Lock()
	failing := o.failing
	o.mu.Unlock()
	if failing {
		return errors.New("orders table locked")
	}
	return o.OrderRepository.UpdateOrderBalance(ctx, id, balance)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
