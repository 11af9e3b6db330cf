// Package memory holds in-process implementations of the repositories, used
// by the memory database driver and by tests. Every method copies values in
// and out so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

// Store is a process-local database.
type Store struct {
	mu        sync.Mutex
	payments  map[uuid.UUID]*model.Payment
	orders    map[uuid.UUID]*model.Order
	events    map[string]*model.GatewayEvent
	customers map[string]*model.CustomerMapping
	nextID    int64
	now       func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		payments:  make(map[uuid.UUID]*model.Payment),
		orders:    make(map[uuid.UUID]*model.Order),
		events:    make(map[string]*model.GatewayEvent),
		customers: make(map[string]*model.CustomerMapping),
		now:       time.Now,
	}
}

// SetClock replaces the clock used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Payments() repository.PaymentRepository { return &paymentRepository{s} }
func (s *Store) Orders() repository.OrderRepository { return &orderRepository{s} }
func (s *Store) GatewayEvents() repository.GatewayEventRepository { return &gatewayEventRepository{s} }
func (s *Store) CustomerMappings() repository.CustomerMappingRepository { return &customerMappingRepository{s} }

// PutOrder inserts or replaces an order with its line items.
func (s *Store) PutOrder(order *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = cloneOrder(order)
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.LineItems = append([]model.OrderLineItem(nil), o.LineItems...)
	return &c
}

type paymentRepository struct{ s *Store }

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if _, exists := r.s.payments[payment.ID]; exists {
		return fmt.Errorf("failed to create payment: duplicate id %s", payment.ID)
	}
	for _, existing := range r.s.payments {
		if sameRef(existing.GatewayIntentRef, payment.GatewayIntentRef) || sameRef(existing.GatewayChargeRef, payment.GatewayChargeRef) {
			return fmt.Errorf("failed to create payment: duplicate gateway reference")
		}
	}

	now := r.s.now()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = payment.CreatedAt
	}
	r.s.payments[payment.ID] = payment.Clone()
	return nil
}

func sameRef(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.payments[id].Clone(), nil
}

func (r *paymentRepository) findBy(match func(*model.Payment) bool) *model.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *model.Payment
	for _, p := range r.s.payments {
		if match(p) && (found == nil || p.CreatedAt.After(found.CreatedAt)) {
			found = p
		}
	}
	return found.Clone()
}

func (r *paymentRepository) FindByGatewayChargeRef(ctx context.Context, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, nil
	}
	return r.findBy(func(p *model.Payment) bool { return model.Deref(p.GatewayChargeRef) == ref }), nil
}

func (r *paymentRepository) FindByGatewayIntentRef(ctx context.Context, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, nil
	}
	return r.findBy(func(p *model.Payment) bool { return model.Deref(p.GatewayIntentRef) == ref }), nil
}

func (r *paymentRepository) FindByGatewayLinkRef(ctx context.Context, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, nil
	}
	return r.findBy(func(p *model.Payment) bool { return model.Deref(p.GatewayLinkRef) == ref }), nil
}

func (r *paymentRepository) list(orderID uuid.UUID, since time.Time, statuses []model.PaymentStatus) []*model.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.OrderID != orderID || p.CreatedAt.Before(since) || !hasStatus(statuses, p.Status) {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func hasStatus(statuses []model.PaymentStatus, status model.PaymentStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r *paymentRepository) FindAllForOrder(ctx context.Context, orderID uuid.UUID, statuses ...model.PaymentStatus) ([]*model.Payment, error) {
	return r.list(orderID, time.Time{}, statuses), nil
}

func (r *paymentRepository) FindRecentForOrder(ctx context.Context, orderID uuid.UUID, since time.Time, statuses ...model.PaymentStatus) ([]*model.Payment, error) {
	out := r.list(orderID, since, statuses)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *paymentRepository) UpdateByID(ctx context.Context, id uuid.UUID, patch model.PaymentPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok {
		return fmt.Errorf("payment not found: %s", id)
	}
	patch.ApplyTo(p)
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *paymentRepository) UpdateByIDIfStatus(ctx context.Context, id uuid.UUID, from []model.PaymentStatus, patch model.PaymentPatch) (bool, error) {
	if patch.IsEmpty() || len(from) == 0 {
		return false, nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok || !hasStatus(from, p.Status) {
		return false, nil
	}
	patch.ApplyTo(p)
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *paymentRepository) ApplyRefundTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal, status model.PaymentStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok || !hasStatus(model.SourcesOf(status), p.Status) || !p.RefundedAmount.LessThan(total) {
		return false, nil
	}
	p.RefundedAmount = total
	p.Status = status
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *paymentRepository) MarkReceiptSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok || p.ReceiptSent {
		return false, nil
	}
	p.ReceiptSent = true
	p.ReceiptSentAt = &at
	p.UpdatedAt = r.s.now()
	return true, nil
}

type orderRepository struct{ s *Store }

func (r *orderRepository) FindOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *orderRepository) UpdateOrderBalance(ctx context.Context, id uuid.UUID, balance entity.OrderBalance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return fmt.Errorf("order not found: %s", id)
	}
	o.OrderTotal = balance.OrderTotal
	o.PaidAmount = balance.PaidAmount
	o.BalanceDue = balance.BalanceDue
	o.PaymentStatus = balance.PaymentStatus
	o.UpdatedAt = r.s.now()
	return nil
}

type gatewayEventRepository struct{ s *Store }

func eventKey(provider, eventID string) string {
	return provider + "/" + eventID
}

func (r *gatewayEventRepository) SaveEvent(ctx context.Context, event *model.GatewayEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := eventKey(event.Provider, event.EventID)
	if _, exists := r.s.events[key]; exists {
		return nil
	}
	if event.Status == "" {
		event.Status = model.GatewayEventStatusPending
	}
	r.s.nextID++
	event.ID = r.s.nextID
	event.CreatedAt = r.s.now()
	c := *event
	r.s.events[key] = &c
	return nil
}

func (r *gatewayEventRepository) GetEvent(ctx context.Context, provider, eventID string) (*model.GatewayEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[eventKey(provider, eventID)]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (r *gatewayEventRepository) MarkProcessed(ctx context.Context, provider, eventID, outcome string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[eventKey(provider, eventID)]
	if !ok {
		return fmt.Errorf("gateway event not found: %s", eventID)
	}
	now := r.s.now()
	e.Status = model.GatewayEventStatusCompleted
	e.Outcome = &outcome
	e.ProcessedAt = &now
	e.LastError = nil
	return nil
}

func (r *gatewayEventRepository) MarkFailed(ctx context.Context, provider, eventID string, cause error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[eventKey(provider, eventID)]
	if !ok {
		return fmt.Errorf("gateway event not found: %s", eventID)
	}
	e.ProcessingAttempts++
	next := r.s.now().Add(model.NextRetryDelay(e.ProcessingAttempts))
	msg := cause.Error()
	e.Status = model.GatewayEventStatusFailed
	e.LastError = &msg
	e.NextRetryAt = &next
	return nil
}

func (r *gatewayEventRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.GatewayEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	var out []*model.GatewayEvent
	for _, e := range r.s.events {
		if e.Status == model.GatewayEventStatusCompleted {
			continue
		}
		if e.NextRetryAt != nil && e.NextRetryAt.After(now) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type customerMappingRepository struct{ s *Store }

func (r *customerMappingRepository) FindByEmail(ctx context.Context, provider, email string) (*model.CustomerMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.customers[eventKey(provider, strings.ToLower(email))]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *customerMappingRepository) Create(ctx context.Context, mapping *model.CustomerMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	mapping.CustomerEmail = strings.ToLower(mapping.CustomerEmail)
	key := eventKey(mapping.Provider, mapping.CustomerEmail)
	if _, exists := r.s.customers[key]; exists {
		return nil
	}
	r.s.nextID++
	mapping.ID = r.s.nextID
	mapping.CreatedAt = r.s.now()
	mapping.UpdatedAt = mapping.CreatedAt
	c := *mapping
	r.s.customers[key] = &c
	return nil
}
