package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/adapter/repository/memory"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

func TestPaymentLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })
	payments := store.Payments()
	orderID := uuid.New()

	first := &model.Payment{OrderID: orderID, Amount: decimal.NewFromInt(100), Status: model.PaymentStatusFailed, CreatedAt: base.Add(-time.Minute)}
	second := &model.Payment{OrderID: orderID, Amount: decimal.NewFromInt(500), Status: model.PaymentStatusPending, GatewayIntentRef: model.StringPtr("pi_1")}
	require.NoError(t, payments.Create(ctx, first))
	require.NoError(t, payments.Create(ctx, second))

	dup := &model.Payment{OrderID: orderID, GatewayIntentRef: model.StringPtr("pi_1")}
	assert.Error(t, payments.Create(ctx, dup), "intent refs are unique")

	t.Run("finders copy values", func(t *testing.T) {
		found, err := payments.FindByGatewayIntentRef(ctx, "pi_1")
		require.NoError(t, err)
		require.NotNil(t, found)
		found.Status = model.PaymentStatusCancelled

		again, _ := payments.FindByID(ctx, second.ID)
		assert.Equal(t, model.PaymentStatusPending, again.Status)
	})

	t.Run("order queries", func(t *testing.T) {
		all, _ := payments.FindAllForOrder(ctx, orderID)
		require.Len(t, all, 2)
		assert.Equal(t, first.ID, all[0].ID, "oldest first")

		recent, _ := payments.FindRecentForOrder(ctx, orderID, base.Add(-10*time.Second), model.PaymentStatusPending, model.PaymentStatusSucceeded)
		require.Len(t, recent, 1)
		assert.Equal(t, second.ID, recent[0].ID)
	})

	t.Run("conditional transition", func(t *testing.T) {
		patch := model.PaymentPatch{Status: model.StatusPtr(model.PaymentStatusSucceeded), GatewayChargeRef: model.StringPtr("ch_1")}

		applied, err := payments.UpdateByIDIfStatus(ctx, second.ID, []model.PaymentStatus{model.PaymentStatusPending}, patch)
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = payments.UpdateByIDIfStatus(ctx, second.ID, []model.PaymentStatus{model.PaymentStatusPending}, patch)
		require.NoError(t, err)
		assert.False(t, applied, "second writer loses")

		byCharge, _ := payments.FindByGatewayChargeRef(ctx, "ch_1")
		assert.Equal(t, second.ID, byCharge.ID)
	})

	t.Run("refund totals only grow", func(t *testing.T) {
		applied, _ := payments.ApplyRefundTotal(ctx, second.ID, decimal.NewFromInt(200), model.PaymentStatusPartiallyRefunded)
		assert.True(t, applied)

		applied, _ = payments.ApplyRefundTotal(ctx, second.ID, decimal.NewFromInt(200), model.PaymentStatusPartiallyRefunded)
		assert.False(t, applied)

		applied, _ = payments.ApplyRefundTotal(ctx, second.ID, decimal.NewFromInt(100), model.PaymentStatusPartiallyRefunded)
		assert.False(t, applied)

		p, _ := payments.FindByID(ctx, second.ID)
		assert.True(t, decimal.NewFromInt(200).Equal(p.RefundedAmount))
	})

	t.Run("receipt flag set once", func(t *testing.T) {
		marked, _ := payments.MarkReceiptSent(ctx, second.ID, base)
		assert.True(t, marked)
		marked, _ = payments.MarkReceiptSent(ctx, second.ID, base)
		assert.False(t, marked)
	})
}

func TestOrderStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	orderID := uuid.New()
	store.PutOrder(&model.Order{ID: orderID, LineItems: []model.OrderLineItem{{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)}}})

	order, err := store.Orders().FindOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, order.LineItems, 1)

	missing, err := store.Orders().FindOrder(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)

	err = store.Orders().UpdateOrderBalance(ctx, orderID, entity.OrderBalance{PaymentStatus: model.OrderPaymentStatusPaid})
	require.NoError(t, err)
	order, _ = store.Orders().FindOrder(ctx, orderID)
	assert.Equal(t, model.OrderPaymentStatusPaid, order.PaymentStatus)
}

func TestGatewayEventLog(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })
	events := store.GatewayEvents()

	require.NoError(t, events.SaveEvent(ctx, &model.GatewayEvent{Provider: "stripe", EventID: "evt_1", EventType: "charge.refunded"}))
	require.NoError(t, events.SaveEvent(ctx, &model.GatewayEvent{Provider: "stripe", EventID: "evt_1", EventType: "charge.refunded"}))

	pending, _ := events.GetPendingEvents(ctx, 10)
	assert.Len(t, pending, 1, "duplicates ignored")

	require.NoError(t, events.MarkFailed(ctx, "stripe", "evt_1", errors.New("db down")))
	pending, _ = events.GetPendingEvents(ctx, 10)
	assert.Empty(t, pending, "waiting for backoff")

	store.SetClock(func() time.Time { return now.Add(time.Hour) })
	pending, _ = events.GetPendingEvents(ctx, 10)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].ProcessingAttempts)

	require.NoError(t, events.MarkProcessed(ctx, "stripe", "evt_1", "applied"))
	event, _ := events.GetEvent(ctx, "stripe", "evt_1")
	assert.Equal(t, model.GatewayEventStatusCompleted, event.Status)
}
