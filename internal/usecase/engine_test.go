package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/usecase"
)

func newBrokenBalanceFixture(t *testing.T) (*fixture, *brokenBalances) {
	t.Helper()
	balances := &brokenBalances{}
	f := newFixtureWith(t, fixtureOptions{
		wrapOrders: func(orders domainRepo.OrderRepository) domainRepo.OrderRepository {
			balances.OrderRepository = orders
			return balances
		},
	})
	return f, balances
}

func TestSuccessSurvivesReconciliationFailure(t *testing.T) {
	t.Run("direct transition", func(t *testing.T) {
		f, balances := newBrokenBalanceFixture(t)
		pending := f.chargePending(t)
		balances.SetFailing(true)

		applied, err := f.engine.MarkSucceeded(f.ctx, f.payment(t, pending.PaymentID), usecase.SuccessDetails{
			IntentRef: pending.IntentRef,
			ChargeRef: "ch_1",
			Source:    "webhook",
		})
		require.NoError(t, err)
		assert.True(t, applied)

		payment := f.payment(t, pending.PaymentID)
		assert.Equal(t, model.PaymentStatusSucceeded, payment.Status)
		assert.True(t, payment.ReceiptSent)
		assert.Equal(t, 1, f.sender.Count(pending.PaymentID))
		assert.Equal(t, 1, f.broadcaster.Count(usecase.BroadcastPaymentError))
		assert.Equal(t, 0, f.broadcaster.Count(usecase.BroadcastOrderUpdated))
		assert.Equal(t, model.OrderPaymentStatusUnpaid, f.orderState(t).PaymentStatus)

		balances.SetFailing(false)
		balance, err := f.usecase.RecomputeOrderBalance(f.ctx, f.order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderPaymentStatusPaid, balance.PaymentStatus)
		assert.Equal(t, model.OrderPaymentStatusPaid, f.orderState(t).PaymentStatus)
	})

	t.Run("webhook delivery completes the event", func(t *testing.T) {
		f, balances := newBrokenBalanceFixture(t)
		pending := f.chargePending(t)
		balances.SetFailing(true)

		outcome, err := f.deliver(succeededEvent("evt_settle", pending.IntentRef, "ch_1"))
		require.NoError(t, err)
		assert.Equal(t, usecase.OutcomeSucceeded, outcome)

		assert.Equal(t, model.PaymentStatusSucceeded, f.payment(t, pending.PaymentID).Status)
		assert.Equal(t, 1, f.sender.Count(pending.PaymentID))
		assert.Equal(t, 1, f.broadcaster.Count(usecase.BroadcastPaymentError))

		stored, err := f.store.GatewayEvents().GetEvent(f.ctx, "stripe", "evt_settle")
		require.NoError(t, err)
		assert.Equal(t, model.GatewayEventStatusCompleted, stored.Status)
	})
}
