package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    model.PaymentStatus
		to      model.PaymentStatus
		allowed bool
	}{
		{model.PaymentStatusPending, model.PaymentStatusSucceeded, true},
		{model.PaymentStatusPending, model.PaymentStatusFailed, true},
		{model.PaymentStatusPending, model.PaymentStatusCancelled, true},
		{model.PaymentStatusPending, model.PaymentStatusRefunded, false},
		{model.PaymentStatusSucceeded, model.PaymentStatusPartiallyRefunded, true},
		{model.PaymentStatusSucceeded, model.PaymentStatusRefunded, true},
		{model.PaymentStatusSucceeded, model.PaymentStatusFailed, false},
		{model.PaymentStatusPartiallyRefunded, model.PaymentStatusRefunded, true},
		{model.PaymentStatusPartiallyRefunded, model.PaymentStatusSucceeded, false},
		{model.PaymentStatusFailed, model.PaymentStatusSucceeded, false},
		{model.PaymentStatusCancelled, model.PaymentStatusSucceeded, false},
		{model.PaymentStatusRefunded, model.PaymentStatusPartiallyRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, model.PaymentStatusFailed.IsTerminal())
	assert.True(t, model.PaymentStatusCancelled.IsTerminal())
	assert.True(t, model.PaymentStatusRefunded.IsTerminal())
	assert.False(t, model.PaymentStatusPending.IsTerminal())

	assert.ElementsMatch(t,
		[]model.PaymentStatus{model.PaymentStatusSucceeded, model.PaymentStatusPartiallyRefunded},
		model.SourcesOf(model.PaymentStatusRefunded))
	assert.Equal(t, []model.PaymentStatus{model.PaymentStatusPending}, model.SourcesOf(model.PaymentStatusSucceeded))
}

func TestPaymentPatch(t *testing.T) {
	payment := &model.Payment{
		Status:           model.PaymentStatusPending,
		GatewayIntentRef: model.StringPtr("pi_1"),
		Amount:           decimal.NewFromInt(500),
	}

	patch := model.PaymentPatch{
		Status:           model.StatusPtr(model.PaymentStatusSucceeded),
		GatewayChargeRef: model.StringPtr("ch_1"),
	}
	assert.Equal(t, map[string]interface{}{
		"status":             model.PaymentStatusSucceeded,
		"gateway_charge_ref": "ch_1",
	}, patch.Columns())

	patch.ApplyTo(payment)
	assert.Equal(t, model.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, "ch_1", model.Deref(payment.GatewayChargeRef))
	assert.Equal(t, "pi_1", model.Deref(payment.GatewayIntentRef), "untouched fields survive")
	assert.True(t, model.PaymentPatch{}.IsEmpty())
}

func TestPaymentClone(t *testing.T) {
	now := time.Now()
	original := &model.Payment{GatewayLinkRef: model.StringPtr("plink_1"), ReceiptSentAt: &now}
	clone := original.Clone()

	*clone.GatewayLinkRef = "plink_2"
	assert.Equal(t, "plink_1", *original.GatewayLinkRef)
	assert.Nil(t, (*model.Payment)(nil).Clone())
}

func TestRefundableAmount(t *testing.T) {
	p := &model.Payment{Amount: decimal.NewFromInt(500), RefundedAmount: decimal.NewFromInt(200)}
	assert.True(t, decimal.NewFromInt(300).Equal(p.RefundableAmount()))

	p.RefundedAmount = decimal.NewFromInt(600)
	assert.True(t, p.RefundableAmount().IsZero())
}

func TestNextRetryDelay(t *testing.T) {
	assert.Equal(t, 10*time.Minute, model.NextRetryDelay(1))
	assert.Equal(t, 40*time.Minute, model.NextRetryDelay(3))
	assert.Equal(t, 24*time.Hour, model.NextRetryDelay(9))
	assert.Equal(t, 24*time.Hour, model.NextRetryDelay(50))
}
