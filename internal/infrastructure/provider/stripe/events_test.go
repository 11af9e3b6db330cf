package stripe_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	domainerrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
)

const testWebhookSecret = "whsec_test"

func signedEvent(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func eventJSON(id, eventType, object string) string {
	return fmt.Sprintf(`{"id": %q, "object": "event", "type": %q, "created": 1700000000, "data": {"object": %s}}`, id, eventType, object)
}

func TestParseEvent(t *testing.T) {
	gateway, _ := newTestGateway(t)

	t.Run("charge refunded carries the cumulative total", func(t *testing.T) {
		payload, header := signedEvent(t, eventJSON("evt_1", "charge.refunded", `{
			"id": "ch_1", "object": "charge", "amount": 50000, "amount_refunded": 20000,
			"currency": "usd", "payment_intent": "pi_1", "metadata": {"order_id": "ord_1", "channel": "charge"}
		}`))

		event, err := gateway.ParseEvent(payload, header)
		require.NoError(t, err)

		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, provider.EventChargeRefunded, event.Type)
		assert.Equal(t, "charge.refunded", event.GatewayType)
		assert.Equal(t, "ch_1", event.ChargeRef)
		assert.Equal(t, "pi_1", event.IntentRef)
		assert.Equal(t, "ord_1", event.OrderID)
		assert.Equal(t, provider.ChannelCharge, event.Channel)
		assert.True(t, event.Amount.Equal(decimal.NewFromInt(500)))
		assert.True(t, event.AmountRefunded.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), event.CreatedAt)
	})

	t.Run("payment intent succeeded", func(t *testing.T) {
		payload, header := signedEvent(t, eventJSON("evt_2", "payment_intent.succeeded", `{
			"id": "pi_1", "object": "payment_intent", "amount": 50000, "amount_received": 50000,
			"currency": "usd", "latest_charge": "ch_1", "metadata": {"order_id": "ord_1", "channel": "payment_link"}
		}`))

		event, err := gateway.ParseEvent(payload, header)
		require.NoError(t, err)

		assert.Equal(t, provider.EventChargeSucceeded, event.Type)
		assert.Equal(t, "pi_1", event.IntentRef)
		assert.Equal(t, "ch_1", event.ChargeRef)
		assert.Equal(t, provider.ChannelPaymentLink, event.Channel)
	})

	t.Run("paid link checkout", func(t *testing.T) {
		payload, header := signedEvent(t, eventJSON("evt_3", "checkout.session.completed", `{
			"id": "cs_1", "object": "checkout.session", "payment_link": "plink_1", "payment_intent": "pi_7",
			"payment_status": "paid", "status": "complete", "amount_total": 50000, "currency": "usd",
			"metadata": {"order_id": "ord_1"}
		}`))

		event, err := gateway.ParseEvent(payload, header)
		require.NoError(t, err)

		assert.Equal(t, provider.EventLinkCompleted, event.Type)
		assert.Equal(t, "plink_1", event.LinkRef)
		assert.Equal(t, "pi_7", event.IntentRef)
		assert.Equal(t, "ord_1", event.OrderID)
		assert.True(t, event.Amount.Equal(decimal.NewFromInt(500)))
	})

	t.Run("checkout without a payment link is ignored", func(t *testing.T) {
		payload, header := signedEvent(t, eventJSON("evt_4", "checkout.session.completed", `{
			"id": "cs_2", "object": "checkout.session", "payment_status": "paid", "amount_total": 1000, "currency": "usd"
		}`))

		event, err := gateway.ParseEvent(payload, header)
		require.NoError(t, err)
		assert.Equal(t, provider.EventIgnored, event.Type)
	})

	t.Run("unpaid link checkout waits for the async result", func(t *testing.T) {
		payload, header := signedEvent(t, eventJSON("evt_5", "checkout.session.completed", `{
			"id": "cs_3", "object": "checkout.session", "payment_link": "plink_1",
			"payment_status": "unpaid", "status": "complete", "amount_total": 50000, "currency": "usd"
		}`))

		event, err := gateway.ParseEvent(payload, header)
		require.NoError(t, err)
		assert.Equal(t, provider.EventIgnored, event.Type)
	})

	t.Run("unrelated event types are ignored", func(t *testing.T) {
		payload, header := signedEvent(t, eventJSON("evt_6", "customer.created", `{"id": "cus_1", "object": "customer"}`))

		event, err := gateway.ParseEvent(payload, header)
		require.NoError(t, err)
		assert.Equal(t, provider.EventIgnored, event.Type)
		assert.Equal(t, "evt_6", event.ID)
	})

	t.Run("bad signature is a validation error", func(t *testing.T) {
		payload, _ := signedEvent(t, eventJSON("evt_7", "charge.refunded", `{"id": "ch_1", "object": "charge"}`))

		_, err := gateway.ParseEvent(payload, "t=1,v1=deadbeef")
		require.Error(t, err)

		var validationErr *domainerrors.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})
}

func TestDecodeEvent(t *testing.T) {
	gateway, _ := newTestGateway(t)

	event, err := gateway.DecodeEvent([]byte(eventJSON("evt_8", "charge.failed", `{
		"id": "ch_2", "object": "charge", "amount": 50000, "currency": "usd",
		"failure_message": "insufficient funds", "payment_intent": "pi_2"
	}`)))
	require.NoError(t, err)

	assert.Equal(t, provider.EventChargeFailed, event.Type)
	assert.Equal(t, "insufficient funds", event.FailureMessage)
	assert.Equal(t, "pi_2", event.IntentRef)

	_, err = gateway.DecodeEvent([]byte("not json"))
	assert.Error(t, err)
}
