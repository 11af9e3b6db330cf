package stripe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainerrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/provider/stripe"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/retry"
)

type recordedRequest struct {
	Path           string
	Form           map[string]string
	IdempotencyKey string
}

// fakeStripe serves canned responses in order and records every request
type fakeStripe struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses []cannedResponse
}

type cannedResponse struct {
	status int
	body   string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := make(map[string]string, len(r.Form))
	for k, v := range r.Form {
		form[k] = v[0]
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Path:           r.URL.Path,
		Form:           form,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	resp := cannedResponse{status: http.StatusInternalServerError, body: `{"error":{"type":"api_error","message":"no canned response"}}`}
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeStripe) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestGateway(t *testing.T, responses ...cannedResponse) (*stripe.Gateway, *fakeStripe) {
	t.Helper()
	fake := &fakeStripe{responses: responses}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	gateway := stripe.NewGateway(stripe.Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		Timeout:       5 * time.Second,
		APIURL:        server.URL,
		Retry:         retry.Policy{MaxAttempts: 3, Backoff: retry.Constant(time.Millisecond)},
	}, zap.NewNop())
	return gateway, fake
}

const succeededIntent = `{
	"id": "pi_1",
	"object": "payment_intent",
	"status": "succeeded",
	"amount": 50000,
	"currency": "usd",
	"client_secret": "pi_1_secret",
	"latest_charge": {
		"id": "ch_1",
		"object": "charge",
		"payment_method_details": {"type": "card", "card": {"brand": "visa", "last4": "4242", "exp_month": 12, "exp_year": 2030}}
	}
}`

func TestCreateChargeIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms the intent in minor units", func(t *testing.T) {
		gateway, fake := newTestGateway(t, cannedResponse{http.StatusOK, succeededIntent})

		intent, err := gateway.CreateChargeIntent(ctx, &provider.ChargeIntentRequest{
			OrderID:          "ord_1",
			Amount:           decimal.RequireFromString("500.00"),
			Currency:         "USD",
			PaymentMethodRef: "pm_card_visa",
			IdempotencyKey:   "order:ord_1:charge:req-1",
		})
		require.NoError(t, err)

		assert.Equal(t, "pi_1", intent.ID)
		assert.Equal(t, provider.IntentStatusSucceeded, intent.Status)
		assert.Equal(t, "ch_1", intent.ChargeRef)
		assert.True(t, intent.Amount.Equal(decimal.NewFromInt(500)))
		require.NotNil(t, intent.Card)
		assert.Equal(t, "visa", intent.Card.Brand)
		assert.Equal(t, "4242", intent.Card.Last4)

		requests := fake.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "/v1/payment_intents", requests[0].Path)
		assert.Equal(t, "50000", requests[0].Form["amount"])
		assert.Equal(t, "usd", requests[0].Form["currency"])
		assert.Equal(t, "true", requests[0].Form["confirm"])
		assert.Equal(t, "pm_card_visa", requests[0].Form["payment_method"])
		assert.Equal(t, "ord_1", requests[0].Form["metadata[order_id]"])
		assert.Equal(t, "charge", requests[0].Form["metadata[channel]"])
		assert.Equal(t, "order:ord_1:charge:req-1", requests[0].IdempotencyKey)
	})

	t.Run("retries a server error with the same idempotency key", func(t *testing.T) {
		gateway, fake := newTestGateway(t,
			cannedResponse{http.StatusInternalServerError, `{"error":{"type":"api_error","message":"boom"}}`},
			cannedResponse{http.StatusOK, succeededIntent},
		)

		intent, err := gateway.CreateChargeIntent(ctx, &provider.ChargeIntentRequest{
			OrderID:          "ord_1",
			Amount:           decimal.NewFromInt(500),
			Currency:         "usd",
			PaymentMethodRef: "pm_card_visa",
			IdempotencyKey:   "order:ord_1:charge:req-2",
		})
		require.NoError(t, err)
		assert.Equal(t, "pi_1", intent.ID)

		requests := fake.Requests()
		require.Len(t, requests, 2)
		assert.Equal(t, requests[0].IdempotencyKey, requests[1].IdempotencyKey)
	})

	t.Run("keeps one generated key across retries when none is given", func(t *testing.T) {
		gateway, fake := newTestGateway(t,
			cannedResponse{http.StatusInternalServerError, `{"error":{"type":"api_error","message":"boom"}}`},
			cannedResponse{http.StatusOK, succeededIntent},
		)

		_, err := gateway.CreateChargeIntent(ctx, &provider.ChargeIntentRequest{
			OrderID:          "ord_1",
			Amount:           decimal.NewFromInt(500),
			Currency:         "usd",
			PaymentMethodRef: "pm_card_visa",
		})
		require.NoError(t, err)

		requests := fake.Requests()
		require.Len(t, requests, 2)
		assert.NotEmpty(t, requests[0].IdempotencyKey)
		assert.Equal(t, requests[0].IdempotencyKey, requests[1].IdempotencyKey)
	})

	t.Run("separate charges get separate keys", func(t *testing.T) {
		gateway, fake := newTestGateway(t,
			cannedResponse{http.StatusOK, succeededIntent},
			cannedResponse{http.StatusOK, succeededIntent},
		)
		req := &provider.ChargeIntentRequest{
			OrderID:          "ord_1",
			Amount:           decimal.NewFromInt(500),
			Currency:         "usd",
			PaymentMethodRef: "pm_card_visa",
		}

		_, err := gateway.CreateChargeIntent(ctx, req)
		require.NoError(t, err)
		_, err = gateway.CreateChargeIntent(ctx, req)
		require.NoError(t, err)

		requests := fake.Requests()
		require.Len(t, requests, 2)
		assert.NotEqual(t, requests[0].IdempotencyKey, requests[1].IdempotencyKey)
	})

	t.Run("does not retry a card decline", func(t *testing.T) {
		gateway, fake := newTestGateway(t,
			cannedResponse{http.StatusPaymentRequired, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`},
		)

		_, err := gateway.CreateChargeIntent(ctx, &provider.ChargeIntentRequest{
			OrderID:          "ord_1",
			Amount:           decimal.NewFromInt(500),
			Currency:         "usd",
			PaymentMethodRef: "pm_card_chargeDeclined",
		})
		require.Error(t, err)

		var gwErr *domainerrors.GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, "card_declined", gwErr.GatewayCode)
		assert.Equal(t, http.StatusPaymentRequired, gwErr.HTTPStatus)
		assert.False(t, gwErr.Retryable)
		assert.Len(t, fake.Requests(), 1)
	})
}

func TestIssueRefund(t *testing.T) {
	gateway, fake := newTestGateway(t, cannedResponse{http.StatusOK, `{
		"id": "re_1",
		"object": "refund",
		"amount": 20000,
		"currency": "usd",
		"status": "succeeded",
		"charge": "ch_1"
	}`})

	refund, err := gateway.IssueRefund(context.Background(), &provider.RefundRequest{
		ChargeRef: "ch_1",
		Amount:    decimal.NewFromInt(200),
		Currency:  "usd",
		Reason:    "damaged unit",
	})
	require.NoError(t, err)

	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, "ch_1", refund.ChargeRef)
	assert.Equal(t, "succeeded", refund.Status)
	assert.True(t, refund.Amount.Equal(decimal.NewFromInt(200)))

	requests := fake.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/v1/refunds", requests[0].Path)
	assert.Equal(t, "20000", requests[0].Form["amount"])
	assert.Equal(t, "ch_1", requests[0].Form["charge"])
	assert.Equal(t, "damaged unit", requests[0].Form["metadata[reason]"])
	_, hasReason := requests[0].Form["reason"]
	assert.False(t, hasReason)
}

func TestRetrieveCharge(t *testing.T) {
	gateway, _ := newTestGateway(t, cannedResponse{http.StatusOK, `{
		"id": "ch_1",
		"object": "charge",
		"amount": 50000,
		"amount_refunded": 20000,
		"currency": "usd",
		"paid": true,
		"payment_intent": "pi_1"
	}`})

	charge, err := gateway.RetrieveCharge(context.Background(), "ch_1")
	require.NoError(t, err)

	assert.Equal(t, "pi_1", charge.IntentRef)
	assert.True(t, charge.Paid)
	assert.True(t, charge.AmountRefunded.Equal(decimal.NewFromInt(200)))
}

func TestPaymentLinks(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a price then a link", func(t *testing.T) {
		gateway, fake := newTestGateway(t,
			cannedResponse{http.StatusOK, `{"id": "price_1", "object": "price"}`},
			cannedResponse{http.StatusOK, `{"id": "plink_1", "object": "payment_link", "url": "https://buy.stripe.com/test_1", "active": true}`},
		)

		link, err := gateway.CreatePaymentLink(ctx, &provider.PaymentLinkRequest{
			OrderID:     "ord_1",
			Amount:      decimal.RequireFromString("499.99"),
			Currency:    "usd",
			Description: "Order #1001",
		})
		require.NoError(t, err)
		assert.Equal(t, "plink_1", link.ID)
		assert.Equal(t, "https://buy.stripe.com/test_1", link.URL)

		requests := fake.Requests()
		require.Len(t, requests, 2)
		assert.Equal(t, "/v1/prices", requests[0].Path)
		assert.Equal(t, "49999", requests[0].Form["unit_amount"])
		assert.Equal(t, "/v1/payment_links", requests[1].Path)
		assert.Equal(t, "price_1", requests[1].Form["line_items[0][price]"])
		assert.Equal(t, "payment_link", requests[1].Form["payment_intent_data[metadata][channel]"])
		assert.Equal(t, "ord_1", requests[1].Form["payment_intent_data[metadata][order_id]"])
	})

	t.Run("retries reuse the price and link keys", func(t *testing.T) {
		gateway, fake := newTestGateway(t,
			cannedResponse{http.StatusOK, `{"id": "price_1", "object": "price"}`},
			cannedResponse{http.StatusServiceUnavailable, `{"error":{"type":"api_error","message":"unavailable"}}`},
			cannedResponse{http.StatusOK, `{"id": "price_1", "object": "price"}`},
			cannedResponse{http.StatusOK, `{"id": "plink_1", "object": "payment_link", "url": "https://buy.stripe.com/test_1", "active": true}`},
		)

		link, err := gateway.CreatePaymentLink(ctx, &provider.PaymentLinkRequest{
			OrderID:     "ord_1",
			Amount:      decimal.NewFromInt(500),
			Currency:    "usd",
			Description: "Order #1001",
		})
		require.NoError(t, err)
		assert.Equal(t, "plink_1", link.ID)

		requests := fake.Requests()
		require.Len(t, requests, 4)
		priceKey, linkKey := requests[0].IdempotencyKey, requests[1].IdempotencyKey
		assert.True(t, strings.HasSuffix(priceKey, ":price"), priceKey)
		assert.True(t, strings.HasSuffix(linkKey, ":link"), linkKey)
		assert.Equal(t, priceKey, requests[2].IdempotencyKey)
		assert.Equal(t, linkKey, requests[3].IdempotencyKey)
	})

	t.Run("finds the paid checkout session", func(t *testing.T) {
		gateway, _ := newTestGateway(t, cannedResponse{http.StatusOK, `{
			"object": "list",
			"has_more": false,
			"url": "/v1/checkout/sessions",
			"data": [
				{"id": "cs_open", "object": "checkout.session", "status": "open", "payment_status": "unpaid", "amount_total": 50000, "currency": "usd"},
				{"id": "cs_paid", "object": "checkout.session", "status": "complete", "payment_status": "paid", "amount_total": 50000, "currency": "usd",
				 "payment_intent": {"id": "pi_9", "object": "payment_intent", "latest_charge": "ch_9"}}
			]
		}`})

		session, err := gateway.FindPaidLinkSession(ctx, "plink_1")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "cs_paid", session.ID)
		assert.Equal(t, "plink_1", session.LinkRef)
		assert.Equal(t, "pi_9", session.IntentRef)
		assert.Equal(t, "ch_9", session.ChargeRef)
		assert.True(t, session.Amount.Equal(decimal.NewFromInt(500)))
	})

	t.Run("returns nil when nothing is paid yet", func(t *testing.T) {
		gateway, _ := newTestGateway(t, cannedResponse{http.StatusOK, `{"object": "list", "has_more": false, "url": "/v1/checkout/sessions", "data": []}`})

		session, err := gateway.FindPaidLinkSession(ctx, "plink_1")
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(50000), stripe.ToMinorUnits(decimal.NewFromInt(500), "usd"))
	assert.Equal(t, int64(1001), stripe.ToMinorUnits(decimal.RequireFromString("10.005"), "usd"))
	assert.Equal(t, int64(500), stripe.ToMinorUnits(decimal.NewFromInt(500), "JPY"))
	assert.True(t, stripe.FromMinorUnits(49999, "usd").Equal(decimal.RequireFromString("499.99")))
	assert.True(t, stripe.FromMinorUnits(500, "jpy").Equal(decimal.NewFromInt(500)))
}
