package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	domainerrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
)

// ParseEvent verifies the Stripe-Signature header and normalizes the event
func (g *Gateway) ParseEvent(payload []byte, signature string) (*provider.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		g.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, domainerrors.NewValidationError("signature", "webhook signature verification failed: "+err.Error())
	}
	return normalizeEvent(event, payload)
}

// DecodeEvent normalizes a stored event payload without verifying it again
func (g *Gateway) DecodeEvent(payload []byte) (*provider.Event, error) {
	var event stripego.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domainerrors.NewValidationError("payload", "invalid event payload: "+err.Error())
	}
	return normalizeEvent(event, payload)
}

func normalizeEvent(event stripego.Event, payload []byte) (*provider.Event, error) {
	out := &provider.Event{
		ID:          event.ID,
		Type:        provider.EventIgnored,
		GatewayType: string(event.Type),
		Payload:     payload,
		CreatedAt:   time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case stripego.EventTypePaymentIntentSucceeded, stripego.EventTypePaymentIntentPaymentFailed:
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, decodeError(event, err)
		}
		currency := string(pi.Currency)
		out.IntentRef = pi.ID
		out.Currency = currency
		out.Amount = FromMinorUnits(pi.Amount, currency)
		out.OrderID = pi.Metadata[provider.MetadataOrderID]
		out.Channel = pi.Metadata[provider.MetadataChannel]
		if pi.LatestCharge != nil {
			out.ChargeRef = pi.LatestCharge.ID
			out.Card = chargeCard(pi.LatestCharge)
		}
		if event.Type == stripego.EventTypePaymentIntentSucceeded {
			out.Type = provider.EventChargeSucceeded
			if pi.AmountReceived > 0 {
				out.Amount = FromMinorUnits(pi.AmountReceived, currency)
			}
		} else {
			out.Type = provider.EventChargeFailed
			if pi.LastPaymentError != nil {
				out.FailureMessage = pi.LastPaymentError.Msg
			}
		}

	case stripego.EventTypeChargeSucceeded, stripego.EventTypeChargeFailed, stripego.EventTypeChargeRefunded:
		var ch stripego.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, decodeError(event, err)
		}
		currency := string(ch.Currency)
		out.ChargeRef = ch.ID
		out.Currency = currency
		out.Amount = FromMinorUnits(ch.Amount, currency)
		out.AmountRefunded = FromMinorUnits(ch.AmountRefunded, currency)
		out.OrderID = ch.Metadata[provider.MetadataOrderID]
		out.Channel = ch.Metadata[provider.MetadataChannel]
		out.FailureMessage = ch.FailureMessage
		out.Card = chargeCard(&ch)
		if ch.PaymentIntent != nil {
			out.IntentRef = ch.PaymentIntent.ID
		}
		switch event.Type {
		case stripego.EventTypeChargeSucceeded:
			out.Type = provider.EventChargeSucceeded
		case stripego.EventTypeChargeFailed:
			out.Type = provider.EventChargeFailed
		default:
			out.Type = provider.EventChargeRefunded
		}

	case stripego.EventTypeCheckoutSessionCompleted,
		stripego.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripego.EventTypeCheckoutSessionAsyncPaymentFailed:
		var s stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, decodeError(event, err)
		}
		// Checkout sessions that did not come from one of our payment links are not ours.
		if s.PaymentLink == nil || s.PaymentLink.ID == "" {
			return out, nil
		}
		session := toLinkSession(&s)
		out.LinkRef = session.LinkRef
		out.IntentRef = session.IntentRef
		out.ChargeRef = session.ChargeRef
		out.Amount = session.Amount
		out.Currency = session.Currency
		out.Card = session.Card
		out.OrderID = s.Metadata[provider.MetadataOrderID]
		out.Channel = provider.ChannelPaymentLink

		switch event.Type {
		case stripego.EventTypeCheckoutSessionAsyncPaymentFailed:
			out.Type = provider.EventLinkFailed
			out.FailureMessage = "asynchronous payment failed"
		case stripego.EventTypeCheckoutSessionAsyncPaymentSucceeded:
			out.Type = provider.EventLinkCompleted
		default:
			// An unpaid completion settles later through async_payment_succeeded.
			if session.Paid {
				out.Type = provider.EventLinkCompleted
			}
		}
	}

	return out, nil
}

func decodeError(event stripego.Event, err error) error {
	return domainerrors.NewValidationError("payload", fmt.Sprintf("cannot decode %s event %s: %v", event.Type, event.ID, err))
}
