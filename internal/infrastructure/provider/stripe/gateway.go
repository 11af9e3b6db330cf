package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/retry"
	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	domainerrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
)

// Config holds what the Stripe gateway needs to talk to the API
type Config struct {
	SecretKey     string
	WebhookSecret string
	// Timeout bounds every single API call
	Timeout time.Duration
	// APIURL overrides the API base URL, used against stripe-mock and in tests
	APIURL string
	Retry  retry.Policy
}

// Gateway implements provider.Gateway on top of the Stripe API
type Gateway struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
	policy        retry.Policy
	logger        *zap.Logger
}

var _ provider.Gateway = (*Gateway)(nil)

// NewGateway creates a Stripe gateway. Retries are driven by cfg.Retry, so
// the SDK's own network retries are switched off.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	backendConfig := &stripego.BackendConfig{
		MaxNetworkRetries: stripego.Int64(0),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripego.String(cfg.APIURL)
	}
	backend := stripego.GetBackendWithConfig(stripego.APIBackend, backendConfig)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripego.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	policy := cfg.Retry
	if policy.Retryable == nil {
		policy.Retryable = isRetryable
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		timeout:       timeout,
		policy:        policy,
		logger:        logger,
	}
}

func (g *Gateway) Name() string {
	return string(provider.ProviderTypeStripe)
}

// CreatePaymentLink creates a one-off price for the amount and a payment link selling it
func (g *Gateway) CreatePaymentLink(ctx context.Context, req *provider.PaymentLinkRequest) (*provider.PaymentLink, error) {
	var link *stripego.PaymentLink
	key := writeKey(req.IdempotencyKey)
	err := g.call(ctx, "create_payment_link", func(ctx context.Context) error {
		priceParams := &stripego.PriceParams{
			Currency:   stripego.String(strings.ToLower(req.Currency)),
			UnitAmount: stripego.Int64(ToMinorUnits(req.Amount, req.Currency)),
			ProductData: &stripego.PriceProductDataParams{
				Name: stripego.String(req.Description),
			},
		}
		priceParams.SetIdempotencyKey(key + ":price")
		priceParams.Context = ctx
		price, err := g.api.Prices.New(priceParams)
		if err != nil {
			return err
		}

		metadata := orderMetadata(req.OrderID, provider.ChannelPaymentLink, req.Metadata)
		linkParams := &stripego.PaymentLinkParams{
			LineItems: []*stripego.PaymentLinkLineItemParams{
				{Price: stripego.String(price.ID), Quantity: stripego.Int64(1)},
			},
			PaymentIntentData: &stripego.PaymentLinkPaymentIntentDataParams{
				Description: stripego.String(req.Description),
				Metadata:    metadata,
			},
			Metadata: metadata,
		}
		if req.ReturnURL != "" {
			linkParams.AfterCompletion = &stripego.PaymentLinkAfterCompletionParams{
				Type:     stripego.String("redirect"),
				Redirect: &stripego.PaymentLinkAfterCompletionRedirectParams{URL: stripego.String(req.ReturnURL)},
			}
		}
		linkParams.SetIdempotencyKey(key + ":link")
		linkParams.Context = ctx
		link, err = g.api.PaymentLinks.New(linkParams)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("Payment link created",
		zap.String("order_id", req.OrderID),
		zap.String("link_id", link.ID),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return &provider.PaymentLink{ID: link.ID, URL: link.URL, Active: link.Active}, nil
}

func (g *Gateway) DeactivatePaymentLink(ctx context.Context, linkRef string) error {
	return g.call(ctx, "deactivate_payment_link", func(ctx context.Context) error {
		params := &stripego.PaymentLinkParams{Active: stripego.Bool(false)}
		params.Context = ctx
		_, err := g.api.PaymentLinks.Update(linkRef, params)
		return err
	})
}

// FindPaidLinkSession looks through the link's checkout sessions for a completed, paid one
func (g *Gateway) FindPaidLinkSession(ctx context.Context, linkRef string) (*provider.LinkSession, error) {
	var found *provider.LinkSession
	err := g.call(ctx, "find_link_session", func(ctx context.Context) error {
		found = nil
		params := &stripego.CheckoutSessionListParams{PaymentLink: stripego.String(linkRef)}
		params.Context = ctx
		params.Limit = stripego.Int64(10)
		params.AddExpand("data.payment_intent")

		iter := g.api.CheckoutSessions.List(params)
		for iter.Next() {
			s := iter.CheckoutSession()
			if string(s.Status) != "complete" || string(s.PaymentStatus) != "paid" {
				continue
			}
			found = toLinkSession(s)
			found.LinkRef = linkRef
			break
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// CreateChargeIntent creates and confirms a payment intent for a card charge
func (g *Gateway) CreateChargeIntent(ctx context.Context, req *provider.ChargeIntentRequest) (*provider.ChargeIntent, error) {
	var pi *stripego.PaymentIntent
	key := writeKey(req.IdempotencyKey)
	err := g.call(ctx, "create_charge", func(ctx context.Context) error {
		params := &stripego.PaymentIntentParams{
			Amount:        stripego.Int64(ToMinorUnits(req.Amount, req.Currency)),
			Currency:      stripego.String(strings.ToLower(req.Currency)),
			PaymentMethod: stripego.String(req.PaymentMethodRef),
			Confirm:       stripego.Bool(true),
			AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled:        stripego.Bool(true),
				AllowRedirects: stripego.String("never"),
			},
			Metadata: orderMetadata(req.OrderID, provider.ChannelCharge, req.Metadata),
		}
		if req.Description != "" {
			params.Description = stripego.String(req.Description)
		}
		if req.CustomerRef != "" {
			params.Customer = stripego.String(req.CustomerRef)
		}
		if req.SaveCard {
			params.SetupFutureUsage = stripego.String("off_session")
		}
		if req.ReceiptEmail != "" {
			params.ReceiptEmail = stripego.String(req.ReceiptEmail)
		}
		params.SetIdempotencyKey(key)
		params.AddExpand("latest_charge")
		params.Context = ctx

		var err error
		pi, err = g.api.PaymentIntents.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("Charge intent created",
		zap.String("order_id", req.OrderID),
		zap.String("intent_id", pi.ID),
		zap.String("status", string(pi.Status)),
	)
	return toChargeIntent(pi), nil
}

func (g *Gateway) RetrieveIntent(ctx context.Context, intentRef string) (*provider.ChargeIntent, error) {
	var pi *stripego.PaymentIntent
	err := g.call(ctx, "retrieve_intent", func(ctx context.Context) error {
		params := &stripego.PaymentIntentParams{}
		params.AddExpand("latest_charge")
		params.Context = ctx
		var err error
		pi, err = g.api.PaymentIntents.Get(intentRef, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toChargeIntent(pi), nil
}

func (g *Gateway) RetrieveCharge(ctx context.Context, chargeRef string) (*provider.Charge, error) {
	var ch *stripego.Charge
	err := g.call(ctx, "retrieve_charge", func(ctx context.Context) error {
		params := &stripego.ChargeParams{}
		params.Context = ctx
		var err error
		ch, err = g.api.Charges.Get(chargeRef, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCharge(ch), nil
}

// refundReasons are the reasons Stripe accepts verbatim; anything else goes to metadata only
var refundReasons = map[string]struct{}{
	"duplicate":             {},
	"fraudulent":            {},
	"requested_by_customer": {},
}

func (g *Gateway) IssueRefund(ctx context.Context, req *provider.RefundRequest) (*provider.Refund, error) {
	var r *stripego.Refund
	key := writeKey(req.IdempotencyKey)
	err := g.call(ctx, "refund", func(ctx context.Context) error {
		params := &stripego.RefundParams{
			Amount: stripego.Int64(ToMinorUnits(req.Amount, req.Currency)),
		}
		if req.ChargeRef != "" {
			params.Charge = stripego.String(req.ChargeRef)
		} else {
			params.PaymentIntent = stripego.String(req.IntentRef)
		}
		if _, ok := refundReasons[req.Reason]; ok {
			params.Reason = stripego.String(req.Reason)
		}
		for k, v := range req.Metadata {
			params.AddMetadata(k, v)
		}
		if req.Reason != "" {
			params.AddMetadata("reason", req.Reason)
		}
		params.SetIdempotencyKey(key)
		params.Context = ctx

		var err error
		r, err = g.api.Refunds.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}

	refund := &provider.Refund{
		ID:     r.ID,
		Amount: FromMinorUnits(r.Amount, string(r.Currency)),
		Status: string(r.Status),
	}
	if r.Charge != nil {
		refund.ChargeRef = r.Charge.ID
	}
	return refund, nil
}

func (g *Gateway) AttachPaymentMethod(ctx context.Context, customerRef, paymentMethodRef string) (*provider.SavedPaymentMethod, error) {
	var pm *stripego.PaymentMethod
	err := g.call(ctx, "attach_payment_method", func(ctx context.Context) error {
		params := &stripego.PaymentMethodAttachParams{Customer: stripego.String(customerRef)}
		params.Context = ctx
		var err error
		pm, err = g.api.PaymentMethods.Attach(paymentMethodRef, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toSavedPaymentMethod(pm), nil
}

func (g *Gateway) ListPaymentMethods(ctx context.Context, customerRef string) ([]*provider.SavedPaymentMethod, error) {
	var methods []*provider.SavedPaymentMethod
	err := g.call(ctx, "list_payment_methods", func(ctx context.Context) error {
		methods = nil
		params := &stripego.PaymentMethodListParams{
			Customer: stripego.String(customerRef),
			Type:     stripego.String("card"),
		}
		params.Context = ctx

		iter := g.api.PaymentMethods.List(params)
		for iter.Next() {
			methods = append(methods, toSavedPaymentMethod(iter.PaymentMethod()))
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (g *Gateway) DetachPaymentMethod(ctx context.Context, paymentMethodRef string) (*provider.SavedPaymentMethod, error) {
	var pm *stripego.PaymentMethod
	err := g.call(ctx, "detach_payment_method", func(ctx context.Context) error {
		params := &stripego.PaymentMethodDetachParams{}
		params.Context = ctx
		var err error
		pm, err = g.api.PaymentMethods.Detach(paymentMethodRef, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toSavedPaymentMethod(pm), nil
}

// CreateOrGetCustomer returns the first Stripe customer with the email, creating one if none exists
func (g *Gateway) CreateOrGetCustomer(ctx context.Context, req *provider.CustomerRequest) (*provider.Customer, error) {
	var existing *stripego.Customer
	err := g.call(ctx, "find_customer", func(ctx context.Context) error {
		existing = nil
		params := &stripego.CustomerListParams{Email: stripego.String(req.Email)}
		params.Context = ctx
		params.Limit = stripego.Int64(1)

		iter := g.api.Customers.List(params)
		if iter.Next() {
			existing = iter.Customer()
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &provider.Customer{ID: existing.ID, Email: existing.Email, Name: existing.Name}, nil
	}

	var created *stripego.Customer
	err = g.call(ctx, "create_customer", func(ctx context.Context) error {
		params := &stripego.CustomerParams{Email: stripego.String(req.Email)}
		if req.Name != "" {
			params.Name = stripego.String(req.Name)
		}
		if req.Phone != "" {
			params.Phone = stripego.String(req.Phone)
		}
		for k, v := range req.Metadata {
			params.AddMetadata(k, v)
		}
		params.SetIdempotencyKey("customer:" + strings.ToLower(req.Email))
		params.Context = ctx

		var err error
		created, err = g.api.Customers.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("Stripe customer created", zap.String("customer_id", created.ID))
	return &provider.Customer{ID: created.ID, Email: created.Email, Name: created.Name, Created: true}, nil
}

// call runs fn under the retry policy, bounding each attempt by the call timeout
func (g *Gateway) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return g.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		gwErr := toGatewayError(operation, err)
		g.logger.Warn("Stripe call failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Bool("retryable", gwErr.Retryable),
			zap.Error(err),
		)
		return gwErr
	})
}

func isRetryable(err error) bool {
	var gwErr *domainerrors.GatewayError
	return errors.As(err, &gwErr) && gwErr.Retryable
}

func toGatewayError(operation string, err error) *domainerrors.GatewayError {
	var gwErr *domainerrors.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		out := domainerrors.NewGatewayError(operation, stripeErr.Msg, err)
		out.GatewayCode = string(stripeErr.Code)
		out.HTTPStatus = stripeErr.HTTPStatusCode
		out.Retryable = stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			string(stripeErr.Type) == "api_error"
		return out
	}

	out := domainerrors.NewGatewayError(operation, err.Error(), err)
	// Stripe may have applied the write before a timeout; retries are only
	// safe because every write carries one idempotency key across attempts.
	out.Retryable = !errors.Is(err, context.Canceled)
	return out
}

// writeKey returns the caller's idempotency key, or a fresh one shared by
// every attempt of a single write
func writeKey(key string) string {
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func orderMetadata(orderID, channel string, extra map[string]string) map[string]string {
	metadata := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		metadata[k] = v
	}
	metadata[provider.MetadataOrderID] = orderID
	metadata[provider.MetadataChannel] = channel
	return metadata
}

func toChargeIntent(pi *stripego.PaymentIntent) *provider.ChargeIntent {
	currency := string(pi.Currency)
	out := &provider.ChargeIntent{
		ID:           pi.ID,
		Status:       intentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
		Amount:       FromMinorUnits(pi.Amount, currency),
		Currency:     currency,
	}
	if pi.Customer != nil {
		out.CustomerRef = pi.Customer.ID
	}
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	if pi.LatestCharge != nil {
		out.ChargeRef = pi.LatestCharge.ID
		out.Card = chargeCard(pi.LatestCharge)
	}
	return out
}

func intentStatus(status stripego.PaymentIntentStatus) provider.IntentStatus {
	switch string(status) {
	case "succeeded":
		return provider.IntentStatusSucceeded
	case "requires_action", "requires_confirmation":
		return provider.IntentStatusRequiresAction
	case "requires_payment_method":
		return provider.IntentStatusFailed
	case "canceled":
		return provider.IntentStatusCanceled
	default:
		return provider.IntentStatusProcessing
	}
}

func toCharge(ch *stripego.Charge) *provider.Charge {
	currency := string(ch.Currency)
	out := &provider.Charge{
		ID:             ch.ID,
		Amount:         FromMinorUnits(ch.Amount, currency),
		AmountRefunded: FromMinorUnits(ch.AmountRefunded, currency),
		Currency:       currency,
		Paid:           ch.Paid,
		Refunded:       ch.Refunded,
		FailureMessage: ch.FailureMessage,
		Card:           chargeCard(ch),
	}
	if ch.PaymentIntent != nil {
		out.IntentRef = ch.PaymentIntent.ID
	}
	return out
}

func chargeCard(ch *stripego.Charge) *provider.CardSummary {
	if ch == nil || ch.PaymentMethodDetails == nil || ch.PaymentMethodDetails.Card == nil {
		return nil
	}
	card := ch.PaymentMethodDetails.Card
	return &provider.CardSummary{
		Brand:    string(card.Brand),
		Last4:    card.Last4,
		ExpMonth: card.ExpMonth,
		ExpYear:  card.ExpYear,
	}
}

func toLinkSession(s *stripego.CheckoutSession) *provider.LinkSession {
	currency := string(s.Currency)
	out := &provider.LinkSession{
		ID:       s.ID,
		Amount:   FromMinorUnits(s.AmountTotal, currency),
		Currency: currency,
		Paid:     string(s.PaymentStatus) == "paid",
	}
	if s.PaymentLink != nil {
		out.LinkRef = s.PaymentLink.ID
	}
	if s.PaymentIntent != nil {
		out.IntentRef = s.PaymentIntent.ID
		if s.PaymentIntent.LatestCharge != nil {
			out.ChargeRef = s.PaymentIntent.LatestCharge.ID
			out.Card = chargeCard(s.PaymentIntent.LatestCharge)
		}
	}
	return out
}

func toSavedPaymentMethod(pm *stripego.PaymentMethod) *provider.SavedPaymentMethod {
	out := &provider.SavedPaymentMethod{ID: pm.ID, Type: string(pm.Type)}
	if pm.Customer != nil {
		out.CustomerRef = pm.Customer.ID
	}
	if pm.Card != nil {
		out.Card = &provider.CardSummary{
			Brand:    string(pm.Card.Brand),
			Last4:    pm.Card.Last4,
			ExpMonth: pm.Card.ExpMonth,
			ExpYear:  pm.Card.ExpYear,
		}
	}
	return out
}
