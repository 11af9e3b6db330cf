package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway is the external payment provider. All amounts are in major currency
// units; implementations convert to the provider's minor units at the boundary.
// Remote failures are returned as *errors.GatewayError.
type Gateway interface {
	// Name identifies the provider, e.g. "stripe"
	Name() string

	CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLink, error)
	DeactivatePaymentLink(ctx context.Context, linkRef string) error
	// FindPaidLinkSession returns the completed and paid checkout for linkRef, or nil if none exists yet
	FindPaidLinkSession(ctx context.Context, linkRef string) (*LinkSession, error)

	CreateChargeIntent(ctx context.Context, req *ChargeIntentRequest) (*ChargeIntent, error)
	RetrieveIntent(ctx context.Context, intentRef string) (*ChargeIntent, error)
	RetrieveCharge(ctx context.Context, chargeRef string) (*Charge, error)
	IssueRefund(ctx context.Context, req *RefundRequest) (*Refund, error)

	AttachPaymentMethod(ctx context.Context, customerRef, paymentMethodRef string) (*SavedPaymentMethod, error)
	ListPaymentMethods(ctx context.Context, customerRef string) ([]*SavedPaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodRef string) (*SavedPaymentMethod, error)
	CreateOrGetCustomer(ctx context.Context, req *CustomerRequest) (*Customer, error)

	// ParseEvent verifies a webhook signature and normalizes the event
	ParseEvent(payload []byte, signature string) (*Event, error)
	// DecodeEvent normalizes an already verified event, used for replays
	DecodeEvent(payload []byte) (*Event, error)
}

// ProviderType identifies a gateway implementation
type ProviderType string

const (
	ProviderTypeStripe ProviderType = "stripe"
)

// Metadata keys stamped on every gateway object created for an order
const (
	MetadataOrderID = "order_id"
	MetadataChannel = "channel"
)

// Channels stamped under MetadataChannel
const (
	ChannelCharge      = "charge"
	ChannelPaymentLink = "payment_link"
)

type PaymentLinkRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	Description string
	ReturnURL   string
	// IdempotencyKey prefixes the keys of the price and link writes
	IdempotencyKey string
	Metadata       map[string]string
}

type PaymentLink struct {
	ID     string
	URL    string
	Active bool
}

// LinkSession is a completed checkout of a payment link
type LinkSession struct {
	ID        string
	LinkRef   string
	IntentRef string
	ChargeRef string
	Amount    decimal.Decimal
	Currency  string
	Paid      bool
	Card      *CardSummary
}

type ChargeIntentRequest struct {
	OrderID          string
	Amount           decimal.Decimal
	Currency         string
	PaymentMethodRef string
	CustomerRef      string
	// SaveCard keeps the payment method on the customer for later off-session use
	SaveCard       bool
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
	Metadata       map[string]string
}

// IntentStatus is the normalized state of a charge intent
type IntentStatus string

const (
	IntentStatusSucceeded      IntentStatus = "succeeded"
	IntentStatusProcessing     IntentStatus = "processing"
	IntentStatusRequiresAction IntentStatus = "requires_action"
	IntentStatusFailed         IntentStatus = "failed"
	IntentStatusCanceled       IntentStatus = "canceled"
)

type ChargeIntent struct {
	ID             string
	Status         IntentStatus
	ClientSecret   string
	Amount         decimal.Decimal
	Currency       string
	ChargeRef      string
	CustomerRef    string
	FailureMessage string
	Card           *CardSummary
}

type Charge struct {
	ID             string
	IntentRef      string
	Amount         decimal.Decimal
	AmountRefunded decimal.Decimal
	Currency       string
	Paid           bool
	Refunded       bool
	FailureMessage string
	Card           *CardSummary
}

type RefundRequest struct {
	ChargeRef      string
	IntentRef      string
	Amount         decimal.Decimal
	Currency       string
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}

type Refund struct {
	ID        string
	ChargeRef string
	Amount    decimal.Decimal
	Status    string
}

type CardSummary struct {
	Brand    string
	Last4    string
	ExpMonth int64
	ExpYear  int64
}

type SavedPaymentMethod struct {
	ID          string
	CustomerRef string
	Type        string
	Card        *CardSummary
}

type CustomerRequest struct {
	Email    string
	Name     string
	Phone    string
	Metadata map[string]string
}

type Customer struct {
	ID    string
	Email string
	Name  string
	// Created is false when an existing customer was returned
	Created bool
}

// EventType is the normalized kind of a gateway event
type EventType string

const (
	EventChargeSucceeded EventType = "charge_succeeded"
	EventChargeFailed    EventType = "charge_failed"
	EventChargeRefunded  EventType = "charge_refunded"
	EventLinkCompleted   EventType = "link_completed"
	EventLinkFailed      EventType = "link_failed"
	EventIgnored         EventType = "ignored"
)

// Event is a gateway webhook event reduced to the fields reconciliation needs
type Event struct {
	ID          string
	Type        EventType
	GatewayType string
	IntentRef   string
	ChargeRef   string
	LinkRef     string
	OrderID     string
	// Channel is ChannelCharge or ChannelPaymentLink when the gateway object carried it
	Channel string
	Amount  decimal.Decimal
	// AmountRefunded is the gateway's cumulative refunded total for the charge
	AmountRefunded decimal.Decimal
	Currency       string
	FailureMessage string
	Card           *CardSummary
	Payload        []byte
	CreatedAt      time.Time
}
