package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// Payment is the API view of a ledger entry
type Payment struct {
	ID               uuid.UUID           `json:"id"`
	OrderID          uuid.UUID           `json:"order_id"`
	Amount           decimal.Decimal     `json:"amount"`
	RefundedAmount   decimal.Decimal     `json:"refunded_amount"`
	Currency         string              `json:"currency"`
	Method           model.PaymentMethod `json:"method"`
	Status           model.PaymentStatus `json:"status"`
	GatewayChargeRef string              `json:"gateway_charge_ref,omitempty"`
	GatewayIntentRef string              `json:"gateway_intent_ref,omitempty"`
	GatewayLinkRef   string              `json:"gateway_link_ref,omitempty"`
	LinkURL          string              `json:"link_url,omitempty"`
	CardBrand        string              `json:"card_brand,omitempty"`
	CardLast4        string              `json:"card_last4,omitempty"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	ReceiptSent      bool                `json:"receipt_sent"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewPayment converts a ledger model
func NewPayment(p *model.Payment) *Payment {
	return &Payment{
		ID:               p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		RefundedAmount:   p.RefundedAmount,
		Currency:         p.Currency,
		Method:           p.Method,
		Status:           p.Status,
		GatewayChargeRef: model.Deref(p.GatewayChargeRef),
		GatewayIntentRef: model.Deref(p.GatewayIntentRef),
		GatewayLinkRef:   model.Deref(p.GatewayLinkRef),
		LinkURL:          model.Deref(p.LinkURL),
		CardBrand:        model.Deref(p.CardBrand),
		CardLast4:        model.Deref(p.CardLast4),
		ErrorMessage:     model.Deref(p.ErrorMessage),
		ReceiptSent:      p.ReceiptSent,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// PaymentLinkResult is returned by CreatePaymentLink
type PaymentLinkResult struct {
	PaymentID uuid.UUID `json:"payment_id"`
	LinkID    string    `json:"link_id"`
	URL       string    `json:"url"`
	Reused    bool      `json:"reused"`
}

// ChargeResult is returned by ChargeOrder
type ChargeResult struct {
	PaymentID    uuid.UUID           `json:"payment_id"`
	IntentRef    string              `json:"intent_ref"`
	Status       model.PaymentStatus `json:"status"`
	ClientSecret string              `json:"client_secret,omitempty"`
	// RequiresAction is true when the customer must complete authentication
	RequiresAction bool `json:"requires_action"`
}

// RefundResult is returned by RefundPayment
type RefundResult struct {
	RefundRef     string                   `json:"refund_ref"`
	Amount        decimal.Decimal          `json:"amount"`
	Status        model.PaymentStatus      `json:"status"`
	PaymentStatus model.OrderPaymentStatus `json:"payment_status"`
}

// SyncResult is returned by SyncPaymentLinkStatus
type SyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ActionResult is returned by operations that only report success
type ActionResult struct {
	Success bool `json:"success"`
}
