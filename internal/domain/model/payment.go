package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the ledger state of a single payment attempt
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

// allowedTransitions is the payment state machine. A partially refunded
// payment may move to partially refunded again when more is refunded.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusSucceeded:         {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
}

// CanTransitionTo reports whether the state machine permits s -> next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s PaymentStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// CountsTowardBalance reports whether payments in s contribute to paid amount.
func (s PaymentStatus) CountsTowardBalance() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusPartiallyRefunded || s == PaymentStatusRefunded
}

// Refundable reports whether money can still be returned from s.
func (s PaymentStatus) Refundable() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusPartiallyRefunded
}

// SourcesOf lists the states from which next is reachable.
func SourcesOf(next PaymentStatus) []PaymentStatus {
	var from []PaymentStatus
	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusPartiallyRefunded} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// Scan implements sql.Scanner
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		*s = PaymentStatusPending
	}
	return nil
}

// Value implements driver.Valuer
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodSavedCard   PaymentMethod = "saved_card"
	PaymentMethodPaymentLink PaymentMethod = "payment_link"
)

// Payment is one attempted charge against an order. Rows are never deleted.
type Payment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_payments_order_created,priority:1" json:"order_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	RefundedAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"refunded_amount"`
	Currency         string          `gorm:"size:3;not null" json:"currency"`
	Method           PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Status           PaymentStatus   `gorm:"size:30;not null;index" json:"status"`
	GatewayChargeRef *string         `gorm:"size:100;uniqueIndex" json:"gateway_charge_ref,omitempty"`
	GatewayIntentRef *string         `gorm:"size:100;uniqueIndex" json:"gateway_intent_ref,omitempty"`
	GatewayLinkRef   *string         `gorm:"size:100;index" json:"gateway_link_ref,omitempty"`
	LinkURL          *string         `gorm:"size:500" json:"link_url,omitempty"`
	CustomerRef      *string         `gorm:"size:100" json:"customer_ref,omitempty"`
	CardBrand        *string         `gorm:"size:30" json:"card_brand,omitempty"`
	CardLast4        *string         `gorm:"size:4" json:"card_last4,omitempty"`
	ErrorMessage     *string         `json:"error_message,omitempty"`
	ReceiptSent      bool            `gorm:"not null;default:false" json:"receipt_sent"`
	ReceiptSentAt    *time.Time      `json:"receipt_sent_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;index:idx_payments_order_created,priority:2" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// RefundableAmount is what can still be refunded.
func (p *Payment) RefundableAmount() decimal.Decimal {
	available := p.Amount.Sub(p.RefundedAmount)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// PaymentPatch is a merge patch; nil fields are left untouched.
type PaymentPatch struct {
	Status           *PaymentStatus
	RefundedAmount   *decimal.Decimal
	GatewayChargeRef *string
	GatewayIntentRef *string
	CustomerRef      *string
	CardBrand        *string
	CardLast4        *string
	ErrorMessage     *string
}

// Columns returns the column map for a gorm Updates call.
func (p PaymentPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.RefundedAmount != nil {
		cols["refunded_amount"] = *p.RefundedAmount
	}
	if p.GatewayChargeRef != nil {
		cols["gateway_charge_ref"] = *p.GatewayChargeRef
	}
	if p.GatewayIntentRef != nil {
		cols["gateway_intent_ref"] = *p.GatewayIntentRef
	}
	if p.CustomerRef != nil {
		cols["customer_ref"] = *p.CustomerRef
	}
	if p.CardBrand != nil {
		cols["card_brand"] = *p.CardBrand
	}
	if p.CardLast4 != nil {
		cols["card_last4"] = *p.CardLast4
	}
	if p.ErrorMessage != nil {
		cols["error_message"] = *p.ErrorMessage
	}
	return cols
}

// IsEmpty reports whether the patch changes nothing.
func (p PaymentPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// ApplyTo merges the patch into payment.
func (p PaymentPatch) ApplyTo(payment *Payment) {
	if p.Status != nil {
		payment.Status = *p.Status
	}
	if p.RefundedAmount != nil {
		payment.RefundedAmount = *p.RefundedAmount
	}
	if p.GatewayChargeRef != nil {
		payment.GatewayChargeRef = cloneString(p.GatewayChargeRef)
	}
	if p.GatewayIntentRef != nil {
		payment.GatewayIntentRef = cloneString(p.GatewayIntentRef)
	}
	if p.CustomerRef != nil {
		payment.CustomerRef = cloneString(p.CustomerRef)
	}
	if p.CardBrand != nil {
		payment.CardBrand = cloneString(p.CardBrand)
	}
	if p.CardLast4 != nil {
		payment.CardLast4 = cloneString(p.CardLast4)
	}
	if p.ErrorMessage != nil {
		payment.ErrorMessage = cloneString(p.ErrorMessage)
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StatusPtr returns a pointer to s.
func StatusPtr(s PaymentStatus) *PaymentStatus {
	return &s
}

// Deref returns the value behind s or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Clone returns a deep copy of p.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.GatewayChargeRef = cloneString(p.GatewayChargeRef)
	c.GatewayIntentRef = cloneString(p.GatewayIntentRef)
	c.GatewayLinkRef = cloneString(p.GatewayLinkRef)
	c.LinkURL = cloneString(p.LinkURL)
	c.CustomerRef = cloneString(p.CustomerRef)
	c.CardBrand = cloneString(p.CardBrand)
	c.CardLast4 = cloneString(p.CardLast4)
	c.ErrorMessage = cloneString(p.ErrorMessage)
	if p.ReceiptSentAt != nil {
		t := *p.ReceiptSentAt
		c.ReceiptSentAt = &t
	}
	return &c
}
