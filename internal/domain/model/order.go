package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPaymentStatus is the derived payment state of an order
type OrderPaymentStatus string

const (
	OrderPaymentStatusUnpaid        OrderPaymentStatus = "Unpaid"
	OrderPaymentStatusPartiallyPaid OrderPaymentStatus = "Partially Paid"
	OrderPaymentStatusPaid          OrderPaymentStatus = "Paid"
	OrderPaymentStatusRefunded      OrderPaymentStatus = "Refunded"
)

// Order is the sales order a payment is collected against. Only the balance
// columns are written by this service.
type Order struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber   string             `gorm:"size:50;uniqueIndex" json:"order_number"`
	ContactName   string             `gorm:"size:255" json:"contact_name"`
	ContactEmail  string             `gorm:"size:255" json:"contact_email"`
	ContactPhone  string             `gorm:"size:50" json:"contact_phone"`
	Currency      string             `gorm:"size:3;not null;default:'usd'" json:"currency"`
	OrderTotal    decimal.Decimal    `gorm:"type:decimal(12,2);not null;default:0" json:"order_total"`
	PaidAmount    decimal.Decimal    `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	BalanceDue    decimal.Decimal    `gorm:"type:decimal(12,2);not null;default:0" json:"balance_due"`
	PaymentStatus OrderPaymentStatus `gorm:"size:20;not null;default:'Unpaid'" json:"payment_status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`

	// LineItems is filled by an explicit query in the order repository
	LineItems []OrderLineItem `gorm:"-" json:"line_items"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderLineItem is a rented product or service on an order
type OrderLineItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Description string          `gorm:"size:255" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

// TableName specifies the table name for GORM
func (OrderLineItem) TableName() string {
	return "order_line_items"
}

// Total is quantity times unit price.
func (li OrderLineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Label is the order description shown on gateway checkout pages.
func (o *Order) Label() string {
	if o.OrderNumber != "" {
		return "Order #" + o.OrderNumber
	}
	return "Order " + o.ID.String()
}
