package entity

import (
	"github.com/shopspring/decimal"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// OrderBalance is the derived financial state of an order
type OrderBalance struct {
	OrderTotal    decimal.Decimal          `json:"order_total"`
	PaidAmount    decimal.Decimal          `json:"paid_amount"`
	BalanceDue    decimal.Decimal          `json:"balance_due"`
	TotalRefunded decimal.Decimal          `json:"total_refunded"`
	PaymentStatus model.OrderPaymentStatus `json:"payment_status"`
}
