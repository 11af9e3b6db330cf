package http

import (
	"github.com/shopspring/decimal"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
)

type CreatePaymentLinkRequest struct {
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
}

type ChargeOrderRequest struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required,max=255"`
	SaveCard        bool   `json:"saveCard"`
	CustomerID      string `json:"customerId" validate:"omitempty,startswith=cus_"`
	// RequestID falls back to the Idempotency-Key header
	RequestID string `json:"requestId" validate:"max=255"`
}

type RefundPaymentRequest struct {
	// Amount omitted refunds everything still refundable
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" validate:"max=500"`
}

type CancelPaymentLinkRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CreateCustomerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=255"`
	Phone string `json:"phone" validate:"max=50"`
}

type AttachPaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required,max=255"`
}

type CustomerResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Created bool   `json:"created"`
}

type CardResponse struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

type PaymentMethodResponse struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customerId,omitempty"`
	Type       string        `json:"type"`
	Card       *CardResponse `json:"card,omitempty"`
}

func newCustomerResponse(c *provider.Customer) *CustomerResponse {
	return &CustomerResponse{ID: c.ID, Email: c.Email, Name: c.Name, Created: c.Created}
}

func newPaymentMethodResponse(pm *provider.SavedPaymentMethod) *PaymentMethodResponse {
	resp := &PaymentMethodResponse{ID: pm.ID, CustomerID: pm.CustomerRef, Type: pm.Type}
	if pm.Card != nil {
		resp.Card = &CardResponse{
			Brand:    pm.Card.Brand,
			Last4:    pm.Card.Last4,
			ExpMonth: pm.Card.ExpMonth,
			ExpYear:  pm.Card.ExpYear,
		}
	}
	return resp
}
