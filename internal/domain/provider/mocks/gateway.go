// Package mocks holds testify mocks for the gateway port.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
)

// Gateway is a mock implementation of provider.Gateway
type Gateway struct {
	mock.Mock
}

func (m *Gateway) Name() string {
	return "stripe"
}

func (m *Gateway) CreatePaymentLink(ctx context.Context, req *provider.PaymentLinkRequest) (*provider.PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PaymentLink), args.Error(1)
}

func (m *Gateway) DeactivatePaymentLink(ctx context.Context, linkRef string) error {
	args := m.Called(ctx, linkRef)
	return args.Error(0)
}

func (m *Gateway) FindPaidLinkSession(ctx context.Context, linkRef string) (*provider.LinkSession, error) {
	args := m.Called(ctx, linkRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.LinkSession), args.Error(1)
}

func (m *Gateway) CreateChargeIntent(ctx context.Context, req *provider.ChargeIntentRequest) (*provider.ChargeIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ChargeIntent), args.Error(1)
}

func (m *Gateway) RetrieveIntent(ctx context.Context, intentRef string) (*provider.ChargeIntent, error) {
	args := m.Called(ctx, intentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ChargeIntent), args.Error(1)
}

func (m *Gateway) RetrieveCharge(ctx context.Context, chargeRef string) (*provider.Charge, error) {
	args := m.Called(ctx, chargeRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Charge), args.Error(1)
}

func (m *Gateway) IssueRefund(ctx context.Context, req *provider.RefundRequest) (*provider.Refund, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Refund), args.Error(1)
}

func (m *Gateway) AttachPaymentMethod(ctx context.Context, customerRef, paymentMethodRef string) (*provider.SavedPaymentMethod, error) {
	args := m.Called(ctx, customerRef, paymentMethodRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SavedPaymentMethod), args.Error(1)
}

func (m *Gateway) ListPaymentMethods(ctx context.Context, customerRef string) ([]*provider.SavedPaymentMethod, error) {
	args := m.Called(ctx, customerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*provider.SavedPaymentMethod), args.Error(1)
}

func (m *Gateway) DetachPaymentMethod(ctx context.Context, paymentMethodRef string) (*provider.SavedPaymentMethod, error) {
	args := m.Called(ctx, paymentMethodRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SavedPaymentMethod), args.Error(1)
}

func (m *Gateway) CreateOrGetCustomer(ctx context.Context, req *provider.CustomerRequest) (*provider.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Customer), args.Error(1)
}

func (m *Gateway) ParseEvent(payload []byte, signature string) (*provider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}

func (m *Gateway) DecodeEvent(payload []byte) (*provider.Event, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}
