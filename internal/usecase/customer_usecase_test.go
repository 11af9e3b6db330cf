package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
)

func TestCustomerUsecase(t *testing.T) {
	t.Run("mapping is reused", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("CreateOrGetCustomer", mock.Anything, mock.Anything).
			Return(&provider.Customer{ID: "cus_1", Email: "ops@example.com", Created: true}, nil).Once()

		first, err := f.customers.CreateOrGetCustomer(f.ctx, &provider.CustomerRequest{Email: "Ops@Example.com"})
		require.NoError(t, err)
		second, err := f.customers.CreateOrGetCustomer(f.ctx, &provider.CustomerRequest{Email: "ops@example.com"})
		require.NoError(t, err)

		assert.Equal(t, "cus_1", first.ID)
		assert.Equal(t, "cus_1", second.ID)
		f.gateway.AssertNumberOfCalls(t, "CreateOrGetCustomer", 1)
	})

	t.Run("email is required", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.customers.CreateOrGetCustomer(f.ctx, &provider.CustomerRequest{Email: "  "})

		var validation *domainErrors.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("payment methods", func(t *testing.T) {
		f := newFixture(t)
		card := &provider.SavedPaymentMethod{ID: "pm_1", CustomerRef: "cus_1", Type: "card",
			Card: &provider.CardSummary{Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030}}
		f.gateway.On("AttachPaymentMethod", mock.Anything, "cus_1", "pm_1").Return(card, nil).Once()
		f.gateway.On("ListPaymentMethods", mock.Anything, "cus_1").Return([]*provider.SavedPaymentMethod{card}, nil).Once()
		f.gateway.On("ListPaymentMethods", mock.Anything, "cus_2").Return(nil, nil).Once()
		f.gateway.On("DetachPaymentMethod", mock.Anything, "pm_1").Return(card, nil).Once()

		attached, err := f.customers.AttachPaymentMethod(f.ctx, "cus_1", "pm_1")
		require.NoError(t, err)
		assert.Equal(t, "4242", attached.Card.Last4)

		methods, err := f.customers.ListPaymentMethods(f.ctx, "cus_1")
		require.NoError(t, err)
		assert.Len(t, methods, 1)

		empty, err := f.customers.ListPaymentMethods(f.ctx, "cus_2")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		_, err = f.customers.DetachPaymentMethod(f.ctx, "pm_1")
		require.NoError(t, err)
		f.gateway.AssertExpectations(t)
	})

	t.Run("missing references", func(t *testing.T) {
		f := newFixture(t)
		var validation *domainErrors.ValidationError

		_, err := f.customers.AttachPaymentMethod(f.ctx, "", "pm_1")
		assert.ErrorAs(t, err, &validation)
		_, err = f.customers.AttachPaymentMethod(f.ctx, "cus_1", "")
		assert.ErrorAs(t, err, &validation)
		_, err = f.customers.ListPaymentMethods(f.ctx, "")
		assert.ErrorAs(t, err, &validation)
		_, err = f.customers.DetachPaymentMethod(f.ctx, "")
		assert.ErrorAs(t, err, &validation)
	})
}
