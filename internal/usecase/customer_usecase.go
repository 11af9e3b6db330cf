package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

// CustomerUsecase manages gateway customers and their saved cards
type CustomerUsecase struct {
	gateway  provider.Gateway
	mappings domainRepo.CustomerMappingRepository
	logger   *zap.Logger
}

// NewCustomerUsecase creates a new CustomerUsecase
func NewCustomerUsecase(gateway provider.Gateway, mappings domainRepo.CustomerMappingRepository, logger *zap.Logger) *CustomerUsecase {
	return &CustomerUsecase{
		gateway:  gateway,
		mappings: mappings,
		logger:   logger,
	}
}

// CreateOrGetCustomer returns the gateway customer mapped to the email,
// asking the gateway only when no mapping is stored yet.
func (u *CustomerUsecase) CreateOrGetCustomer(ctx context.Context, req *provider.CustomerRequest) (*provider.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, domainErrors.NewValidationError("email", "email is required")
	}

	mapping, err := u.mappings.FindByEmail(ctx, u.gateway.Name(), email)
	if err != nil {
		return nil, err
	}
	if mapping != nil {
		return &provider.Customer{ID: mapping.ProviderCustomerID, Email: email, Name: req.Name}, nil
	}

	lookup := *req
	lookup.Email = email
	customer, err := u.gateway.CreateOrGetCustomer(ctx, &lookup)
	if err != nil {
		return nil, err
	}

	if err := u.mappings.Create(ctx, &model.CustomerMapping{
		Provider:           u.gateway.Name(),
		CustomerEmail:      email,
		ProviderCustomerID: customer.ID,
	}); err != nil {
		// The gateway lookup by email still finds this customer next time.
		u.logger.Warn("Failed to store customer mapping",
			zap.String("customer_id", customer.ID),
			zap.Error(err))
	}
	return customer, nil
}

func (u *CustomerUsecase) AttachPaymentMethod(ctx context.Context, customerRef, paymentMethodRef string) (*provider.SavedPaymentMethod, error) {
	if customerRef == "" {
		return nil, domainErrors.NewValidationError("customer_id", "customer is required")
	}
	if paymentMethodRef == "" {
		return nil, domainErrors.NewValidationError("payment_method_id", "payment method is required")
	}
	return u.gateway.AttachPaymentMethod(ctx, customerRef, paymentMethodRef)
}

func (u *CustomerUsecase) ListPaymentMethods(ctx context.Context, customerRef string) ([]*provider.SavedPaymentMethod, error) {
	if customerRef == "" {
		return nil, domainErrors.NewValidationError("customer_id", "customer is required")
	}
	methods, err := u.gateway.ListPaymentMethods(ctx, customerRef)
	if err != nil {
		return nil, err
	}
	if methods == nil {
		methods = []*provider.SavedPaymentMethod{}
	}
	return methods, nil
}

func (u *CustomerUsecase) DetachPaymentMethod(ctx context.Context, paymentMethodRef string) (*provider.SavedPaymentMethod, error) {
	if paymentMethodRef == "" {
		return nil, domainErrors.NewValidationError("payment_method_id", "payment method is required")
	}
	return u.gateway.DetachPaymentMethod(ctx, paymentMethodRef)
}
