package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	stripeProvider "github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/provider/stripe"
)

// Factory creates payment gateways based on the provider type
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GetGateway returns the gateway for providerType
func (f *Factory) GetGateway(providerType provider.ProviderType) (provider.Gateway, error) {
	switch providerType {
	case provider.ProviderTypeStripe:
		return f.createStripeGateway()
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// GetGatewayFromString defaults to Stripe when providerStr is empty
func (f *Factory) GetGatewayFromString(providerStr string) (provider.Gateway, error) {
	if providerStr == "" {
		providerStr = string(provider.ProviderTypeStripe)
	}
	return f.GetGateway(provider.ProviderType(providerStr))
}

func (f *Factory) createStripeGateway() (provider.Gateway, error) {
	cfg := f.config.Stripe
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}

	return stripeProvider.NewGateway(stripeProvider.Config{
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		Timeout:       cfg.Timeout,
		APIURL:        cfg.APIURL,
		Retry:         f.config.Retry.Gateway.Policy(),
	}, f.logger), nil
}
