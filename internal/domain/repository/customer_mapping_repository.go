package repository

import (
	"context"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// CustomerMappingRepository maps contact emails to gateway customers
type CustomerMappingRepository interface {
	FindByEmail(ctx context.Context, provider, email string) (*model.CustomerMapping, error)
	Create(ctx context.Context, mapping *model.CustomerMapping) error
}
