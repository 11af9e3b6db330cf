package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

type customerMappingRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCustomerMappingRepository creates a new customer mapping repository
func NewCustomerMappingRepository(db *gorm.DB, logger *zap.Logger) repository.CustomerMappingRepository {
	return &customerMappingRepository{
		db:     db,
		logger: logger,
	}
}

func (r *customerMappingRepository) FindByEmail(ctx context.Context, provider, email string) (*model.CustomerMapping, error) {
	var mapping model.CustomerMapping

	err := r.db.WithContext(ctx).
		Where("provider = ? AND customer_email = ?", provider, strings.ToLower(email)).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer mapping: %w", err)
	}

	return &mapping, nil
}

func (r *customerMappingRepository) Create(ctx context.Context, mapping *model.CustomerMapping) error {
	mapping.CustomerEmail = strings.ToLower(mapping.CustomerEmail)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mapping).Error
	if err != nil {
		r.logger.Error("Failed to create customer mapping",
			zap.String("provider_customer_id", mapping.ProviderCustomerID),
			zap.Error(err))
		return fmt.Errorf("failed to create customer mapping: %w", err)
	}

	return nil
}
