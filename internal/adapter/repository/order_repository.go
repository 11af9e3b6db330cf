package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

type orderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderRepository creates a gorm backed order store
func NewOrderRepository(db *gorm.DB, logger *zap.Logger) repository.OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderRepository) FindOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to find order", zap.String("order_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	err = r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("id ASC").
		Find(&order.LineItems).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load order line items: %w", err)
	}

	return &order, nil
}

func (r *orderRepository) UpdateOrderBalance(ctx context.Context, id uuid.UUID, balance entity.OrderBalance) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"order_total":    balance.OrderTotal,
			"paid_amount":    balance.PaidAmount,
			"balance_due":    balance.BalanceDue,
			"payment_status": balance.PaymentStatus,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update order balance",
			zap.String("order_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update order balance: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("order not found: %s", id)
	}

	return nil
}
