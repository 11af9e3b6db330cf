package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a gorm backed payment ledger
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("order_id", payment.OrderID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *paymentRepository) FindByGatewayChargeRef(ctx context.Context, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, nil
	}
	return r.findOne(ctx, "gateway_charge_ref = ?", ref)
}

func (r *paymentRepository) FindByGatewayIntentRef(ctx context.Context, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, nil
	}
	return r.findOne(ctx, "gateway_intent_ref = ?", ref)
}

// FindByGatewayLinkRef returns the newest payment for the link
func (r *paymentRepository) FindByGatewayLinkRef(ctx context.Context, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, nil
	}

	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_link_ref = ?", ref).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment by link ref: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).Where(query, arg).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to find payment", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) FindAllForOrder(ctx context.Context, orderID uuid.UUID, statuses ...model.PaymentStatus) ([]*model.Payment, error) {
	var payments []*model.Payment

	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(statuses))
	}

	if err := query.Order("created_at ASC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments for order: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) FindRecentForOrder(ctx context.Context, orderID uuid.UUID, since time.Time, statuses ...model.PaymentStatus) ([]*model.Payment, error) {
	var payments []*model.Payment

	query := r.db.WithContext(ctx).Where("order_id = ? AND created_at >= ?", orderID, since)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(statuses))
	}

	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent payments for order: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) UpdateByID(ctx context.Context, id uuid.UUID, patch model.PaymentPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", id).
		Updates(patch.Columns())
	if result.Error != nil {
		r.logger.Error("Failed to update payment",
			zap.String("payment_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}

	return nil
}

func (r *paymentRepository) UpdateByIDIfStatus(ctx context.Context, id uuid.UUID, from []model.PaymentStatus, patch model.PaymentPatch) (bool, error) {
	if patch.IsEmpty() || len(from) == 0 {
		return false, nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status IN ?", id, statusStrings(from)).
		Updates(patch.Columns())
	if result.Error != nil {
		r.logger.Error("Failed to transition payment",
			zap.String("payment_id", id.String()),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to transition payment: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *paymentRepository) ApplyRefundTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal, status model.PaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status IN ? AND refunded_amount < ?", id, statusStrings(model.SourcesOf(status)), total).
		Updates(map[string]interface{}{
			"refunded_amount": total,
			"status":          status,
		})
	if result.Error != nil {
		r.logger.Error("Failed to apply refund total",
			zap.String("payment_id", id.String()),
			zap.String("total", total.String()),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to apply refund total: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *paymentRepository) MarkReceiptSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND receipt_sent = ?", id, false).
		Updates(map[string]interface{}{
			"receipt_sent":    true,
			"receipt_sent_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark receipt sent: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func statusStrings(statuses []model.PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
