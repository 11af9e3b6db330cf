package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

type gatewayEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGatewayEventRepository creates a gorm backed webhook event log
func NewGatewayEventRepository(db *gorm.DB, logger *zap.Logger) repository.GatewayEventRepository {
	return &gatewayEventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *gatewayEventRepository) SaveEvent(ctx context.Context, event *model.GatewayEvent) error {
	if event.Status == "" {
		event.Status = model.GatewayEventStatusPending
	}

	// Redelivered events hit the unique index and are ignored
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
	if err != nil {
		r.logger.Error("Failed to save gateway event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to save gateway event: %w", err)
	}

	return nil
}

func (r *gatewayEventRepository) GetEvent(ctx context.Context, provider, eventID string) (*model.GatewayEvent, error) {
	var event model.GatewayEvent

	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get gateway event: %w", err)
	}

	return &event, nil
}

func (r *gatewayEventRepository) MarkProcessed(ctx context.Context, provider, eventID, outcome string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.GatewayEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Updates(map[string]interface{}{
			"status":       model.GatewayEventStatusCompleted,
			"outcome":      outcome,
			"processed_at": now,
			"last_error":   nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark gateway event processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("gateway event not found: %s", eventID)
	}

	return nil
}

func (r *gatewayEventRepository) MarkFailed(ctx context.Context, provider, eventID string, cause error) error {
	var event model.GatewayEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error; err != nil {
		return fmt.Errorf("failed to get gateway event: %w", err)
	}

	attempts := event.ProcessingAttempts + 1
	nextRetry := time.Now().Add(model.NextRetryDelay(attempts))
	errorMsg := cause.Error()

	result := r.db.WithContext(ctx).
		Model(&model.GatewayEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"status":              model.GatewayEventStatusFailed,
			"processing_attempts": attempts,
			"last_error":          errorMsg,
			"next_retry_at":       nextRetry,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark gateway event failed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark gateway event failed: %w", result.Error)
	}

	return nil
}

func (r *gatewayEventRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.GatewayEvent, error) {
	var events []*model.GatewayEvent

	query := r.db.WithContext(ctx).
		Where("status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			model.GatewayEventStatusPending,
			model.GatewayEventStatusFailed,
			time.Now()).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to get pending gateway events: %w", err)
	}

	return events, nil
}
