package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

// OutcomeDuplicate is returned for an event that was already processed
const OutcomeDuplicate = "duplicate"

// DefaultReplayLimit caps one replay run when no limit is given
const DefaultReplayLimit = 100

// ReplayReport summarizes a replay run
type ReplayReport struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// WebhookUsecase receives gateway events, records them in the event log and
// hands them to the engine. A failure is recorded on its own event and never
// blocks other events.
type WebhookUsecase struct {
	gateway provider.Gateway
	events  domainRepo.GatewayEventRepository
	engine  *Engine
	logger  *zap.Logger
}

// NewWebhookUsecase creates a new WebhookUsecase
func NewWebhookUsecase(
	gateway provider.Gateway,
	events domainRepo.GatewayEventRepository,
	engine *Engine,
	logger *zap.Logger,
) *WebhookUsecase {
	return &WebhookUsecase{
		gateway: gateway,
		events:  events,
		engine:  engine,
		logger:  logger,
	}
}

// HandleGatewayEvent verifies and applies one webhook delivery. An error
// means the event should be delivered again.
func (u *WebhookUsecase) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := u.gateway.ParseEvent(payload, signature)
	if err != nil {
		return "", err
	}

	logger := u.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.GatewayType))

	existing, err := u.events.GetEvent(ctx, u.gateway.Name(), event.ID)
	if err != nil {
		return "", fmt.Errorf("failed to look up gateway event: %w", err)
	}
	if existing != nil && existing.Status == model.GatewayEventStatusCompleted {
		logger.Info("Webhook event already processed")
		return OutcomeDuplicate, nil
	}
	if existing == nil {
		record := &model.GatewayEvent{
			Provider:  u.gateway.Name(),
			EventID:   event.ID,
			EventType: event.GatewayType,
			Status:    model.GatewayEventStatusPending,
			Payload:   datatypes.JSON(payload),
		}
		if !event.CreatedAt.IsZero() {
			createdAt := event.CreatedAt
			record.GatewayCreatedAt = &createdAt
		}
		if err := u.events.SaveEvent(ctx, record); err != nil {
			return "", fmt.Errorf("failed to store gateway event: %w", err)
		}
	}

	return u.process(ctx, event, logger)
}

// ReplayPending re-applies stored events that are pending or failed and due for retry
func (u *WebhookUsecase) ReplayPending(ctx context.Context, limit int) (*ReplayReport, error) {
	if limit <= 0 {
		limit = DefaultReplayLimit
	}
	pending, err := u.events.GetPendingEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending gateway events: %w", err)
	}

	report := &ReplayReport{}
	for _, record := range pending {
		logger := u.logger.With(
			zap.String("event_id", record.EventID),
			zap.String("event_type", record.EventType),
			zap.Int("attempts", record.ProcessingAttempts))

		event, err := u.gateway.DecodeEvent(record.Payload)
		if err != nil {
			logger.Error("Stored gateway event cannot be decoded", zap.Error(err))
			if markErr := u.events.MarkFailed(ctx, record.Provider, record.EventID, err); markErr != nil {
				logger.Error("Failed to record event failure", zap.Error(markErr))
			}
			report.Failed++
			continue
		}

		if _, err := u.process(ctx, event, logger); err != nil {
			report.Failed++
			continue
		}
		report.Processed++
	}

	u.logger.Info("Gateway event replay finished",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (u *WebhookUsecase) process(ctx context.Context, event *provider.Event, logger *zap.Logger) (string, error) {
	start := time.Now()
	outcome, err := u.engine.HandleEvent(ctx, event)
	if err != nil {
		logger.Error("Gateway event processing failed", zap.Error(err))
		if markErr := u.events.MarkFailed(ctx, u.gateway.Name(), event.ID, err); markErr != nil {
			logger.Error("Failed to record event failure", zap.Error(markErr))
		}
		return "", err
	}

	if outcome == OutcomeUnmatched {
		logger.Warn("Gateway event matches no payment",
			zap.String("intent_ref", event.IntentRef),
			zap.String("charge_ref", event.ChargeRef),
			zap.String("link_ref", event.LinkRef),
			zap.String("order_id", event.OrderID))
	}

	if err := u.events.MarkProcessed(ctx, u.gateway.Name(), event.ID, outcome); err != nil {
		logger.Error("Failed to mark gateway event processed", zap.Error(err))
		return "", err
	}

	logger.Info("Gateway event processed",
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)))
	return outcome, nil
}
