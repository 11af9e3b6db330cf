package repository

import (
	"context"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// GatewayEventRepository stores received webhook events for dedupe and replay
type GatewayEventRepository interface {
	// SaveEvent inserts the event unless (provider, event id) already exists
	SaveEvent(ctx context.Context, event *model.GatewayEvent) error
	GetEvent(ctx context.Context, provider, eventID string) (*model.GatewayEvent, error)
	MarkProcessed(ctx context.Context, provider, eventID, outcome string) error
	MarkFailed(ctx context.Context, provider, eventID string, err error) error
	// GetPendingEvents returns pending and failed events due for retry, oldest first
	GetPendingEvents(ctx context.Context, limit int) ([]*model.GatewayEvent, error)
}
