package model

import (
	"database/sql/driver"
	"time"

	"gorm.io/datatypes"
)

// GatewayEventStatus is the processing state of a received gateway event
type GatewayEventStatus string

const (
	GatewayEventStatusPending   GatewayEventStatus = "pending"
	GatewayEventStatusCompleted GatewayEventStatus = "completed"
	GatewayEventStatusFailed    GatewayEventStatus = "failed"
)

// Scan implements sql.Scanner
func (s *GatewayEventStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = GatewayEventStatus(v)
	case []byte:
		*s = GatewayEventStatus(v)
	default:
		*s = GatewayEventStatusPending
	}
	return nil
}

// Value implements driver.Valuer
func (s GatewayEventStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// GatewayEvent is a verified webhook event kept for dedupe and replay.
type GatewayEvent struct {
	ID                 int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           string             `gorm:"size:30;not null;uniqueIndex:idx_gateway_events_provider_event,priority:1" json:"provider"`
	EventID            string             `gorm:"size:255;not null;uniqueIndex:idx_gateway_events_provider_event,priority:2" json:"event_id"`
	EventType          string             `gorm:"size:100;not null;index" json:"event_type"`
	Status             GatewayEventStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Payload            datatypes.JSON     `gorm:"type:jsonb;not null" json:"payload"`
	Outcome            *string            `gorm:"size:100" json:"outcome,omitempty"`
	ProcessingAttempts int                `gorm:"not null;default:0" json:"processing_attempts"`
	LastError          *string            `json:"last_error,omitempty"`
	NextRetryAt        *time.Time         `json:"next_retry_at,omitempty"`
	ProcessedAt        *time.Time         `json:"processed_at,omitempty"`
	GatewayCreatedAt   *time.Time         `json:"gateway_created_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// TableName specifies the table name for GORM
func (GatewayEvent) TableName() string {
	return "gateway_events"
}

// NextRetryDelay is the backoff after attempts failures: 5, 10, 20, ... minutes, capped at a day.
func NextRetryDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	minutes := 5 * (1 << attempts)
	if minutes > 1440 {
		minutes = 1440
	}
	return time.Duration(minutes) * time.Minute
}
