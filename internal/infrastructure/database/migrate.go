package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	logger.Info("Creating PostgreSQL extensions...")
	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	logger.Info("Running GORM auto-migrations...")
	err := db.AutoMigrate(
		&model.Order{},
		&model.OrderLineItem{},
		&model.Payment{},
		&model.GatewayEvent{},
		&model.CustomerMapping{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	logger.Info("Creating custom indexes...")
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	statements := []string{
		// replay scan
		`CREATE INDEX IF NOT EXISTS idx_gateway_events_unprocessed ON gateway_events (next_retry_at) WHERE status IN ('pending', 'failed')`,
		// pending link lookup and duplicate guard
		`CREATE INDEX IF NOT EXISTS idx_payments_order_pending ON payments (order_id, created_at) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_payments_receipt_unsent ON payments (id) WHERE receipt_sent = false AND status IN ('succeeded', 'partially_refunded', 'refunded')`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func createExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}
