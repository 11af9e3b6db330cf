package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/logger"
)

const pingTimeout = 5 * time.Second

// NewConnection opens the payment ledger database, sizes its pool and checks
// that postgres answers before any webhook is accepted.
func NewConnection(cfg *config.DatabaseConfig, environment string, log *zap.Logger) (*gorm.DB, error) {
	db, err := Open(postgres.Open(cfg.DSN()), cfg, environment, log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger connection pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("payment ledger database unreachable at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	log.Info("Payment ledger database connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Duration("statement_timeout", cfg.StatementTimeout),
	)
	return db, nil
}

// Open applies the ledger's gorm settings to dialector. Driver errors are
// translated so duplicate gateway references surface as gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector, cfg *config.DatabaseConfig, environment string, log *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if environment == config.EnvironmentDevelopment {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.NewGormLogger(log, level, cfg.SlowThreshold, true),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open payment ledger database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func Close(db *gorm.DB, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get ledger connection pool: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close payment ledger database: %w", err)
	}

	log.Info("Payment ledger database closed")
	return nil
}
