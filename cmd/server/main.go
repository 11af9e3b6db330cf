package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	handlers "github.com/nishant-k1/flushjohn-api-sub000/internal/adapter/handler/http"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/app"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
	grpcServer "github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/grpc"
	httpServer "github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/http"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("environment", cfg.Service.Environment))

	// Wire database, gateway and notification collaborators
	application, err := app.Build(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build application", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			zapLogger.Error("Failed to release resources", zap.Error(err))
		}
	}()

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Handlers{
		Payment:  handlers.NewPaymentHandler(application.Payments, zapLogger),
		Webhook:  handlers.NewWebhookHandler(application.Webhooks, zapLogger),
		Customer: handlers.NewCustomerHandler(application.Customers, zapLogger),
	})

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer cancel()

	// Stop accepting webhooks first so in-flight reconciliation can finish
	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
