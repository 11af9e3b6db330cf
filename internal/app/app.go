// Package app wires configuration into the reconciliation engine. The
// server and the ops CLI share it.
package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/adapter/repository/memory"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/database"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/email"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/lock"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/messaging"
	providerFactory "github.com/nishant-k1/flushjohn-api-sub000/internal/infrastructure/provider"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/usecase"
	pkgmessaging "github.com/nishant-k1/flushjohn-api-sub000/pkg/messaging"
)

// App holds the wired use cases and everything that must be closed on exit
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Repos     *database.Repositories
	Payments  *usecase.PaymentUsecase
	Webhooks  *usecase.WebhookUsecase
	Customers *usecase.CustomerUsecase

	// Store is set with the memory driver; orders are seeded through it
	Store *memory.Store

	closers []func() error
}

// Build connects every collaborator named in cfg. Redis, Kafka and SMTP are
// optional; without them broadcasts are dropped, receipt locks stay
// in-process and receipts are only logged.
func Build(cfg *config.Config, logger *zap.Logger) (*App, error) {
	gateway, err := providerFactory.NewFactory(cfg, logger).GetGateway(provider.ProviderTypeStripe)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment gateway: %w", err)
	}
	return BuildWithGateway(cfg, gateway, logger)
}

// BuildWithGateway is Build with the gateway supplied by the caller
func BuildWithGateway(cfg *config.Config, gateway provider.Gateway, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.openRepositories(); err != nil {
		return nil, err
	}

	var (
		broadcaster usecase.Broadcaster
		publisher   usecase.EventPublisher
		locker      usecase.Locker = lock.NewLocalLocker()
		sender      usecase.ReceiptSender
	)

	if cfg.Redis.Addr != "" {
		client, err := pkgmessaging.Dial(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		broadcaster = messaging.NewRedisBroadcaster(pkgmessaging.WrapRedisClient(client), cfg.Redis.ChannelPrefix)
		locker = lock.NewRedisLocker(client, cfg.Redis.ChannelPrefix, logger)
		logger.Info("Redis broadcast and receipt locks enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		a.closers = append(a.closers, kafkaPublisher.Close)
		publisher = kafkaPublisher
		logger.Info("Payment event stream enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPReceiptSender(email.Config{
			Host:         cfg.SMTP.Host,
			Port:         cfg.SMTP.Port,
			Username:     cfg.SMTP.Username,
			Password:     cfg.SMTP.Password,
			From:         cfg.SMTP.From,
			BusinessName: cfg.Service.BusinessName,
		}, logger)
	} else {
		logger.Warn("SMTP not configured, receipts will only be logged")
		sender = email.NewLogReceiptSender(logger)
	}

	repos := a.Repos
	guard := usecase.NewDuplicateGuard(repos.Payment, cfg.Guard.Window, logger)
	reconciler := usecase.NewReconciler(repos.Payment, repos.Order, broadcaster, logger)
	dispatcher := usecase.NewDispatcher(repos.Payment, repos.Order, sender, broadcaster, publisher, locker,
		usecase.DispatcherOptions{
			ReceiptPolicy:      cfg.Retry.Receipt.Policy(),
			ReceiptLockTTL:     cfg.Redis.ReceiptLockTTL,
			ReceiptSendTimeout: cfg.SMTP.SendTimeout,
		}, logger)
	engine := usecase.NewEngine(repos.Payment, reconciler, dispatcher, logger)

	a.Customers = usecase.NewCustomerUsecase(gateway, repos.CustomerMapping, logger)
	a.Payments = usecase.NewPaymentUsecase(repos.Payment, repos.Order, gateway, a.Customers, guard, reconciler,
		engine, dispatcher, usecase.PaymentOptions{
			DefaultCurrency: cfg.Service.DefaultCurrency,
			ReturnURL:       cfg.Service.ClientURL,
		}, logger)
	a.Webhooks = usecase.NewWebhookUsecase(gateway, repos.GatewayEvent, engine, logger)

	return a, nil
}

func (a *App) openRepositories() error {
	if a.Config.Database.Driver == config.DriverMemory {
		a.Logger.Warn("Using in-memory ledger; data is lost on exit")
		a.Repos, a.Store = database.NewMemoryRepositories()
		return nil
	}

	db, err := database.NewConnection(&a.Config.Database, a.Config.Service.Environment, a.Logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { return database.Close(db, a.Logger) })

	if err := database.Migrate(db, a.Logger); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	a.Repos = database.NewRepositories(db, a.Logger)
	return nil
}

// Close releases connections in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
