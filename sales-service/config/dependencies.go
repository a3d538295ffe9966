package config

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vehiclemarket/sales-system/sales-service/application"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/sales-service/handlers"
	"github.com/vehiclemarket/sales-system/sales-service/infrastructure"
	"github.com/vehiclemarket/sales-system/shared/events"
	sharedinfra "github.com/vehiclemarket/sales-system/shared/infrastructure"
	"github.com/vehiclemarket/sales-system/shared/logging"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

type Dependencies struct {
	Logger *logging.Logger

	// Storage
	DB          *sqlx.DB
	RedisClient *redis.Client

	// Repositories
	BuyerRepository   domain.BuyerRepository
	VehicleRepository domain.VehicleRepository
	SaleRepository    domain.SaleRepository
	SagaRepository    domain.SagaRepository
	ConfirmationLock  domain.ConfirmationLock
	PaymentGateway    domain.PaymentGateway

	// Use Cases
	Orchestrator               *application.SagaOrchestrator
	StartSale                  *application.StartSale
	GetSale                    *application.GetSale
	CancelSale                 *application.CancelSale
	ConfirmDelivery            *application.ConfirmDelivery
	RecoverSagas               *application.RecoverSagas
	ProcessPaymentConfirmation *application.ProcessPaymentConfirmation
	HandlePaymentWebhook       *application.HandlePaymentWebhook

	// HTTP Handlers
	SaleHandlers *handlers.SaleHandlers

	// Event Handlers
	SaleEventHandlers *handlers.SaleEventHandlers

	// Jobs
	RecoveryJob *handlers.RecoveryJob

	// Infrastructure
	EventPublisher  events.Publisher
	EventSubscriber *sharedinfra.SQSSubscriberAdapter

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

// BuildDependencies wires the sales service. The memory storage driver skips
// PostgreSQL and AWS so the service can run on its own.
func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	logging.SetLevel(config.LogLevel)
	deps := &Dependencies{
		Logger: logging.New(config.ServiceName, os.Stdout),
	}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.SalesServiceConfig.
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint).
			WithVersion(config.Telemetry.Version)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			// Continue without telemetry rather than failing
			deps.Logger.WithError(err).Warn("failed to initialize telemetry")
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	var err error
	switch config.Storage.Driver {
	case StorageDriverMemory:
		deps.buildMemoryStorage()
	default:
		err = deps.buildPostgresStorage(ctx, config)
	}
	if err != nil {
		deps.Close()
		return nil, err
	}

	if err := deps.buildConfirmationLock(ctx, config); err != nil {
		deps.Close()
		return nil, err
	}

	// Payment gateway
	gatewayCfg := config.Gateway
	deps.PaymentGateway = infrastructure.NewResilientPaymentGateway(
		infrastructure.NewHTTPPaymentGateway(infrastructure.HTTPPaymentGatewayConfig{
			BaseURL:         gatewayCfg.BaseURL,
			AccessToken:     gatewayCfg.AccessToken,
			NotificationURL: gatewayCfg.NotificationURL,
			Timeout:         gatewayCfg.Timeout,
			ExpirationDays:  gatewayCfg.ExpirationDays,
		}),
		infrastructure.NewCircuitBreaker(infrastructure.CircuitBreakerConfig{
			MaxFailures:  gatewayCfg.Breaker.MaxFailures,
			ResetTimeout: gatewayCfg.Breaker.ResetTimeout,
			Logger:       deps.Logger.WithField("component", "payment_gateway"),
		}),
		gatewayCfg.Timeout,
		infrastructure.WithReadRetries(gatewayCfg.ReadRetries, gatewayCfg.ReadRetryDelay),
	)

	// Initialize use cases
	deps.Orchestrator = application.NewSagaOrchestrator(
		deps.BuyerRepository,
		deps.VehicleRepository,
		deps.SaleRepository,
		deps.SagaRepository,
		deps.PaymentGateway,
		deps.EventPublisher,
		application.WithLogger(deps.Logger.WithField("component", "saga_orchestrator")),
	)
	deps.StartSale = application.NewStartSale(deps.Orchestrator)
	deps.GetSale = application.NewGetSale(deps.SaleRepository)
	deps.CancelSale = application.NewCancelSale(deps.Orchestrator)
	deps.ConfirmDelivery = application.NewConfirmDelivery(deps.Orchestrator)
	deps.RecoverSagas = application.NewRecoverSagas(deps.Orchestrator, config.Recovery.StaleAfter)
	deps.ProcessPaymentConfirmation = application.NewProcessPaymentConfirmation(
		deps.SaleRepository,
		deps.VehicleRepository,
		deps.ConfirmationLock,
		deps.EventPublisher,
		deps.Logger.WithField("component", "payment_confirmation"),
	)
	deps.HandlePaymentWebhook = application.NewHandlePaymentWebhook(deps.PaymentGateway, deps.ProcessPaymentConfirmation)

	// Initialize handlers
	deps.SaleHandlers = handlers.NewSaleHandlers(
		deps.StartSale,
		deps.GetSale,
		deps.CancelSale,
		deps.ConfirmDelivery,
		deps.HandlePaymentWebhook,
		deps.Logger.WithField("component", "http"),
	)
	deps.SaleEventHandlers = handlers.NewSaleEventHandlers(
		deps.ProcessPaymentConfirmation,
		deps.Logger.WithField("component", "events"),
	)

	if config.Recovery.Enabled {
		job, err := handlers.NewRecoveryJob(deps.RecoverSagas, config.Recovery.Schedule, deps.Logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.RecoveryJob = job
	}

	return deps, nil
}

func (d *Dependencies) buildMemoryStorage() {
	d.BuyerRepository = infrastructure.NewMemoryBuyerRepository()
	d.VehicleRepository = infrastructure.NewMemoryVehicleRepository()
	d.SaleRepository = infrastructure.NewMemorySaleRepository()
	d.SagaRepository = infrastructure.NewMemorySagaRepository()
	d.EventPublisher = infrastructure.NewLogEventPublisher(d.Logger.WithField("component", "publisher"))
}

func (d *Dependencies) buildPostgresStorage(ctx context.Context, config *Config) error {
	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.Wrap(err, "failed to ping database")
	}
	d.DB = db

	if err := infrastructure.InitSchema(ctx, db); err != nil {
		return err
	}
	eventStore := sharedinfra.NewPostgresEventStore(db)
	if err := eventStore.InitSchema(ctx); err != nil {
		return errors.Wrap(err, "failed to create event store schema")
	}

	// Initialize repositories
	d.BuyerRepository = infrastructure.NewPostgresBuyerRepository(db)
	d.VehicleRepository = infrastructure.NewPostgresVehicleRepository(db)
	d.SaleRepository = infrastructure.NewPostgresSaleRepository(db)
	d.SagaRepository = infrastructure.NewPostgresSagaRepository(db, eventStore)

	// Initialize AWS infrastructure
	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(ctx, config.AWS.Region, config.AWS.EndpointSNS, config.AWS.SNSTopicArn)
	if err != nil {
		return errors.Wrap(err, "failed to create SNS publisher")
	}
	d.EventPublisher = eventPublisher

	eventSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(
		ctx,
		config.AWS.Region,
		config.AWS.EndpointSQS,
		config.AWS.SQSQueueURL,
		d.Logger.WithField("component", "sqs_subscriber"),
		sharedinfra.WithWorkers(config.AWS.SQSWorkers),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create SQS subscriber")
	}
	d.EventSubscriber = eventSubscriber

	return nil
}

func (d *Dependencies) buildConfirmationLock(ctx context.Context, config *Config) error {
	if !config.Redis.Enabled {
		d.ConfirmationLock = infrastructure.NewMemoryConfirmationLock()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return errors.Wrap(err, "failed to ping redis")
	}
	d.RedisClient = client
	d.ConfirmationLock = infrastructure.NewRedisConfirmationLock(client, config.Redis.LockPrefix, config.Redis.LockTTL)
	return nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.RecoveryJob != nil {
		d.RecoveryJob.Stop()
	}

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close event subscriber"))
		}
	}

	if closer, ok := d.EventPublisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close event publisher"))
		}
	}

	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close redis client"))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close database"))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
