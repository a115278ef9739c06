package di

import (
	"context"
	"fmt"

	"flowbuilder/application/commands/bus"
	commandhandlers "flowbuilder/application/commands/handlers"
	"flowbuilder/application/ports"
	"flowbuilder/application/projections"
	querybus "flowbuilder/application/queries/bus"
	queryhandlers "flowbuilder/application/queries/handlers"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/validators"
	"flowbuilder/infrastructure/config"
	"flowbuilder/infrastructure/messaging/eventbridge"
	"flowbuilder/infrastructure/messaging/logbus"
	"flowbuilder/infrastructure/persistence"
	"flowbuilder/infrastructure/persistence/dynamodb"
	"flowbuilder/infrastructure/persistence/memory"
	pkgerrors "flowbuilder/pkg/errors"
	"flowbuilder/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogLevel creates the shared log level. The config watcher
// changes it at runtime.
func ProvideLogLevel(cfg *config.Config) zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}
	return level
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// ProvideConfigWatcher starts hot reloading when a config file is in use.
// Reloads update the log level.
func ProvideConfigWatcher(cfg *config.Config, level zap.AtomicLevel, logger *zap.Logger) (*config.Watcher, error) {
	if cfg.ConfigFile == "" {
		return nil, nil
	}

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(next *config.Config) {
		if err := level.UnmarshalText([]byte(next.LogLevel)); err != nil {
			logger.Warn("Ignoring invalid log level", zap.String("level", next.LogLevel))
		}
	})
	return watcher, nil
}

// ProvideMetrics creates the Prometheus metrics
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics("flowbuilder")
}

// ProvideTracer sets up OpenTelemetry tracing
func ProvideTracer(cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.EnableTracing,
		ServiceName: "flowbuilder",
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingEndpoint,
		SampleRate:  cfg.TracingSampleRate,
	})
}

// ProvideErrorHandler creates the HTTP error writer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideFlowRepository picks the configured store and puts it behind the
// circuit breaker
func ProvideFlowRepository(
	cfg *config.Config,
	client *awsdynamodb.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (ports.FlowRepository, error) {
	var store ports.FlowRepository
	switch cfg.Persistence {
	case config.PersistenceMemory:
		store = memory.NewFlowRepository(logger)
	case config.PersistenceDynamoDB:
		store = dynamodb.NewFlowRepository(client, cfg.DynamoDBTable, logger)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence)
	}

	return persistence.NewBreakerRepository(store, persistence.BreakerConfig{
		Name:             "flow-repository",
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}, metrics, logger), nil
}

// ProvideEventForwarder returns the downstream publisher the event bus
// forwards to, or nil when events are only logged
func ProvideEventForwarder(
	cfg *config.Config,
	dynamoClient *awsdynamodb.Client,
	ebClient *awseventbridge.Client,
	logger *zap.Logger,
) (ports.EventPublisher, error) {
	switch cfg.Events {
	case config.EventsLog:
		return nil, nil
	case config.EventsEventBridge:
		return eventbridge.NewPublisher(ebClient, cfg.EventBusName, logger), nil
	case config.EventsDynamoDB:
		return dynamodb.NewEventJournal(dynamoClient, cfg.DynamoDBTable, cfg.EventRetention, logger), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events)
	}
}

// ProvideEventBus creates the in-process event bus with the flow stats
// projection subscribed
func ProvideEventBus(forward ports.EventPublisher, metrics *observability.Metrics, logger *zap.Logger) (ports.EventBus, error) {
	eventBus := logbus.New(forward, metrics, logger)

	stats := projections.NewFlowStatsProjection(metrics, logger)
	for _, eventType := range stats.GetEventTypes() {
		if err := eventBus.Subscribe(eventType, stats); err != nil {
			return nil, fmt.Errorf("failed to subscribe flow stats projection: %w", err)
		}
	}

	return eventBus, nil
}

// ProvideConnectionValidator creates the connection rule checker
func ProvideConnectionValidator() *validators.ConnectionValidator {
	return validators.NewConnectionValidator()
}

// ProvideRegistry creates the registry of open flows
func ProvideRegistry(cfg *config.Config, connections *validators.ConnectionValidator) *session.Registry {
	return session.NewRegistry(cfg.Domain, connections)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	registry *session.Registry,
	repository ports.FlowRepository,
	eventBus ports.EventBus,
	metrics *observability.Metrics,
	tracer *observability.TracerProvider,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.TracingMiddleware(tracer.Tracer()),
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)

	if err := commandhandlers.RegisterAll(commandBus, commandhandlers.Dependencies{
		Registry:   registry,
		Repository: repository,
		Events:     eventBus,
		Gauge:      metrics,
		Logger:     logger,
	}); err != nil {
		return nil, fmt.Errorf("failed to register command handlers: %w", err)
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(registry *session.Registry) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	if err := queryhandlers.NewFlowQueryHandler(registry).Register(queryBus); err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return queryBus, nil
}
