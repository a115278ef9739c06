//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"flowbuilder/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideConfigWatcher,
	ProvideMetrics,
	ProvideTracer,
	ProvideErrorHandler,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideFlowRepository,
	ProvideEventForwarder,
	ProvideEventBus,
	ProvideConnectionValidator,
	ProvideRegistry,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
