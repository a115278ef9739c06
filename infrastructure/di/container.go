package di

import (
	"context"

	"flowbuilder/application/commands/bus"
	"flowbuilder/application/ports"
	querybus "flowbuilder/application/queries/bus"
	"flowbuilder/application/session"
	"flowbuilder/infrastructure/config"
	pkgerrors "flowbuilder/pkg/errors"
	"flowbuilder/pkg/observability"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	LogLevel     zap.AtomicLevel
	Registry     *session.Registry
	Repository   ports.FlowRepository
	EventBus     ports.EventBus
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Metrics      *observability.Metrics
	Tracer       *observability.TracerProvider
	ErrorHandler *pkgerrors.ErrorHandler
	Watcher      *config.Watcher
}

// Close releases everything the container started. All shutdown errors
// are returned together.
func (c *Container) Close(ctx context.Context) error {
	var err error
	if c.Watcher != nil {
		err = multierr.Append(err, c.Watcher.Close())
	}
	if c.Tracer != nil {
		err = multierr.Append(err, c.Tracer.Shutdown(ctx))
	}
	if c.Logger != nil {
		// Sync fails on stderr/stdout in most terminals
		_ = c.Logger.Sync()
	}
	return err
}
