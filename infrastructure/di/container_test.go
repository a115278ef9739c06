package di

import (
	"context"
	"testing"

	"flowbuilder/application/commands"
	"flowbuilder/application/queries"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/entities"
	"flowbuilder/infrastructure/config"
	"flowbuilder/infrastructure/messaging/logbus"
	"flowbuilder/infrastructure/persistence"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, key := range []string{"CONFIG_FILE", "PERSISTENCE", "EVENTS", "ENVIRONMENT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("AWS_REGION", "us-east-1")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestInitializeContainer_MemoryBackend(t *testing.T) {
	cfg := loadTestConfig(t)
	ctx := context.Background()

	container, err := InitializeContainer(ctx, cfg)
	require.NoError(t, err)
	defer container.Close(ctx)

	assert.IsType(t, &persistence.BreakerRepository{}, container.Repository)
	assert.IsType(t, &logbus.Bus{}, container.EventBus)
	assert.Nil(t, container.Watcher)
	assert.Equal(t, zapcore.InfoLevel, container.LogLevel.Level())

	result, err := container.CommandBus.Send(ctx, &commands.CreateFlowCommand{})
	require.NoError(t, err)
	state := result.(session.State)
	require.Len(t, state.Nodes, 1)

	_, err = container.CommandBus.Send(ctx, &commands.SaveFlowCommand{FlowID: state.FlowID.String()})
	require.NoError(t, err)

	listed, err := container.QueryBus.Ask(ctx, &queries.ListFlowsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, listed.(*queries.ListFlowsResult).Count)

	// The flow stats projection is subscribed to the bus
	assert.Equal(t, 2, testutil.CollectAndCount(container.Metrics.SavedFlowSize))
}

func TestInitializeContainer_CascadeReachesProjection(t *testing.T) {
	cfg := loadTestConfig(t)
	ctx := context.Background()

	container, err := InitializeContainer(ctx, cfg)
	require.NoError(t, err)
	defer container.Close(ctx)

	result, err := container.CommandBus.Send(ctx, &commands.CreateFlowCommand{})
	require.NoError(t, err)
	state := result.(session.State)
	flowID := state.FlowID.String()
	seed := state.Nodes[0].ID.String()

	result, err = container.CommandBus.Send(ctx, &commands.AddNodeCommand{FlowID: flowID, Kind: "text-message", X: 1, Y: 2})
	require.NoError(t, err)
	added := result.(entities.NodeSnapshot).ID.String()

	_, err = container.CommandBus.Send(ctx, &commands.ConnectNodesCommand{FlowID: flowID, Source: seed, Target: added})
	require.NoError(t, err)

	_, err = container.CommandBus.Send(ctx, &commands.DeleteNodeCommand{FlowID: flowID, NodeID: added})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(container.Metrics.CascadedEdges))
}

func TestProvideLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level := ProvideLogLevel(&config.Config{LogLevel: tt.in})
			assert.Equal(t, tt.want, level.Level())
		})
	}
}

func TestProvideEventForwarder(t *testing.T) {
	cfg := loadTestConfig(t)

	forward, err := ProvideEventForwarder(cfg, nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, forward)

	cfg.Events = "carrier-pigeon"
	_, err = ProvideEventForwarder(cfg, nil, nil, zap.NewNop())
	assert.Error(t, err)
}
