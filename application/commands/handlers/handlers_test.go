package handlers

import (
	"context"
	"errors"
	"testing"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/aggregates"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	"flowbuilder/domain/events"
	pkgerrors "flowbuilder/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

type mockFlowRepository struct {
	mock.Mock
}

func (m *mockFlowRepository) Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *mockFlowRepository) Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(aggregates.FlowSnapshot), args.Error(1)
}

func (m *mockFlowRepository) Delete(ctx context.Context, id valueobjects.FlowID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type gaugeStub struct {
	value int
}

func (g *gaugeStub) SetOpenFlows(n int) { g.value = n }

type fixture struct {
	bus      *bus.CommandBus
	registry *session.Registry
	events   *mockEventPublisher
	repo     *mockFlowRepository
	gauge    *gaugeStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bus:      bus.NewCommandBus(bus.LoggingMiddleware(zap.NewNop())),
		registry: session.NewRegistry(nil, nil),
		events:   new(mockEventPublisher),
		repo:     new(mockFlowRepository),
		gauge:    &gaugeStub{},
	}
	require.NoError(t, RegisterAll(f.bus, Dependencies{
		Registry:   f.registry,
		Repository: f.repo,
		Events:     f.events,
		Gauge:      f.gauge,
		Logger:     zap.NewNop(),
	}))
	return f
}

func (f *fixture) createFlow(t *testing.T) string {
	t.Helper()
	result, err := f.bus.Send(context.Background(), &commands.CreateFlowCommand{})
	require.NoError(t, err)
	return result.(session.State).FlowID.String()
}

func (f *fixture) addNode(t *testing.T, flowID string) string {
	t.Helper()
	result, err := f.bus.Send(context.Background(), &commands.AddNodeCommand{
		FlowID: flowID, Kind: "textMessage", X: 10, Y: 10,
	})
	require.NoError(t, err)
	return result.(entities.NodeSnapshot).ID.String()
}

func TestRegisterAll_Twice(t *testing.T) {
	f := newFixture(t)
	err := RegisterAll(f.bus, Dependencies{Registry: f.registry})
	assert.Error(t, err)
}

func TestCreateAndDeleteFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	flowID := f.createFlow(t)
	assert.Equal(t, 1, f.gauge.value)

	_, err := f.bus.Send(ctx, &commands.DeleteFlowCommand{FlowID: flowID})
	require.NoError(t, err)
	assert.Equal(t, 0, f.gauge.value)

	_, err = f.bus.Send(ctx, &commands.DeleteFlowCommand{FlowID: flowID})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteFlow_Purge(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		open      bool
		repoErr   error
		wantErr   func(error) bool
		wantGauge int
	}{
		{name: "open flow is closed and purged", open: true},
		{name: "saved-only flow is purged", open: false},
		{
			name:    "missing saved copy",
			open:    false,
			repoErr: pkgerrors.NewNotFound("flow", "x"),
			wantErr: pkgerrors.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			flowID := "flow-1"
			if tt.open {
				flowID = f.createFlow(t)
			}
			f.repo.On("Delete", mock.Anything, valueobjects.FlowID(flowID)).Return(tt.repoErr)

			_, err := f.bus.Send(ctx, &commands.DeleteFlowCommand{FlowID: flowID, Purge: true})
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantGauge, f.gauge.value)
			f.repo.AssertExpectations(t)

			_, err = f.registry.Get(valueobjects.FlowID(flowID))
			assert.True(t, pkgerrors.IsNotFound(err))
		})
	}
}

func TestDeleteFlow_WithoutPurgeKeepsSavedCopy(t *testing.T) {
	f := newFixture(t)
	flowID := f.createFlow(t)

	_, err := f.bus.Send(context.Background(), &commands.DeleteFlowCommand{FlowID: flowID})
	require.NoError(t, err)
	f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteFlow_PurgeWithoutRepository(t *testing.T) {
	registry := session.NewRegistry(nil, nil)
	commandBus := bus.NewCommandBus()
	require.NoError(t, RegisterAll(commandBus, Dependencies{Registry: registry, Logger: zap.NewNop()}))

	editor, err := registry.Create()
	require.NoError(t, err)
	flowID := editor.State().FlowID

	_, err = commandBus.Send(context.Background(), &commands.DeleteFlowCommand{FlowID: flowID.String(), Purge: true})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))

	_, err = registry.Get(flowID)
	assert.NoError(t, err)
}

func TestAddNode_PublishesEvents(t *testing.T) {
	f := newFixture(t)
	flowID := f.createFlow(t)

	f.events.On("PublishBatch", mock.Anything, mock.MatchedBy(func(evts []events.DomainEvent) bool {
		return len(evts) == 1 && evts[0].GetEventType() == events.TypeNodeAdded
	})).Return(nil).Once()

	nodeID := f.addNode(t, flowID)
	assert.NotEmpty(t, nodeID)
	f.events.AssertExpectations(t)
}

func TestAddNode_PublishFailureDoesNotFailAction(t *testing.T) {
	f := newFixture(t)
	flowID := f.createFlow(t)
	f.events.On("PublishBatch", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	f.addNode(t, flowID)

	editor, err := f.registry.Get(valueobjects.FlowID(flowID))
	require.NoError(t, err)
	assert.Len(t, editor.State().Nodes, 2)
}

func TestCommandValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  bus.Command
	}{
		{name: "add node without flow", cmd: &commands.AddNodeCommand{Kind: "text-message"}},
		{name: "add node of unknown kind", cmd: &commands.AddNodeCommand{FlowID: "f", Kind: "image"}},
		{name: "connect without target", cmd: &commands.ConnectNodesCommand{FlowID: "f", Source: "1"}},
		{name: "relabel without node", cmd: &commands.RelabelNodeCommand{FlowID: "f", Label: "x"}},
		{name: "remove edge without id", cmd: &commands.RemoveEdgeCommand{FlowID: "f"}},
		{name: "save without flow", cmd: &commands.SaveFlowCommand{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bus.Send(ctx, tt.cmd)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestConnectNodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.events.On("PublishBatch", mock.Anything, mock.Anything).Return(nil)

	flowID := f.createFlow(t)
	x := f.addNode(t, flowID)

	result, err := f.bus.Send(ctx, &commands.ConnectNodesCommand{FlowID: flowID, Source: "1", Target: x})
	require.NoError(t, err)
	edge := result.(entities.Edge)
	assert.Equal(t, "1", edge.Source.String())
	assert.Equal(t, x, edge.Target.String())

	_, err = f.bus.Send(ctx, &commands.ConnectNodesCommand{FlowID: flowID, Source: x, Target: "1"})
	assert.True(t, errors.Is(err, pkgerrors.ErrWouldCreateCycle))

	_, err = f.bus.Send(ctx, &commands.ConnectNodesCommand{FlowID: "missing", Source: x, Target: "1"})
	assert.True(t, pkgerrors.IsReason(err, pkgerrors.ReasonNotFound))

	_, err = f.bus.Send(ctx, &commands.RemoveEdgeCommand{FlowID: flowID, EdgeID: edge.ID.String()})
	require.NoError(t, err)
}

func TestDeleteNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.events.On("PublishBatch", mock.Anything, mock.Anything).Return(nil)

	flowID := f.createFlow(t)
	x := f.addNode(t, flowID)
	_, err := f.bus.Send(ctx, &commands.ConnectNodesCommand{FlowID: flowID, Source: "1", Target: x})
	require.NoError(t, err)

	result, err := f.bus.Send(ctx, &commands.DeleteNodeCommand{FlowID: flowID, NodeID: x})
	require.NoError(t, err)
	deleted := result.(*commands.DeleteNodeResult)
	assert.Equal(t, x, deleted.NodeID)
	assert.Len(t, deleted.RemovedEdgeIDs, 1)
}

func TestRelabelMoveAndSelect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.events.On("PublishBatch", mock.Anything, mock.Anything).Return(nil)
	flowID := f.createFlow(t)

	seed := "1"
	result, err := f.bus.Send(ctx, &commands.SelectNodeCommand{FlowID: flowID, NodeID: &seed})
	require.NoError(t, err)
	assert.Equal(t, "1", result.(session.State).SelectedNodeID.String())

	result, err = f.bus.Send(ctx, &commands.RelabelNodeCommand{FlowID: flowID, NodeID: "1", Label: "Welcome"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", result.(entities.NodeSnapshot).Label)

	result, err = f.bus.Send(ctx, &commands.MoveNodeCommand{FlowID: flowID, NodeID: "1", X: 1, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, valueobjects.Position{X: 1, Y: 2}, result.(entities.NodeSnapshot).Position)

	result, err = f.bus.Send(ctx, &commands.SelectNodeCommand{FlowID: flowID})
	require.NoError(t, err)
	assert.Nil(t, result.(session.State).SelectedNodeID)
}

func TestSaveFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("valid flow is persisted", func(t *testing.T) {
		f := newFixture(t)
		flowID := f.createFlow(t)
		f.repo.On("Save", mock.Anything, mock.MatchedBy(func(s aggregates.FlowSnapshot) bool {
			return s.FlowID.String() == flowID && len(s.Nodes) == 1
		})).Return(nil)
		f.events.On("PublishBatch", mock.Anything, mock.MatchedBy(func(evts []events.DomainEvent) bool {
			return len(evts) == 1 && evts[0].GetEventType() == events.TypeFlowSaved
		})).Return(nil)

		result, err := f.bus.Send(ctx, &commands.SaveFlowCommand{FlowID: flowID})
		require.NoError(t, err)
		saved := result.(*commands.SaveFlowResult)
		assert.Equal(t, "Flow saved successfully!", saved.Message)
		assert.Equal(t, 1, saved.NodeCount)
		f.repo.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("two open targets are refused", func(t *testing.T) {
		f := newFixture(t)
		f.events.On("PublishBatch", mock.Anything, mock.Anything).Return(nil)
		flowID := f.createFlow(t)
		f.addNode(t, flowID)

		_, err := f.bus.Send(ctx, &commands.SaveFlowCommand{FlowID: flowID})
		assert.True(t, errors.Is(err, pkgerrors.ErrMultipleOpenTargets))
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestLoadFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	snapshot := aggregates.FlowSnapshot{
		FlowID:  "saved-flow",
		Version: 7,
		Nodes: []entities.NodeSnapshot{
			{ID: valueobjects.MustNodeID("1"), Kind: entities.NodeKindTextMessage, Label: "hi"},
			{ID: valueobjects.MustNodeID("2"), Kind: entities.NodeKindTextMessage, Label: "there"},
		},
	}
	edgeID, _ := valueobjects.NewEdgeIDFromString("e1")
	snapshot.Edges = []entities.Edge{{ID: edgeID, Source: valueobjects.MustNodeID("1"), Target: valueobjects.MustNodeID("2")}}

	f.repo.On("Load", mock.Anything, valueobjects.FlowID("saved-flow")).Return(snapshot, nil)
	f.repo.On("Load", mock.Anything, valueobjects.FlowID("unknown")).
		Return(aggregates.FlowSnapshot{}, pkgerrors.NewNotFound("flow", "unknown"))

	result, err := f.bus.Send(ctx, &commands.LoadFlowCommand{FlowID: "saved-flow"})
	require.NoError(t, err)
	state := result.(session.State)
	assert.Len(t, state.Nodes, 2)
	assert.Len(t, state.Edges, 1)
	assert.Equal(t, 7, state.Version)
	assert.Equal(t, 1, f.gauge.value)

	_, err = f.bus.Send(ctx, &commands.LoadFlowCommand{FlowID: "saved-flow"})
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Equal(t, 1, f.gauge.value)

	_, err = f.bus.Send(ctx, &commands.LoadFlowCommand{FlowID: "unknown"})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDismissNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flowID := f.createFlow(t)

	_, err := f.bus.Send(ctx, &commands.ConnectNodesCommand{FlowID: flowID, Source: "1", Target: "1"})
	require.Error(t, err)

	editor, _ := f.registry.Get(valueobjects.FlowID(flowID))
	require.NotNil(t, editor.Notice())

	_, err = f.bus.Send(ctx, &commands.DismissNoticeCommand{FlowID: flowID})
	require.NoError(t, err)
	assert.Nil(t, editor.Notice())
}

func TestHandlers_InvalidCommandType(t *testing.T) {
	handler := NewAddNodeHandler(session.NewRegistry(nil, nil), nil, nil)

	_, err := handler.Handle(context.Background(), &commands.SaveFlowCommand{FlowID: "f"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid command type")
}
