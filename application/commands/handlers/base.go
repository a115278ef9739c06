package handlers

import (
	"context"
	"fmt"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	"flowbuilder/application/ports"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"

	"go.uber.org/zap"
)

// OpenFlowsGauge is told how many flows are open after a flow is
// created, loaded or closed
type OpenFlowsGauge interface {
	SetOpenFlows(n int)
}

// editorHandler holds what every editor command handler needs
type editorHandler struct {
	registry *session.Registry
	events   ports.EventPublisher
	logger   *zap.Logger
}

func newEditorHandler(registry *session.Registry, events ports.EventPublisher, logger *zap.Logger) editorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return editorHandler{registry: registry, events: events, logger: logger}
}

func (h editorHandler) editor(flowID string) (*session.Editor, error) {
	return h.registry.Get(valueobjects.FlowID(flowID))
}

// publish drains the editor's events and hands them to the event
// publisher. A publish failure never fails the user action.
func (h editorHandler) publish(ctx context.Context, editor *session.Editor) {
	evts := editor.DrainEvents()
	if len(evts) == 0 || h.events == nil {
		return
	}

	if err := h.events.PublishBatch(ctx, evts); err != nil {
		h.logger.Warn("Failed to publish domain events",
			zap.String("flowID", editor.FlowID().String()),
			zap.Int("count", len(evts)),
			zap.Error(err),
		)
	}
}

func parseNodeID(field, id string) (valueobjects.NodeID, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid %s: %v", field, err))
	}
	return nodeID, nil
}

func invalidCommand(cmd bus.Command) error {
	return fmt.Errorf("invalid command type: %T", cmd)
}

// Dependencies are the collaborators of the command handlers
type Dependencies struct {
	Registry   *session.Registry
	Repository ports.FlowRepository
	Events     ports.EventPublisher
	Gauge      OpenFlowsGauge
	Logger     *zap.Logger
}

// RegisterAll registers a handler for every editor command on b
func RegisterAll(b *bus.CommandBus, deps Dependencies) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{&commands.CreateFlowCommand{}, NewCreateFlowHandler(deps.Registry, deps.Gauge, deps.Logger)},
		{&commands.DeleteFlowCommand{}, NewDeleteFlowHandler(deps.Registry, deps.Repository, deps.Gauge, deps.Logger)},
		{&commands.LoadFlowCommand{}, NewLoadFlowHandler(deps.Registry, deps.Repository, deps.Gauge, deps.Logger)},
		{&commands.SaveFlowCommand{}, NewSaveFlowHandler(deps.Registry, deps.Repository, deps.Events, deps.Logger)},
		{&commands.DismissNoticeCommand{}, NewDismissNoticeHandler(deps.Registry, deps.Logger)},
		{&commands.AddNodeCommand{}, NewAddNodeHandler(deps.Registry, deps.Events, deps.Logger)},
		{&commands.DeleteNodeCommand{}, NewDeleteNodeHandler(deps.Registry, deps.Events, deps.Logger)},
		{&commands.RelabelNodeCommand{}, NewRelabelNodeHandler(deps.Registry, deps.Events, deps.Logger)},
		{&commands.MoveNodeCommand{}, NewMoveNodeHandler(deps.Registry, deps.Events, deps.Logger)},
		{&commands.SelectNodeCommand{}, NewSelectNodeHandler(deps.Registry, deps.Logger)},
		{&commands.ConnectNodesCommand{}, NewConnectNodesHandler(deps.Registry, deps.Events, deps.Logger)},
		{&commands.RemoveEdgeCommand{}, NewRemoveEdgeHandler(deps.Registry, deps.Events, deps.Logger)},
	}

	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}
