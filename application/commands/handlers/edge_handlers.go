package handlers

import (
	"context"
	"fmt"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	"flowbuilder/application/ports"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"

	"go.uber.org/zap"
)

// ConnectNodesHandler handles drag-connect gestures
type ConnectNodesHandler struct {
	editorHandler
}

// NewConnectNodesHandler creates a new connect nodes handler
func NewConnectNodesHandler(registry *session.Registry, events ports.EventPublisher, logger *zap.Logger) *ConnectNodesHandler {
	return &ConnectNodesHandler{editorHandler: newEditorHandler(registry, events, logger)}
}

// Handle executes the connect nodes command
func (h *ConnectNodesHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.ConnectNodesCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	source, err := parseNodeID("source", c.Source)
	if err != nil {
		return nil, err
	}
	target, err := parseNodeID("target", c.Target)
	if err != nil {
		return nil, err
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	edge, err := editor.Connect(entities.Connection{
		Source:       source,
		SourceHandle: c.SourceHandle,
		Target:       target,
		TargetHandle: c.TargetHandle,
	})
	if err != nil {
		return nil, err
	}
	h.publish(ctx, editor)

	h.logger.Debug("Edge connected",
		zap.String("flowID", c.FlowID),
		zap.String("edgeID", edge.ID.String()),
		zap.String("source", c.Source),
		zap.String("target", c.Target),
	)
	return edge, nil
}

// RemoveEdgeHandler handles edge deletion
type RemoveEdgeHandler struct {
	editorHandler
}

// NewRemoveEdgeHandler creates a new remove edge handler
func NewRemoveEdgeHandler(registry *session.Registry, events ports.EventPublisher, logger *zap.Logger) *RemoveEdgeHandler {
	return &RemoveEdgeHandler{editorHandler: newEditorHandler(registry, events, logger)}
}

// Handle executes the remove edge command
func (h *RemoveEdgeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.RemoveEdgeCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	edgeID, err := valueobjects.NewEdgeIDFromString(c.EdgeID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid edge ID: %v", err))
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	if err := editor.RemoveEdge(edgeID); err != nil {
		return nil, err
	}
	h.publish(ctx, editor)

	return nil, nil
}
