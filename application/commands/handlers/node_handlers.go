package handlers

import (
	"context"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	"flowbuilder/application/ports"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"

	"go.uber.org/zap"
)

// AddNodeHandler handles node drops
type AddNodeHandler struct {
	editorHandler
}

// NewAddNodeHandler creates a new add node handler
func NewAddNodeHandler(registry *session.Registry, events ports.EventPublisher, logger *zap.Logger) *AddNodeHandler {
	return &AddNodeHandler{editorHandler: newEditorHandler(registry, events, logger)}
}

// Handle executes the add node command
func (h *AddNodeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.AddNodeCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	kind, err := entities.ParseNodeKind(c.Kind)
	if err != nil {
		return nil, err
	}
	position, err := valueobjects.NewPosition(c.X, c.Y)
	if err != nil {
		return nil, err
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	node, err := editor.AddNode(kind, position)
	if err != nil {
		return nil, err
	}
	h.publish(ctx, editor)

	h.logger.Debug("Node added",
		zap.String("flowID", c.FlowID),
		zap.String("nodeID", node.ID.String()),
	)
	return node, nil
}

// DeleteNodeHandler handles node deletion commands
type DeleteNodeHandler struct {
	editorHandler
}

// NewDeleteNodeHandler creates a new delete node handler
func NewDeleteNodeHandler(registry *session.Registry, events ports.EventPublisher, logger *zap.Logger) *DeleteNodeHandler {
	return &DeleteNodeHandler{editorHandler: newEditorHandler(registry, events, logger)}
}

// Handle executes the delete node command
func (h *DeleteNodeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.DeleteNodeCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	nodeID, err := parseNodeID("node ID", c.NodeID)
	if err != nil {
		return nil, err
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	removed, err := editor.DeleteNode(nodeID)
	if err != nil {
		return nil, err
	}
	h.publish(ctx, editor)

	result := &commands.DeleteNodeResult{
		NodeID:         nodeID.String(),
		RemovedEdgeIDs: make([]string, len(removed)),
	}
	for i, id := range removed {
		result.RemovedEdgeIDs[i] = id.String()
	}

	h.logger.Debug("Node deleted",
		zap.String("flowID", c.FlowID),
		zap.String("nodeID", c.NodeID),
		zap.Int("edgesRemoved", len(removed)),
	)
	return result, nil
}

// RelabelNodeHandler handles text edits from the settings panel
type RelabelNodeHandler struct {
	editorHandler
}

// NewRelabelNodeHandler creates a new relabel node handler
func NewRelabelNodeHandler(registry *session.Registry, events ports.EventPublisher, logger *zap.Logger) *RelabelNodeHandler {
	return &RelabelNodeHandler{editorHandler: newEditorHandler(registry, events, logger)}
}

// Handle executes the relabel node command
func (h *RelabelNodeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.RelabelNodeCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	nodeID, err := parseNodeID("node ID", c.NodeID)
	if err != nil {
		return nil, err
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	node, err := editor.RelabelNode(nodeID, c.Label)
	if err != nil {
		return nil, err
	}
	h.publish(ctx, editor)

	return node, nil
}

// MoveNodeHandler handles node drags
type MoveNodeHandler struct {
	editorHandler
}

// NewMoveNodeHandler creates a new move node handler
func NewMoveNodeHandler(registry *session.Registry, events ports.EventPublisher, logger *zap.Logger) *MoveNodeHandler {
	return &MoveNodeHandler{editorHandler: newEditorHandler(registry, events, logger)}
}

// Handle executes the move node command
func (h *MoveNodeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.MoveNodeCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	nodeID, err := parseNodeID("node ID", c.NodeID)
	if err != nil {
		return nil, err
	}
	position, err := valueobjects.NewPosition(c.X, c.Y)
	if err != nil {
		return nil, err
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	node, err := editor.MoveNode(nodeID, position)
	if err != nil {
		return nil, err
	}
	h.publish(ctx, editor)

	return node, nil
}

// SelectNodeHandler handles node clicks and pane clicks
type SelectNodeHandler struct {
	editorHandler
}

// NewSelectNodeHandler creates a new select node handler
func NewSelectNodeHandler(registry *session.Registry, logger *zap.Logger) *SelectNodeHandler {
	return &SelectNodeHandler{editorHandler: newEditorHandler(registry, nil, logger)}
}

// Handle executes the select node command
func (h *SelectNodeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.SelectNodeCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	var nodeID *valueobjects.NodeID
	if c.NodeID != nil {
		id, err := parseNodeID("node ID", *c.NodeID)
		if err != nil {
			return nil, err
		}
		nodeID = &id
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	if err := editor.Select(nodeID); err != nil {
		return nil, err
	}
	return editor.State(), nil
}
