package handlers

import (
	"context"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	"flowbuilder/application/ports"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
	"flowbuilder/pkg/utils"

	"go.uber.org/zap"
)

// CreateFlowHandler opens new flows
type CreateFlowHandler struct {
	registry *session.Registry
	gauge    OpenFlowsGauge
	logger   *zap.Logger
}

// NewCreateFlowHandler creates a new create flow handler
func NewCreateFlowHandler(registry *session.Registry, gauge OpenFlowsGauge, logger *zap.Logger) *CreateFlowHandler {
	return &CreateFlowHandler{registry: registry, gauge: gauge, logger: orNop(logger)}
}

// Handle executes the create flow command
func (h *CreateFlowHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	if _, ok := cmd.(*commands.CreateFlowCommand); !ok {
		return nil, invalidCommand(cmd)
	}

	editor, err := h.registry.Create()
	if err != nil {
		return nil, err
	}
	reportOpenFlows(h.gauge, h.registry)

	h.logger.Info("Flow created", zap.String("flowID", editor.FlowID().String()))
	return editor.State(), nil
}

// DeleteFlowHandler closes flows and purges saved copies
type DeleteFlowHandler struct {
	registry   *session.Registry
	repository ports.FlowRepository
	gauge      OpenFlowsGauge
	logger     *zap.Logger
}

// NewDeleteFlowHandler creates a new delete flow handler
func NewDeleteFlowHandler(registry *session.Registry, repository ports.FlowRepository, gauge OpenFlowsGauge, logger *zap.Logger) *DeleteFlowHandler {
	return &DeleteFlowHandler{registry: registry, repository: repository, gauge: gauge, logger: orNop(logger)}
}

// Handle executes the delete flow command
func (h *DeleteFlowHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.DeleteFlowCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}
	id := valueobjects.FlowID(c.FlowID)

	if c.Purge && h.repository == nil {
		return nil, pkgerrors.NewUnavailableError("flow repository")
	}

	if err := h.registry.Delete(id); err != nil {
		// A flow that is only saved can still be purged
		if !c.Purge || !pkgerrors.IsReason(err, pkgerrors.ReasonNotFound) {
			return nil, err
		}
	} else {
		reportOpenFlows(h.gauge, h.registry)
		h.logger.Info("Flow closed", zap.String("flowID", c.FlowID))
	}

	if c.Purge {
		if err := h.repository.Delete(ctx, id); err != nil {
			return nil, err
		}
		h.logger.Info("Saved flow purged", zap.String("flowID", c.FlowID))
	}

	return nil, nil
}

// LoadFlowHandler reopens saved flows
type LoadFlowHandler struct {
	registry   *session.Registry
	repository ports.FlowRepository
	gauge      OpenFlowsGauge
	logger     *zap.Logger
}

// NewLoadFlowHandler creates a new load flow handler
func NewLoadFlowHandler(registry *session.Registry, repository ports.FlowRepository, gauge OpenFlowsGauge, logger *zap.Logger) *LoadFlowHandler {
	return &LoadFlowHandler{registry: registry, repository: repository, gauge: gauge, logger: orNop(logger)}
}

// Handle executes the load flow command
func (h *LoadFlowHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.LoadFlowCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}
	if h.repository == nil {
		return nil, pkgerrors.NewUnavailableError("flow repository")
	}

	snapshot, err := h.repository.Load(ctx, valueobjects.FlowID(c.FlowID))
	if err != nil {
		return nil, err
	}

	editor, err := h.registry.Restore(snapshot)
	if err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		h.logger.Error("Saved flow failed integrity checks",
			zap.String("flowID", c.FlowID),
			zap.Error(err),
		)
		return nil, err
	}
	reportOpenFlows(h.gauge, h.registry)

	h.logger.Info("Flow loaded",
		zap.String("flowID", c.FlowID),
		zap.Int("nodeCount", len(snapshot.Nodes)),
		zap.Int("edgeCount", len(snapshot.Edges)),
	)
	return editor.State(), nil
}

// SaveFlowHandler validates and persists flows
type SaveFlowHandler struct {
	editorHandler
	repository ports.FlowRepository
}

// NewSaveFlowHandler creates a new save flow handler
func NewSaveFlowHandler(registry *session.Registry, repository ports.FlowRepository, events ports.EventPublisher, logger *zap.Logger) *SaveFlowHandler {
	return &SaveFlowHandler{
		editorHandler: newEditorHandler(registry, events, logger),
		repository:    repository,
	}
}

// Handle executes the save flow command
func (h *SaveFlowHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.SaveFlowCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	snapshot, err := editor.Save(ctx, h.repository)
	if err != nil {
		return nil, err
	}
	h.publish(ctx, editor)

	h.logger.Info("Flow saved",
		zap.String("flowID", c.FlowID),
		zap.Int("version", snapshot.Version),
		zap.Int("nodeCount", len(snapshot.Nodes)),
		zap.Int("edgeCount", len(snapshot.Edges)),
	)

	return &commands.SaveFlowResult{
		FlowID:    snapshot.FlowID.String(),
		Version:   snapshot.Version,
		NodeCount: len(snapshot.Nodes),
		EdgeCount: len(snapshot.Edges),
		SavedAt:   utils.FormatTimestamp(snapshot.SavedAt),
		Message:   session.SavedMessage,
	}, nil
}

// DismissNoticeHandler clears notices
type DismissNoticeHandler struct {
	editorHandler
}

// NewDismissNoticeHandler creates a new dismiss notice handler
func NewDismissNoticeHandler(registry *session.Registry, logger *zap.Logger) *DismissNoticeHandler {
	return &DismissNoticeHandler{editorHandler: newEditorHandler(registry, nil, logger)}
}

// Handle executes the dismiss notice command
func (h *DismissNoticeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(*commands.DismissNoticeCommand)
	if !ok {
		return nil, invalidCommand(cmd)
	}

	editor, err := h.editor(c.FlowID)
	if err != nil {
		return nil, err
	}

	editor.DismissNotice()
	return nil, nil
}

func reportOpenFlows(gauge OpenFlowsGauge, registry *session.Registry) {
	if gauge != nil {
		gauge.SetOpenFlows(registry.Len())
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
