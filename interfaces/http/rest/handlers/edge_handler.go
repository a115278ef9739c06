package handlers

import (
	"net/http"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	pkgerrors "flowbuilder/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	base
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(commandBus *bus.CommandBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{base: newBase(commandBus, nil, errorHandler, logger)}
}

// ConnectRequest represents a drag-connect between two handles
type ConnectRequest struct {
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Connect handles POST /flows/{flowID}/edges
func (h *EdgeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := h.decode(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.send(w, r, &commands.ConnectNodesCommand{
		FlowID:       flowID(r),
		Source:       req.Source,
		SourceHandle: req.SourceHandle,
		Target:       req.Target,
		TargetHandle: req.TargetHandle,
	}, http.StatusCreated)
}

// RemoveEdge handles DELETE /flows/{flowID}/edges/{edgeID}
func (h *EdgeHandler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, &commands.RemoveEdgeCommand{
		FlowID: flowID(r),
		EdgeID: chi.URLParam(r, "edgeID"),
	}, http.StatusNoContent)
}
