package handlers

import (
	"net/http"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	"flowbuilder/application/queries"
	querybus "flowbuilder/application/queries/bus"
	"flowbuilder/domain/core/entities"
	pkgerrors "flowbuilder/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	base
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{base: newBase(commandBus, queryBus, errorHandler, logger)}
}

// AddNodeRequest represents the request body for dropping a node
type AddNodeRequest struct {
	Kind string  `json:"kind,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// RelabelRequest represents the request body for editing a node's text.
// An empty label is allowed.
type RelabelRequest struct {
	Label *string `json:"label" validate:"required"`
}

// MoveRequest represents the request body for a node drag
type MoveRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// AddNode handles POST /flows/{flowID}/nodes
func (h *NodeHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if err := h.decode(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if req.Kind == "" {
		req.Kind = string(entities.NodeKindTextMessage)
	}

	h.send(w, r, &commands.AddNodeCommand{
		FlowID: flowID(r),
		Kind:   req.Kind,
		X:      req.X,
		Y:      req.Y,
	}, http.StatusCreated)
}

// GetNode handles GET /flows/{flowID}/nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, &queries.GetNodeQuery{FlowID: flowID(r), NodeID: chi.URLParam(r, "nodeID")})
}

// RelabelNode handles PUT /flows/{flowID}/nodes/{nodeID}/label
func (h *NodeHandler) RelabelNode(w http.ResponseWriter, r *http.Request) {
	var req RelabelRequest
	if err := h.decode(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.send(w, r, &commands.RelabelNodeCommand{
		FlowID: flowID(r),
		NodeID: chi.URLParam(r, "nodeID"),
		Label:  *req.Label,
	}, http.StatusOK)
}

// MoveNode handles PUT /flows/{flowID}/nodes/{nodeID}/position
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := h.decode(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.send(w, r, &commands.MoveNodeCommand{
		FlowID: flowID(r),
		NodeID: chi.URLParam(r, "nodeID"),
		X:      *req.X,
		Y:      *req.Y,
	}, http.StatusOK)
}

// DeleteNode handles DELETE /flows/{flowID}/nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, &commands.DeleteNodeCommand{
		FlowID: flowID(r),
		NodeID: chi.URLParam(r, "nodeID"),
	}, http.StatusOK)
}
