package handlers

import (
	"net/http"
	"strconv"

	"flowbuilder/application/commands"
	"flowbuilder/application/commands/bus"
	"flowbuilder/application/queries"
	querybus "flowbuilder/application/queries/bus"
	pkgerrors "flowbuilder/pkg/errors"

	"go.uber.org/zap"
)

// FlowHandler handles flow-level HTTP requests
type FlowHandler struct {
	base
}

// NewFlowHandler creates a new flow handler
func NewFlowHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *FlowHandler {
	return &FlowHandler{base: newBase(commandBus, queryBus, errorHandler, logger)}
}

// SelectionRequest is the body of PUT /flows/{flowID}/selection. A null
// nodeId clears the selection.
type SelectionRequest struct {
	NodeID *string `json:"nodeId" validate:"omitempty,min=1"`
}

// CreateFlow handles POST /flows
func (h *FlowHandler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, &commands.CreateFlowCommand{}, http.StatusCreated)
}

// ListFlows handles GET /flows
func (h *FlowHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, &queries.ListFlowsQuery{})
}

// GetFlow handles GET /flows/{flowID}
func (h *FlowHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, &queries.GetFlowStateQuery{FlowID: flowID(r)})
}

// CheckFlow handles GET /flows/{flowID}/check
func (h *FlowHandler) CheckFlow(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, &queries.CheckFlowQuery{FlowID: flowID(r)})
}

// DeleteFlow handles DELETE /flows/{flowID}?purge=true
func (h *FlowHandler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	purge := false
	if raw := r.URL.Query().Get("purge"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("purge must be a boolean"))
			return
		}
		purge = parsed
	}
	h.send(w, r, &commands.DeleteFlowCommand{FlowID: flowID(r), Purge: purge}, http.StatusNoContent)
}

// LoadFlow handles POST /flows/{flowID}/load
func (h *FlowHandler) LoadFlow(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, &commands.LoadFlowCommand{FlowID: flowID(r)}, http.StatusOK)
}

// SaveFlow handles POST /flows/{flowID}/save
func (h *FlowHandler) SaveFlow(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, &commands.SaveFlowCommand{FlowID: flowID(r)}, http.StatusOK)
}

// Select handles PUT /flows/{flowID}/selection
func (h *FlowHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := h.decode(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, &commands.SelectNodeCommand{FlowID: flowID(r), NodeID: req.NodeID}, http.StatusOK)
}

// DismissNotice handles DELETE /flows/{flowID}/notice
func (h *FlowHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, &commands.DismissNoticeCommand{FlowID: flowID(r)}, http.StatusNoContent)
}
