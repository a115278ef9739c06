package handlers

import (
	"encoding/json"
	"net/http"

	"flowbuilder/application/commands/bus"
	querybus "flowbuilder/application/queries/bus"
	pkgerrors "flowbuilder/pkg/errors"
	"flowbuilder/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// base carries what every flow-scoped handler needs
type base struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func newBase(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) base {
	return base{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// decode reads a JSON body into dst and validates it
func (h base) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return pkgerrors.NewValidationError("Invalid request body: " + err.Error())
	}
	return utils.ValidateStruct(dst)
}

// send dispatches a command and writes its result with the given status.
// A nil result is written as 204 No Content.
func (h base) send(w http.ResponseWriter, r *http.Request, cmd bus.Command, status int) {
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respondJSON(w, status, result)
}

// ask dispatches a query and writes its result
func (h base) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func flowID(r *http.Request) string {
	return chi.URLParam(r, "flowID")
}
