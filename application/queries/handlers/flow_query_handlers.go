package handlers

import (
	"context"
	"fmt"

	"flowbuilder/application/queries"
	"flowbuilder/application/queries/bus"
	"flowbuilder/application/session"
	"flowbuilder/domain/core/validators"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
)

// FlowQueryHandler answers read-only questions about open flows
type FlowQueryHandler struct {
	registry *session.Registry
}

// NewFlowQueryHandler creates a new flow query handler
func NewFlowQueryHandler(registry *session.Registry) *FlowQueryHandler {
	return &FlowQueryHandler{registry: registry}
}

// Register registers the handler for every flow query on b
func (h *FlowQueryHandler) Register(b *bus.QueryBus) error {
	for _, q := range []bus.Query{
		&queries.GetFlowStateQuery{},
		&queries.GetNodeQuery{},
		&queries.ListFlowsQuery{},
		&queries.CheckFlowQuery{},
	} {
		if err := b.Register(q, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle executes a flow query
func (h *FlowQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case *queries.GetFlowStateQuery:
		editor, err := h.registry.Get(valueobjects.FlowID(q.FlowID))
		if err != nil {
			return nil, err
		}
		return editor.State(), nil

	case *queries.GetNodeQuery:
		editor, err := h.registry.Get(valueobjects.FlowID(q.FlowID))
		if err != nil {
			return nil, err
		}
		for _, node := range editor.State().Nodes {
			if node.ID.String() == q.NodeID {
				return node, nil
			}
		}
		return nil, pkgerrors.NewNotFound("node", q.NodeID)

	case *queries.ListFlowsQuery:
		ids := h.registry.IDs()
		result := &queries.ListFlowsResult{FlowIDs: make([]string, len(ids)), Count: len(ids)}
		for i, id := range ids {
			result.FlowIDs[i] = id.String()
		}
		return result, nil

	case *queries.CheckFlowQuery:
		editor, err := h.registry.Get(valueobjects.FlowID(q.FlowID))
		if err != nil {
			return nil, err
		}
		state := editor.State()

		open := validators.OpenTargets(state.Nodes, state.Edges)
		result := &queries.CheckFlowResult{Saveable: true, OpenTargets: make([]string, len(open))}
		for i, id := range open {
			result.OpenTargets[i] = id.String()
		}
		if err := validators.ValidateForSave(state.Nodes, state.Edges); err != nil {
			result.Saveable = false
			if rej := pkgerrors.GetRejection(err); rej != nil {
				result.Message = rej.Message
			}
		}
		return result, nil

	default:
		return nil, fmt.Errorf("invalid query type: %T", query)
	}
}
