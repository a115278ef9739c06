package queries

import (
	"flowbuilder/pkg/utils"
)

// GetFlowStateQuery returns everything the canvas renders for a flow
type GetFlowStateQuery struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// Validate validates the query
func (q GetFlowStateQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetNodeQuery returns one node of a flow
type GetNodeQuery struct {
	FlowID string `json:"flow_id" validate:"required"`
	NodeID string `json:"node_id" validate:"required"`
}

// Validate validates the query
func (q GetNodeQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListFlowsQuery lists the open flows
type ListFlowsQuery struct{}

// Validate validates the query
func (q ListFlowsQuery) Validate() error {
	return nil
}

// ListFlowsResult is the result of ListFlowsQuery
type ListFlowsResult struct {
	FlowIDs []string `json:"flowIds"`
	Count   int      `json:"count"`
}

// CheckFlowQuery runs the save-time check without saving
type CheckFlowQuery struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// Validate validates the query
func (q CheckFlowQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// CheckFlowResult reports whether a flow could be saved as it stands
type CheckFlowResult struct {
	Saveable    bool     `json:"saveable"`
	OpenTargets []string `json:"openTargets"`
	Message     string   `json:"message,omitempty"`
}
