package commands

import (
	"flowbuilder/pkg/utils"
)

// AddNodeCommand drops a new node onto the canvas
type AddNodeCommand struct {
	FlowID string  `json:"flow_id" validate:"required"`
	Kind   string  `json:"kind" validate:"required,oneof=text-message textMessage"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Validate validates the command
func (c AddNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c AddNodeCommand) GetFlowID() string { return c.FlowID }

// DeleteNodeCommand removes a node and its incident edges
type DeleteNodeCommand struct {
	FlowID string `json:"flow_id" validate:"required"`
	NodeID string `json:"node_id" validate:"required"`
}

// Validate validates the command
func (c DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c DeleteNodeCommand) GetFlowID() string { return c.FlowID }

// DeleteNodeResult lists what a delete removed
type DeleteNodeResult struct {
	NodeID         string   `json:"nodeId"`
	RemovedEdgeIDs []string `json:"removedEdgeIds"`
}

// RelabelNodeCommand replaces a node's text
type RelabelNodeCommand struct {
	FlowID string `json:"flow_id" validate:"required"`
	NodeID string `json:"node_id" validate:"required"`
	Label  string `json:"label"`
}

// Validate validates the command
func (c RelabelNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c RelabelNodeCommand) GetFlowID() string { return c.FlowID }

// MoveNodeCommand records a node drag
type MoveNodeCommand struct {
	FlowID string  `json:"flow_id" validate:"required"`
	NodeID string  `json:"node_id" validate:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Validate validates the command
func (c MoveNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c MoveNodeCommand) GetFlowID() string { return c.FlowID }

// SelectNodeCommand selects a node. A nil NodeID clears the selection.
type SelectNodeCommand struct {
	FlowID string  `json:"flow_id" validate:"required"`
	NodeID *string `json:"node_id" validate:"omitempty,min=1"`
}

// Validate validates the command
func (c SelectNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c SelectNodeCommand) GetFlowID() string { return c.FlowID }
