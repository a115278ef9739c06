package commands

import (
	"flowbuilder/pkg/utils"
)

// ConnectNodesCommand requests an edge between two handles
type ConnectNodesCommand struct {
	FlowID       string `json:"flow_id" validate:"required"`
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"source_handle"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"target_handle"`
}

// Validate validates the command
func (c ConnectNodesCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c ConnectNodesCommand) GetFlowID() string { return c.FlowID }

// RemoveEdgeCommand deletes a single edge
type RemoveEdgeCommand struct {
	FlowID string `json:"flow_id" validate:"required"`
	EdgeID string `json:"edge_id" validate:"required"`
}

// Validate validates the command
func (c RemoveEdgeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c RemoveEdgeCommand) GetFlowID() string { return c.FlowID }
