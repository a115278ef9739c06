package commands

import (
	"flowbuilder/pkg/utils"
)

// CreateFlowCommand opens a new flow holding only the seed node
type CreateFlowCommand struct{}

// Validate validates the command
func (c CreateFlowCommand) Validate() error {
	return nil
}

// DeleteFlowCommand closes an open flow. With Purge the saved copy is
// removed from the repository as well, even when the flow is not open.
type DeleteFlowCommand struct {
	FlowID string `json:"flow_id" validate:"required"`
	Purge  bool   `json:"purge"`
}

// Validate validates the command
func (c DeleteFlowCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c DeleteFlowCommand) GetFlowID() string { return c.FlowID }

// SaveFlowCommand validates a flow and persists it
type SaveFlowCommand struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// Validate validates the command
func (c SaveFlowCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c SaveFlowCommand) GetFlowID() string { return c.FlowID }

// SaveFlowResult describes a completed save
type SaveFlowResult struct {
	FlowID    string `json:"flowId"`
	Version   int    `json:"version"`
	NodeCount int    `json:"nodeCount"`
	EdgeCount int    `json:"edgeCount"`
	SavedAt   string `json:"savedAt"`
	Message   string `json:"message"`
}

// LoadFlowCommand reopens a saved flow from the repository
type LoadFlowCommand struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// Validate validates the command
func (c LoadFlowCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c LoadFlowCommand) GetFlowID() string { return c.FlowID }

// DismissNoticeCommand clears the flow's notice
type DismissNoticeCommand struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// Validate validates the command
func (c DismissNoticeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// GetFlowID returns the target flow
func (c DismissNoticeCommand) GetFlowID() string { return c.FlowID }
