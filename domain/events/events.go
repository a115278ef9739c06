package events

import (
	"time"

	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
)

// SourceFlowBuilder is the event source name used by external publishers
const SourceFlowBuilder = "flowbuilder.editor"

// Event types
const (
	TypeNodeAdded     = "flow.node_added"
	TypeNodeMoved     = "flow.node_moved"
	TypeNodeRelabeled = "flow.node_relabeled"
	TypeNodeRemoved   = "flow.node_removed"
	TypeEdgeConnected = "flow.edge_connected"
	TypeEdgeRemoved   = "flow.edge_removed"
	TypeFlowSaved     = "flow.saved"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(flowID valueobjects.FlowID, eventType string, version int, at time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: flowID.String(),
		EventType:   eventType,
		Timestamp:   at,
		Version:     version,
	}
}

// Node Events

// NodeAdded is raised when a node is dropped onto the canvas
type NodeAdded struct {
	BaseEvent
	Node entities.NodeSnapshot `json:"node"`
}

// NewNodeAdded creates a NodeAdded event
func NewNodeAdded(flowID valueobjects.FlowID, version int, node entities.NodeSnapshot, at time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent: newBase(flowID, TypeNodeAdded, version, at),
		Node:      node,
	}
}

// NodeMoved is raised when a node is dragged to a new position
type NodeMoved struct {
	BaseEvent
	NodeID      valueobjects.NodeID   `json:"node_id"`
	OldPosition valueobjects.Position `json:"old_position"`
	NewPosition valueobjects.Position `json:"new_position"`
}

// NewNodeMoved creates a NodeMoved event
func NewNodeMoved(flowID valueobjects.FlowID, version int, nodeID valueobjects.NodeID, oldPos, newPos valueobjects.Position, at time.Time) NodeMoved {
	return NodeMoved{
		BaseEvent:   newBase(flowID, TypeNodeMoved, version, at),
		NodeID:      nodeID,
		OldPosition: oldPos,
		NewPosition: newPos,
	}
}

// NodeRelabeled is raised when a node's text changes
type NodeRelabeled struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	OldLabel string              `json:"old_label"`
	NewLabel string              `json:"new_label"`
}

// NewNodeRelabeled creates a NodeRelabeled event
func NewNodeRelabeled(flowID valueobjects.FlowID, version int, nodeID valueobjects.NodeID, oldLabel, newLabel string, at time.Time) NodeRelabeled {
	return NodeRelabeled{
		BaseEvent: newBase(flowID, TypeNodeRelabeled, version, at),
		NodeID:    nodeID,
		OldLabel:  oldLabel,
		NewLabel:  newLabel,
	}
}

// NodeRemoved is raised when a node is deleted together with its edges
type NodeRemoved struct {
	BaseEvent
	NodeID         valueobjects.NodeID   `json:"node_id"`
	RemovedEdgeIDs []valueobjects.EdgeID `json:"removed_edge_ids"`
}

// NewNodeRemoved creates a NodeRemoved event
func NewNodeRemoved(flowID valueobjects.FlowID, version int, nodeID valueobjects.NodeID, removed []valueobjects.EdgeID, at time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent:      newBase(flowID, TypeNodeRemoved, version, at),
		NodeID:         nodeID,
		RemovedEdgeIDs: removed,
	}
}

// Edge Events

// EdgeConnected is raised when a connection is accepted
type EdgeConnected struct {
	BaseEvent
	Edge entities.Edge `json:"edge"`
}

// NewEdgeConnected creates an EdgeConnected event
func NewEdgeConnected(flowID valueobjects.FlowID, version int, edge entities.Edge, at time.Time) EdgeConnected {
	return EdgeConnected{
		BaseEvent: newBase(flowID, TypeEdgeConnected, version, at),
		Edge:      edge,
	}
}

// EdgeRemoved is raised when an edge is removed directly
type EdgeRemoved struct {
	BaseEvent
	EdgeID valueobjects.EdgeID `json:"edge_id"`
}

// NewEdgeRemoved creates an EdgeRemoved event
func NewEdgeRemoved(flowID valueobjects.FlowID, version int, edgeID valueobjects.EdgeID, at time.Time) EdgeRemoved {
	return EdgeRemoved{
		BaseEvent: newBase(flowID, TypeEdgeRemoved, version, at),
		EdgeID:    edgeID,
	}
}

// Flow Events

// FlowSaved is raised after a flow passed save validation and was persisted
type FlowSaved struct {
	BaseEvent
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// NewFlowSaved creates a FlowSaved event
func NewFlowSaved(flowID valueobjects.FlowID, version, nodeCount, edgeCount int, at time.Time) FlowSaved {
	return FlowSaved{
		BaseEvent: newBase(flowID, TypeFlowSaved, version, at),
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}
