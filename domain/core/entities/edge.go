package entities

import (
	"flowbuilder/domain/core/valueobjects"
)

// Edge is a directed connection from one node's output handle to another
// node's input handle. An empty handle means the node's default handle.
type Edge struct {
	ID           valueobjects.EdgeID `json:"id"`
	Source       valueobjects.NodeID `json:"source"`
	SourceHandle string              `json:"sourceHandle,omitempty"`
	Target       valueobjects.NodeID `json:"target"`
	TargetHandle string              `json:"targetHandle,omitempty"`
}

// Connection is a request to connect two handles, as produced by a
// drag-connect gesture on the canvas
type Connection struct {
	Source       valueobjects.NodeID `json:"source"`
	SourceHandle string              `json:"sourceHandle,omitempty"`
	Target       valueobjects.NodeID `json:"target"`
	TargetHandle string              `json:"targetHandle,omitempty"`
}

// NewEdge builds an edge for an accepted connection
func NewEdge(id valueobjects.EdgeID, conn Connection) Edge {
	return Edge{
		ID:           id,
		Source:       conn.Source,
		SourceHandle: conn.SourceHandle,
		Target:       conn.Target,
		TargetHandle: conn.TargetHandle,
	}
}

// Touches reports whether the edge is incident to the node
func (e Edge) Touches(nodeID valueobjects.NodeID) bool {
	return e.Source.Equals(nodeID) || e.Target.Equals(nodeID)
}

// SharesOutput reports whether the edge leaves the same output handle as conn
func (e Edge) SharesOutput(conn Connection) bool {
	return e.Source.Equals(conn.Source) && e.SourceHandle == conn.SourceHandle
}
