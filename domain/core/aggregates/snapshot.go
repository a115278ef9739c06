package aggregates

import (
	"fmt"
	"time"

	"flowbuilder/domain/config"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/validators"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
)

// FlowSnapshot is a point-in-time copy of a flow's graph, as handed to
// repositories on save
type FlowSnapshot struct {
	FlowID    valueobjects.FlowID     `json:"flowId"`
	Version   int                     `json:"version"`
	Nodes     []entities.NodeSnapshot `json:"nodes"`
	Edges     []entities.Edge         `json:"edges"`
	CreatedAt time.Time               `json:"createdAt"`
	SavedAt   time.Time               `json:"savedAt"`
}

// Snapshot copies the flow's current graph
func (f *Flow) Snapshot() FlowSnapshot {
	return FlowSnapshot{
		FlowID:    f.id,
		Version:   f.version,
		Nodes:     f.Nodes(),
		Edges:     f.Edges(),
		CreatedAt: f.createdAt,
	}
}

// ReconstructFlow rebuilds a flow from a saved snapshot. Node and edge ids
// are kept. Every edge goes through the connection rules again and the
// rebuilt graph must pass Validate, so a snapshot that violates either is
// refused.
func ReconstructFlow(snapshot FlowSnapshot, cfg *config.DomainConfig) (*Flow, error) {
	flow, err := NewEmptyFlow(snapshot.FlowID, cfg)
	if err != nil {
		return nil, err
	}

	for _, n := range snapshot.Nodes {
		label, err := valueobjects.NewLabelWithConfig(n.Label, flow.cfg)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		position, err := valueobjects.NewPosition(n.Position.X, n.Position.Y)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		node, err := entities.NewNode(n.ID, n.Kind, position, label)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		if err := flow.AddNode(node); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}

	connections := validators.NewConnectionValidator()
	for _, edge := range snapshot.Edges {
		conn := entities.Connection{
			Source:       edge.Source,
			SourceHandle: edge.SourceHandle,
			Target:       edge.Target,
			TargetHandle: edge.TargetHandle,
		}
		if err := connections.Check(flow.Edges(), conn); err != nil {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("saved edge %s is invalid", edge.ID)).WithCause(err)
		}
		if err := flow.AddEdge(edge); err != nil {
			return nil, fmt.Errorf("edge %s: %w", edge.ID, err)
		}
	}

	if err := flow.Validate(); err != nil {
		return nil, pkgerrors.NewValidationError("saved flow is inconsistent").WithCause(err)
	}

	flow.MarkEventsAsCommitted()
	if !snapshot.CreatedAt.IsZero() {
		flow.createdAt = snapshot.CreatedAt
	}
	flow.version = snapshot.Version

	return flow, nil
}
