package aggregates

import (
	"fmt"
	"time"

	"flowbuilder/domain/config"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	"flowbuilder/domain/events"
	pkgerrors "flowbuilder/pkg/errors"
)

// Flow is the aggregate root for one message flow. It owns the node and
// edge collections and is the only place they are mutated.
//
// Flow enforces referential integrity (edges only reference present nodes,
// deletes cascade) and id uniqueness for its whole lifetime. Connection
// rules are checked by validators.ConnectionValidator before AddEdge.
type Flow struct {
	id  valueobjects.FlowID
	cfg *config.DomainConfig

	nodes     map[valueobjects.NodeID]*entities.Node
	nodeOrder []valueobjects.NodeID
	edges     map[valueobjects.EdgeID]entities.Edge
	edgeOrder []valueobjects.EdgeID

	// every id ever admitted, including removed ones
	seenNodeIDs map[valueobjects.NodeID]struct{}
	seenEdgeIDs map[valueobjects.EdgeID]struct{}

	createdAt time.Time
	updatedAt time.Time
	version   int
	events    []events.DomainEvent
}

// NewFlow creates a flow holding the configured seed node
func NewFlow(id valueobjects.FlowID, cfg *config.DomainConfig) (*Flow, error) {
	flow, err := NewEmptyFlow(id, cfg)
	if err != nil {
		return nil, err
	}

	seed, err := flow.seedNode()
	if err != nil {
		return nil, err
	}
	if err := flow.AddNode(seed); err != nil {
		return nil, err
	}

	// the seed is part of the initial state, not a user action
	flow.MarkEventsAsCommitted()
	flow.version = 1

	return flow, nil
}

// NewEmptyFlow creates a flow without any node. Used when restoring a
// saved flow.
func NewEmptyFlow(id valueobjects.FlowID, cfg *config.DomainConfig) (*Flow, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("flow ID cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	now := time.Now()
	return &Flow{
		id:          id,
		cfg:         cfg,
		nodes:       make(map[valueobjects.NodeID]*entities.Node),
		edges:       make(map[valueobjects.EdgeID]entities.Edge),
		seenNodeIDs: make(map[valueobjects.NodeID]struct{}),
		seenEdgeIDs: make(map[valueobjects.EdgeID]struct{}),
		createdAt:   now,
		updatedAt:   now,
		version:     0,
		events:      []events.DomainEvent{},
	}, nil
}

// ID returns the flow's unique identifier
func (f *Flow) ID() valueobjects.FlowID {
	return f.id
}

// Config returns the rules the flow was created with
func (f *Flow) Config() *config.DomainConfig {
	return f.cfg
}

// Version returns the number of committed mutations
func (f *Flow) Version() int {
	return f.version
}

// CreatedAt returns when the flow was created
func (f *Flow) CreatedAt() time.Time {
	return f.createdAt
}

// UpdatedAt returns when the flow was last mutated
func (f *Flow) UpdatedAt() time.Time {
	return f.updatedAt
}

// NodeCount returns the number of nodes
func (f *Flow) NodeCount() int {
	return len(f.nodes)
}

// EdgeCount returns the number of edges
func (f *Flow) EdgeCount() int {
	return len(f.edges)
}

// HasNode checks if a node exists in the flow
func (f *Flow) HasNode(nodeID valueobjects.NodeID) bool {
	_, exists := f.nodes[nodeID]
	return exists
}

// Node returns a snapshot of one node
func (f *Flow) Node(nodeID valueobjects.NodeID) (entities.NodeSnapshot, bool) {
	node, exists := f.nodes[nodeID]
	if !exists {
		return entities.NodeSnapshot{}, false
	}
	return node.Snapshot(), true
}

// Nodes returns snapshots of all nodes in insertion order
func (f *Flow) Nodes() []entities.NodeSnapshot {
	nodes := make([]entities.NodeSnapshot, 0, len(f.nodeOrder))
	for _, id := range f.nodeOrder {
		nodes = append(nodes, f.nodes[id].Snapshot())
	}
	return nodes
}

// Edges returns all edges in insertion order
func (f *Flow) Edges() []entities.Edge {
	edges := make([]entities.Edge, 0, len(f.edgeOrder))
	for _, id := range f.edgeOrder {
		edges = append(edges, f.edges[id])
	}
	return edges
}

// AddNode adds a node to the flow
func (f *Flow) AddNode(node *entities.Node) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}

	nodeID := node.ID()
	if _, seen := f.seenNodeIDs[nodeID]; seen {
		return pkgerrors.NewConflictError(fmt.Sprintf("node ID %s already used in this flow", nodeID))
	}

	if len(f.nodes) >= f.cfg.MaxNodesPerFlow {
		return pkgerrors.NewValidationError(fmt.Sprintf("maximum nodes reached: %d", f.cfg.MaxNodesPerFlow))
	}

	f.nodes[nodeID] = node
	f.nodeOrder = append(f.nodeOrder, nodeID)
	f.seenNodeIDs[nodeID] = struct{}{}
	f.touch()

	f.addEvent(events.NewNodeAdded(f.id, f.version, node.Snapshot(), f.updatedAt))

	return nil
}

// RemoveNode removes a node and every edge whose source or target is the
// node. Returns the ids of the removed edges.
func (f *Flow) RemoveNode(nodeID valueobjects.NodeID) ([]valueobjects.EdgeID, error) {
	if _, exists := f.nodes[nodeID]; !exists {
		return nil, pkgerrors.NewNotFound("node", nodeID.String())
	}

	removed := []valueobjects.EdgeID{}
	keptOrder := make([]valueobjects.EdgeID, 0, len(f.edgeOrder))
	for _, edgeID := range f.edgeOrder {
		if f.edges[edgeID].Touches(nodeID) {
			removed = append(removed, edgeID)
			delete(f.edges, edgeID)
			continue
		}
		keptOrder = append(keptOrder, edgeID)
	}
	f.edgeOrder = keptOrder

	delete(f.nodes, nodeID)
	f.nodeOrder = removeID(f.nodeOrder, nodeID)
	f.touch()

	f.addEvent(events.NewNodeRemoved(f.id, f.version, nodeID, removed, f.updatedAt))

	return removed, nil
}

// RelabelNode replaces a node's label text
func (f *Flow) RelabelNode(nodeID valueobjects.NodeID, text string) (entities.NodeSnapshot, error) {
	node, exists := f.nodes[nodeID]
	if !exists {
		return entities.NodeSnapshot{}, pkgerrors.NewNotFound("node", nodeID.String())
	}

	label, err := valueobjects.NewLabelWithConfig(text, f.cfg)
	if err != nil {
		return entities.NodeSnapshot{}, err
	}

	oldLabel := node.Label().Text()
	if node.Relabel(label) {
		f.touch()
		f.addEvent(events.NewNodeRelabeled(f.id, f.version, nodeID, oldLabel, label.Text(), f.updatedAt))
	}

	return node.Snapshot(), nil
}

// MoveNode changes a node's canvas position
func (f *Flow) MoveNode(nodeID valueobjects.NodeID, position valueobjects.Position) (entities.NodeSnapshot, error) {
	node, exists := f.nodes[nodeID]
	if !exists {
		return entities.NodeSnapshot{}, pkgerrors.NewNotFound("node", nodeID.String())
	}

	oldPosition := node.Position()
	if node.MoveTo(position) {
		f.touch()
		f.addEvent(events.NewNodeMoved(f.id, f.version, nodeID, oldPosition, position, f.updatedAt))
	}

	return node.Snapshot(), nil
}

// AddEdge commits an edge that already passed connection validation
func (f *Flow) AddEdge(edge entities.Edge) error {
	if edge.ID.IsZero() {
		return pkgerrors.NewValidationError("edge ID cannot be empty")
	}
	if _, seen := f.seenEdgeIDs[edge.ID]; seen {
		return pkgerrors.NewConflictError(fmt.Sprintf("edge ID %s already used in this flow", edge.ID))
	}
	if !f.HasNode(edge.Source) {
		return pkgerrors.NewNotFound("node", edge.Source.String())
	}
	if !f.HasNode(edge.Target) {
		return pkgerrors.NewNotFound("node", edge.Target.String())
	}
	if len(f.edges) >= f.cfg.MaxEdgesPerFlow {
		return pkgerrors.NewValidationError(fmt.Sprintf("maximum edges reached: %d", f.cfg.MaxEdgesPerFlow))
	}

	f.edges[edge.ID] = edge
	f.edgeOrder = append(f.edgeOrder, edge.ID)
	f.seenEdgeIDs[edge.ID] = struct{}{}
	f.touch()

	f.addEvent(events.NewEdgeConnected(f.id, f.version, edge, f.updatedAt))

	return nil
}

// RemoveEdge removes a single edge
func (f *Flow) RemoveEdge(edgeID valueobjects.EdgeID) error {
	if _, exists := f.edges[edgeID]; !exists {
		return pkgerrors.NewNotFound("edge", edgeID.String())
	}

	delete(f.edges, edgeID)
	f.edgeOrder = removeID(f.edgeOrder, edgeID)
	f.touch()

	f.addEvent(events.NewEdgeRemoved(f.id, f.version, edgeID, f.updatedAt))

	return nil
}

// Validate checks the structural invariants of the flow: no dangling
// edge endpoints, no self-loops and at most one edge per output handle.
// Acyclicity is owned by the connection validator.
func (f *Flow) Validate() error {
	if len(f.nodeOrder) != len(f.nodes) {
		return fmt.Errorf("node index mismatch: %d ordered, %d stored", len(f.nodeOrder), len(f.nodes))
	}
	if len(f.edgeOrder) != len(f.edges) {
		return fmt.Errorf("edge index mismatch: %d ordered, %d stored", len(f.edgeOrder), len(f.edges))
	}

	outputs := make(map[string]valueobjects.EdgeID, len(f.edges))
	for _, id := range f.edgeOrder {
		edge := f.edges[id]
		if !f.HasNode(edge.Source) {
			return fmt.Errorf("edge %s references non-existent source node %s", id, edge.Source)
		}
		if !f.HasNode(edge.Target) {
			return fmt.Errorf("edge %s references non-existent target node %s", id, edge.Target)
		}
		if edge.Source.Equals(edge.Target) {
			return fmt.Errorf("edge %s is a self-loop on node %s", id, edge.Source)
		}
		key := edge.Source.String() + "#" + edge.SourceHandle
		if other, dup := outputs[key]; dup {
			return fmt.Errorf("edges %s and %s share output handle %q of node %s", other, id, edge.SourceHandle, edge.Source)
		}
		outputs[key] = id
	}

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (f *Flow) GetUncommittedEvents() []events.DomainEvent {
	allEvents := make([]events.DomainEvent, len(f.events))
	copy(allEvents, f.events)
	return allEvents
}

// MarkEventsAsCommitted clears all uncommitted events
func (f *Flow) MarkEventsAsCommitted() {
	f.events = []events.DomainEvent{}
}

// RecordSaved records that snapshot was persisted. The flow may have moved
// on since the snapshot was taken.
func (f *Flow) RecordSaved(snapshot FlowSnapshot) {
	f.addEvent(events.NewFlowSaved(f.id, snapshot.Version, len(snapshot.Nodes), len(snapshot.Edges), snapshot.SavedAt))
}

// Private helper methods

func (f *Flow) seedNode() (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(f.cfg.SeedNodeID)
	if err != nil {
		return nil, err
	}
	position, err := valueobjects.NewPosition(f.cfg.SeedNodeX, f.cfg.SeedNodeY)
	if err != nil {
		return nil, err
	}
	label, err := valueobjects.NewLabelWithConfig(f.cfg.SeedNodeLabel, f.cfg)
	if err != nil {
		return nil, err
	}
	return entities.NewTextMessageNode(id, position, label)
}

func (f *Flow) touch() {
	f.updatedAt = time.Now()
	f.version++
}

func (f *Flow) addEvent(event events.DomainEvent) {
	f.events = append(f.events, event)
}

func removeID[T comparable](ids []T, target T) []T {
	for i, id := range ids {
		if id == target {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
