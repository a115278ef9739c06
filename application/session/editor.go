package session

import (
	"context"
	"sync"
	"time"

	"flowbuilder/application/ports"
	"flowbuilder/domain/core/aggregates"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/validators"
	"flowbuilder/domain/core/valueobjects"
	"flowbuilder/domain/events"
	pkgerrors "flowbuilder/pkg/errors"
)

// NoticeKind tells the canvas how to render a notice
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice messages that are not rejections
const (
	SavedMessage      = "Flow saved successfully!"
	SaveFailedMessage = "Error: Failed to save flow."
)

// Notice is the transient banner shown above the canvas
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// State is what the canvas renders
type State struct {
	FlowID         valueobjects.FlowID     `json:"flowId"`
	Version        int                     `json:"version"`
	Nodes          []entities.NodeSnapshot `json:"nodes"`
	Edges          []entities.Edge         `json:"edges"`
	SelectedNodeID *valueobjects.NodeID    `json:"selectedNodeId"`
	SelectedNode   *entities.NodeSnapshot  `json:"selectedNode"`
	Notice         *Notice                 `json:"notice"`
}

// Editor applies user actions to one flow. Every exported method is one
// atomic transition: it either commits fully or leaves the flow untouched
// and reports why through the returned error and the notice. Saves are
// serialized among themselves but do not block edits while persisting.
type Editor struct {
	mu          sync.Mutex
	saveMu      sync.Mutex
	flow        *aggregates.Flow
	connections *validators.ConnectionValidator
	selected    *entities.NodeSnapshot
	notice      *Notice
	now         func() time.Time
}

// NewEditor creates an editor over flow
func NewEditor(flow *aggregates.Flow, connections *validators.ConnectionValidator) *Editor {
	if connections == nil {
		connections = validators.NewConnectionValidator()
	}
	return &Editor{
		flow:        flow,
		connections: connections,
		now:         time.Now,
	}
}

// FlowID returns the id of the edited flow
func (e *Editor) FlowID() valueobjects.FlowID {
	return e.flow.ID()
}

// AddNode places a new node with the default label at position
func (e *Editor) AddNode(kind entities.NodeKind, position valueobjects.Position) (entities.NodeSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.flow.Config()
	label, err := valueobjects.NewLabelWithConfig(cfg.DefaultNodeLabel, cfg)
	if err != nil {
		return entities.NodeSnapshot{}, err
	}

	node, err := entities.NewNode(valueobjects.NewNodeID(), kind, position, label)
	if err != nil {
		return entities.NodeSnapshot{}, err
	}

	if err := e.flow.AddNode(node); err != nil {
		return entities.NodeSnapshot{}, e.reject(err)
	}

	e.notice = nil
	return node.Snapshot(), nil
}

// Connect admits conn as a new edge if it passes the connection rules
func (e *Editor) Connect(conn entities.Connection) (entities.Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Either endpoint may have been deleted since the gesture started
	for _, id := range []valueobjects.NodeID{conn.Source, conn.Target} {
		if !e.flow.HasNode(id) {
			return entities.Edge{}, e.reject(pkgerrors.NewNotFound("node", id.String()))
		}
	}

	edge, err := e.connections.TryConnect(e.flow.Edges(), conn)
	if err != nil {
		return entities.Edge{}, e.reject(err)
	}

	if err := e.flow.AddEdge(edge); err != nil {
		return entities.Edge{}, e.reject(err)
	}

	e.notice = nil
	return edge, nil
}

// RemoveEdge deletes a single edge
func (e *Editor) RemoveEdge(id valueobjects.EdgeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.flow.RemoveEdge(id); err != nil {
		return e.reject(err)
	}

	e.notice = nil
	return nil
}

// DeleteNode removes a node and its incident edges. Returns the removed
// edge ids.
func (e *Editor) DeleteNode(id valueobjects.NodeID) ([]valueobjects.EdgeID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.flow.RemoveNode(id)
	if err != nil {
		return nil, e.reject(err)
	}

	if e.selected != nil && e.selected.ID.Equals(id) {
		e.selected = nil
	}

	e.notice = nil
	return removed, nil
}

// RelabelNode replaces a node's text. The selected node view follows.
func (e *Editor) RelabelNode(id valueobjects.NodeID, text string) (entities.NodeSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, err := e.flow.RelabelNode(id, text)
	if err != nil {
		return entities.NodeSnapshot{}, e.reject(err)
	}

	e.syncSelection(node)
	e.notice = nil
	return node, nil
}

// MoveNode records a drag. It leaves the notice in place.
func (e *Editor) MoveNode(id valueobjects.NodeID, position valueobjects.Position) (entities.NodeSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, err := e.flow.MoveNode(id, position)
	if err != nil {
		return entities.NodeSnapshot{}, e.reject(err)
	}

	e.syncSelection(node)
	return node, nil
}

// Select marks a node as selected. A nil id clears the selection.
func (e *Editor) Select(id *valueobjects.NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == nil {
		e.selected = nil
		return nil
	}

	node, ok := e.flow.Node(*id)
	if !ok {
		return e.reject(pkgerrors.NewNotFound("node", id.String()))
	}

	e.selected = &node
	return nil
}

// DismissNotice clears the notice
func (e *Editor) DismissNotice() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.notice = nil
}

// Save checks the flow has a single entry point and hands a snapshot to
// repo. A nil repo only validates. The repository call runs without the
// editor lock, so edits made meanwhile are kept but are not part of the
// saved snapshot. The success notice is only shown when nothing changed
// during the call.
func (e *Editor) Save(ctx context.Context, repo ports.FlowRepository) (aggregates.FlowSnapshot, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	if err := validators.ValidateForSave(e.flow.Nodes(), e.flow.Edges()); err != nil {
		err = e.reject(err)
		e.mu.Unlock()
		return aggregates.FlowSnapshot{}, err
	}
	snapshot := e.flow.Snapshot()
	snapshot.SavedAt = e.now()
	e.mu.Unlock()

	var saveErr error
	if repo != nil {
		saveErr = repo.Save(ctx, snapshot)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if saveErr != nil {
		e.notice = &Notice{Kind: NoticeError, Message: SaveFailedMessage}
		return aggregates.FlowSnapshot{}, pkgerrors.Wrap(saveErr, "failed to save flow")
	}

	e.flow.RecordSaved(snapshot)
	if e.flow.Version() == snapshot.Version {
		e.notice = &Notice{Kind: NoticeSuccess, Message: SavedMessage}
	}
	return snapshot, nil
}

// State returns a copy of everything the canvas renders
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := State{
		FlowID:  e.flow.ID(),
		Version: e.flow.Version(),
		Nodes:   e.flow.Nodes(),
		Edges:   e.flow.Edges(),
	}
	if e.selected != nil {
		id := e.selected.ID
		node := *e.selected
		state.SelectedNodeID = &id
		state.SelectedNode = &node
	}
	if e.notice != nil {
		notice := *e.notice
		state.Notice = &notice
	}
	return state
}

// Notice returns the current notice, if any
func (e *Editor) Notice() *Notice {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.notice == nil {
		return nil
	}
	notice := *e.notice
	return &notice
}

// DrainEvents returns the events recorded since the last drain
func (e *Editor) DrainEvents() []events.DomainEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	drained := e.flow.GetUncommittedEvents()
	e.flow.MarkEventsAsCommitted()
	return drained
}

// reject turns a rejection into the error notice. Other errors leave the
// notice as it was.
func (e *Editor) reject(err error) error {
	if rej := pkgerrors.GetRejection(err); rej != nil {
		e.notice = &Notice{Kind: NoticeError, Message: rej.Message}
	}
	return err
}

func (e *Editor) syncSelection(node entities.NodeSnapshot) {
	if e.selected != nil && e.selected.ID.Equals(node.ID) {
		e.selected = &node
	}
}
