package entities

import (
	"fmt"

	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
)

// NodeKind is the variant tag of a flow node
type NodeKind string

const (
	// NodeKindTextMessage is a node that sends a text message
	NodeKindTextMessage NodeKind = "text-message"
)

// ParseNodeKind resolves a kind name sent by the canvas. The canvas
// registers the text message node type as "textMessage".
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case string(NodeKindTextMessage), "textMessage":
		return NodeKindTextMessage, nil
	default:
		return "", pkgerrors.NewValidationError(fmt.Sprintf("unknown node kind %q", s))
	}
}

// Node is a placed, addressable unit of content on the canvas.
// Nodes are owned by a Flow and only mutated through it.
type Node struct {
	id       valueobjects.NodeID
	kind     NodeKind
	position valueobjects.Position
	label    valueobjects.Label
}

// NodeSnapshot is an immutable copy of a node handed to readers
type NodeSnapshot struct {
	ID       valueobjects.NodeID   `json:"id"`
	Kind     NodeKind              `json:"kind"`
	Position valueobjects.Position `json:"position"`
	Label    string                `json:"label"`
}

// NewTextMessageNode creates a text message node
func NewTextMessageNode(id valueobjects.NodeID, position valueobjects.Position, label valueobjects.Label) (*Node, error) {
	return NewNode(id, NodeKindTextMessage, position, label)
}

// NewNode creates a node of the given kind
func NewNode(id valueobjects.NodeID, kind NodeKind, position valueobjects.Position, label valueobjects.Label) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	if _, err := ParseNodeKind(string(kind)); err != nil {
		return nil, err
	}

	return &Node{
		id:       id,
		kind:     kind,
		position: position,
		label:    label,
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Kind returns the node's variant
func (n *Node) Kind() NodeKind {
	return n.kind
}

// Position returns the node's position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Label returns the node's label
func (n *Node) Label() valueobjects.Label {
	return n.label
}

// Relabel replaces the label. Reports whether the text changed.
func (n *Node) Relabel(label valueobjects.Label) bool {
	if label.Equals(n.label) {
		return false
	}
	n.label = label
	return true
}

// MoveTo moves the node. Reports whether the position changed.
func (n *Node) MoveTo(position valueobjects.Position) bool {
	if position.Equals(n.position) {
		return false
	}
	n.position = position
	return true
}

// Snapshot returns an immutable copy of the node
func (n *Node) Snapshot() NodeSnapshot {
	return NodeSnapshot{
		ID:       n.id,
		Kind:     n.kind,
		Position: n.position,
		Label:    n.label.Text(),
	}
}
