package validators

import (
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
)

// OpenTargets returns the nodes without an incoming edge, in node order
func OpenTargets(nodes []entities.NodeSnapshot, edges []entities.Edge) []valueobjects.NodeID {
	targeted := make(map[valueobjects.NodeID]bool, len(edges))
	for _, edge := range edges {
		targeted[edge.Target] = true
	}

	open := []valueobjects.NodeID{}
	for _, node := range nodes {
		if !targeted[node.ID] {
			open = append(open, node.ID)
		}
	}
	return open
}

// ValidateForSave checks that a flow has a single entry point. A flow with
// more than one node is rejected when more than one node lacks an incoming
// edge. Leaf nodes and disconnected sub-graphs beyond that count are not
// inspected.
func ValidateForSave(nodes []entities.NodeSnapshot, edges []entities.Edge) error {
	if len(nodes) <= 1 {
		return nil
	}

	open := OpenTargets(nodes, edges)
	if len(open) > 1 {
		ids := make([]string, len(open))
		for i, id := range open {
			ids[i] = id.String()
		}
		return pkgerrors.NewMultipleOpenTargets(ids)
	}

	return nil
}
