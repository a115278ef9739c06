package validators

import (
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
)

// WouldCreateCycle reports whether adding the edge source→target to edges
// would close a directed cycle.
//
// The traversal starts at source over the existing edges plus the
// candidate edge. A node is on the path between its entry and exit; reaching
// a node that is on the path is a cycle. Reaching a node again through a
// different branch (a diamond) is not.
//
// Beyond the path set the walk also memoizes finished nodes for the whole
// traversal. This is a deliberate pruning choice, not part of the path
// bookkeeping: a pure push/pop walk gives the same answer but re-explores
// shared descendants once per path, which is exponential on stacked
// diamonds. With the finished set every node and edge is visited once.
func WouldCreateCycle(edges []entities.Edge, source, target valueobjects.NodeID) bool {
	adj := make(map[valueobjects.NodeID][]valueobjects.NodeID, len(edges)+1)
	for _, edge := range edges {
		adj[edge.Source] = append(adj[edge.Source], edge.Target)
	}
	adj[source] = append(adj[source], target)

	onPath := make(map[valueobjects.NodeID]bool)
	// A finished node only reaches finished nodes, so it cannot lead back
	// onto the current path.
	finished := make(map[valueobjects.NodeID]bool)

	var visit func(node valueobjects.NodeID) bool
	visit = func(node valueobjects.NodeID) bool {
		if onPath[node] {
			return true
		}
		if finished[node] {
			return false
		}

		onPath[node] = true
		for _, next := range adj[node] {
			if visit(next) {
				return true
			}
		}
		delete(onPath, node)
		finished[node] = true

		return false
	}

	return visit(source)
}
