package validators

import (
	"errors"
	"fmt"
	"testing"

	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nid(id string) valueobjects.NodeID {
	return valueobjects.MustNodeID(id)
}

func edge(id, source, handle, target string) entities.Edge {
	edgeID, _ := valueobjects.NewEdgeIDFromString(id)
	return entities.Edge{ID: edgeID, Source: nid(source), SourceHandle: handle, Target: nid(target)}
}

func chain(ids ...string) []entities.Edge {
	edges := []entities.Edge{}
	for i := 0; i+1 < len(ids); i++ {
		edges = append(edges, edge(fmt.Sprintf("e%d", i), ids[i], "", ids[i+1]))
	}
	return edges
}

func nodes(ids ...string) []entities.NodeSnapshot {
	snapshots := make([]entities.NodeSnapshot, len(ids))
	for i, id := range ids {
		snapshots[i] = entities.NodeSnapshot{ID: nid(id), Kind: entities.NodeKindTextMessage}
	}
	return snapshots
}

func TestWouldCreateCycle(t *testing.T) {
	tests := []struct {
		name   string
		edges  []entities.Edge
		source string
		target string
		want   bool
	}{
		{
			name:   "empty graph",
			edges:  nil,
			source: "A",
			target: "B",
			want:   false,
		},
		{
			name:   "direct back edge",
			edges:  chain("A", "B"),
			source: "B",
			target: "A",
			want:   true,
		},
		{
			name:   "multi-hop back edge",
			edges:  chain("A", "B", "C"),
			source: "C",
			target: "A",
			want:   true,
		},
		{
			name:   "long chain closing",
			edges:  chain("A", "B", "C", "D", "E", "F"),
			source: "F",
			target: "B",
			want:   true,
		},
		{
			name:   "forward shortcut",
			edges:  chain("A", "B", "C"),
			source: "A",
			target: "C",
			want:   false,
		},
		{
			name: "diamond is not a cycle",
			edges: []entities.Edge{
				edge("e1", "A", "", "B"),
				edge("e2", "A", "x", "C"),
				edge("e3", "B", "", "D"),
			},
			source: "C",
			target: "D",
			want:   false,
		},
		{
			name: "unrelated component",
			edges: []entities.Edge{
				edge("e1", "A", "", "B"),
				edge("e2", "X", "", "Y"),
			},
			source: "B",
			target: "X",
			want:   false,
		},
		{
			name:   "target outside the graph",
			edges:  chain("A", "B"),
			source: "B",
			target: "Z",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WouldCreateCycle(tt.edges, nid(tt.source), nid(tt.target))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWouldCreateCycle_DoesNotMutateInput(t *testing.T) {
	edges := chain("A", "B", "C")
	before := append([]entities.Edge(nil), edges...)

	WouldCreateCycle(edges, nid("C"), nid("A"))

	assert.Equal(t, before, edges)
}

func TestWouldCreateCycle_SharedDescendants(t *testing.T) {
	// Every layer fans into the next one; revisiting finished nodes must
	// neither report a cycle nor blow up.
	edges := []entities.Edge{}
	layers := 40
	for layer := 0; layer < layers; layer++ {
		for _, from := range []string{"a", "b"} {
			for i, to := range []string{"a", "b"} {
				edges = append(edges, edge(
					fmt.Sprintf("e-%d-%s-%s", layer, from, to),
					fmt.Sprintf("%s%d", from, layer),
					fmt.Sprintf("h%d", i),
					fmt.Sprintf("%s%d", to, layer+1),
				))
			}
		}
	}

	assert.False(t, WouldCreateCycle(edges, nid("root"), nid("a0")))
	assert.True(t, WouldCreateCycle(edges, nid(fmt.Sprintf("b%d", layers)), nid("a0")))
}

// pathOnlyCycle is the unpruned walk: it only tracks the current path.
func pathOnlyCycle(edges []entities.Edge, source, target valueobjects.NodeID) bool {
	adj := make(map[valueobjects.NodeID][]valueobjects.NodeID)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	adj[source] = append(adj[source], target)

	onPath := make(map[valueobjects.NodeID]bool)
	var visit func(valueobjects.NodeID) bool
	visit = func(node valueobjects.NodeID) bool {
		if onPath[node] {
			return true
		}
		onPath[node] = true
		for _, next := range adj[node] {
			if visit(next) {
				return true
			}
		}
		onPath[node] = false
		return false
	}
	return visit(source)
}

func TestWouldCreateCycle_MatchesPathOnlyWalk(t *testing.T) {
	graphs := []struct {
		name  string
		edges []entities.Edge
	}{
		{name: "chain", edges: chain("A", "B", "C", "D")},
		{name: "diamond", edges: []entities.Edge{
			edge("e1", "A", "l", "B"), edge("e2", "A", "r", "C"),
			edge("e3", "B", "", "D"), edge("e4", "C", "", "D"),
		}},
		{name: "diamond with tail", edges: []entities.Edge{
			edge("e1", "A", "l", "B"), edge("e2", "A", "r", "C"),
			edge("e3", "B", "", "D"), edge("e4", "C", "", "D"),
			edge("e5", "D", "", "E"),
		}},
		{name: "two components", edges: append(chain("A", "B"), chain("X", "Y", "Z")...)},
	}
	ids := []string{"A", "B", "C", "D", "E", "X", "Y", "Z"}

	for _, g := range graphs {
		edges := g.edges
		t.Run(g.name, func(t *testing.T) {
			for _, source := range ids {
				for _, target := range ids {
					if source == target {
						continue
					}
					assert.Equal(t,
						pathOnlyCycle(edges, nid(source), nid(target)),
						WouldCreateCycle(edges, nid(source), nid(target)),
						"%s -> %s", source, target,
					)
				}
			}
		})
	}
}

func TestConnectionValidator_TryConnect(t *testing.T) {
	counter := 0
	validator := NewConnectionValidatorWithIDs(func() valueobjects.EdgeID {
		counter++
		id, _ := valueobjects.NewEdgeIDFromString(fmt.Sprintf("new-%d", counter))
		return id
	})

	tests := []struct {
		name       string
		edges      []entities.Edge
		conn       entities.Connection
		wantReason pkgerrors.Reason
	}{
		{
			name:       "self loop",
			edges:      nil,
			conn:       entities.Connection{Source: nid("A"), Target: nid("A")},
			wantReason: pkgerrors.ReasonSelfLoop,
		},
		{
			name:       "second edge from default handle",
			edges:      []entities.Edge{edge("e1", "A", "", "B")},
			conn:       entities.Connection{Source: nid("A"), Target: nid("C")},
			wantReason: pkgerrors.ReasonFanOutExceeded,
		},
		{
			name:       "second edge from named handle",
			edges:      []entities.Edge{edge("e1", "A", "out", "B")},
			conn:       entities.Connection{Source: nid("A"), SourceHandle: "out", Target: nid("C")},
			wantReason: pkgerrors.ReasonFanOutExceeded,
		},
		{
			name:       "back edge",
			edges:      chain("A", "B", "C"),
			conn:       entities.Connection{Source: nid("C"), Target: nid("A")},
			wantReason: pkgerrors.ReasonWouldCreateCycle,
		},
		{
			name:       "self loop wins over fan out",
			edges:      []entities.Edge{edge("e1", "A", "", "B")},
			conn:       entities.Connection{Source: nid("A"), Target: nid("A")},
			wantReason: pkgerrors.ReasonSelfLoop,
		},
		{
			name:       "back edge from a free handle",
			edges:      chain("A", "B"),
			conn:       entities.Connection{Source: nid("B"), Target: nid("A")},
			wantReason: pkgerrors.ReasonWouldCreateCycle,
		},
		{
			name:       "fan out checked before cycle",
			edges:      []entities.Edge{edge("e1", "A", "", "B"), edge("e2", "B", "", "C")},
			conn:       entities.Connection{Source: nid("B"), Target: nid("A")},
			wantReason: pkgerrors.ReasonFanOutExceeded,
		},
		{
			name:  "other handle of the same node",
			edges: []entities.Edge{edge("e1", "A", "", "B")},
			conn:  entities.Connection{Source: nid("A"), SourceHandle: "alt", Target: nid("C")},
		},
		{
			name:  "second incoming edge is allowed",
			edges: []entities.Edge{edge("e1", "A", "", "C")},
			conn:  entities.Connection{Source: nid("B"), Target: nid("C")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]entities.Edge(nil), tt.edges...)

			created, err := validator.TryConnect(tt.edges, tt.conn)

			assert.Equal(t, before, tt.edges)
			if tt.wantReason != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsReason(err, tt.wantReason), "got %v", err)
				assert.True(t, created.ID.IsZero())
				return
			}

			require.NoError(t, err)
			assert.False(t, created.ID.IsZero())
			assert.Equal(t, tt.conn.Source, created.Source)
			assert.Equal(t, tt.conn.SourceHandle, created.SourceHandle)
			assert.Equal(t, tt.conn.Target, created.Target)
		})
	}
}

func TestConnectionValidator_Messages(t *testing.T) {
	validator := NewConnectionValidator()

	err := validator.Check(nil, entities.Connection{Source: nid("1"), Target: nid("1")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrSelfLoop))
	assert.Equal(t, "Error: Cannot connect a node to itself.", pkgerrors.GetRejection(err).Message)

	err = validator.Check(chain("1", "2"), entities.Connection{Source: nid("1"), Target: nid("3")})
	require.Error(t, err)
	assert.Equal(t, "Error: A source handle can only have one outgoing connection.", pkgerrors.GetRejection(err).Message)

	err = validator.Check(chain("1", "2"), entities.Connection{Source: nid("2"), Target: nid("1")})
	require.Error(t, err)
	assert.Equal(t, "Error: This connection would create a cycle in the flow.", pkgerrors.GetRejection(err).Message)
}

func TestConnectionValidator_FreshIDs(t *testing.T) {
	validator := NewConnectionValidator()
	seen := map[valueobjects.EdgeID]bool{}

	for i := 0; i < 50; i++ {
		created, err := validator.TryConnect(nil, entities.Connection{
			Source: nid(fmt.Sprintf("s%d", i)),
			Target: nid(fmt.Sprintf("t%d", i)),
		})
		require.NoError(t, err)
		assert.False(t, seen[created.ID])
		seen[created.ID] = true
	}
}

func TestValidateForSave(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []entities.NodeSnapshot
		edges   []entities.Edge
		wantErr bool
	}{
		{
			name:  "empty flow",
			nodes: nil,
		},
		{
			name:  "single node without edges",
			nodes: nodes("1"),
		},
		{
			name:    "two disconnected nodes",
			nodes:   nodes("1", "2"),
			wantErr: true,
		},
		{
			name:  "linear chain",
			nodes: nodes("1", "2", "3"),
			edges: chain("1", "2", "3"),
		},
		{
			name:    "two roots into one node",
			nodes:   nodes("1", "2", "3"),
			edges:   []entities.Edge{edge("e1", "1", "", "3"), edge("e2", "2", "", "3")},
			wantErr: true,
		},
		{
			name:  "tree with two leaves",
			nodes: nodes("1", "2", "3"),
			edges: []entities.Edge{edge("e1", "1", "a", "2"), edge("e2", "1", "b", "3")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateForSave(tt.nodes, tt.edges)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, pkgerrors.ErrMultipleOpenTargets))
			assert.Equal(t,
				"Error: Cannot save Flow. More than one node has an empty target handle.",
				pkgerrors.GetRejection(err).Message)
		})
	}
}

func TestOpenTargets(t *testing.T) {
	open := OpenTargets(nodes("1", "2", "3", "4"), []entities.Edge{
		edge("e1", "1", "", "2"),
		edge("e2", "3", "", "2"),
	})

	assert.Equal(t, []valueobjects.NodeID{nid("1"), nid("3"), nid("4")}, open)
}
