package memory

import (
	"context"
	"sync"

	"flowbuilder/domain/core/aggregates"
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"

	"go.uber.org/zap"
)

// FlowRepository keeps saved flows in process memory. Saved flows are lost
// when the process exits.
type FlowRepository struct {
	mu     sync.RWMutex
	flows  map[valueobjects.FlowID]aggregates.FlowSnapshot
	logger *zap.Logger
}

// NewFlowRepository creates an empty in-memory repository
func NewFlowRepository(logger *zap.Logger) *FlowRepository {
	return &FlowRepository{
		flows:  make(map[valueobjects.FlowID]aggregates.FlowSnapshot),
		logger: logger,
	}
}

// Save stores a copy of the snapshot, replacing any earlier save
func (r *FlowRepository) Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.flows[snapshot.FlowID] = clone(snapshot)
	r.mu.Unlock()

	r.logger.Debug("Flow saved to memory",
		zap.String("flowID", snapshot.FlowID.String()),
		zap.Int("version", snapshot.Version),
		zap.Int("nodeCount", len(snapshot.Nodes)),
		zap.Int("edgeCount", len(snapshot.Edges)),
	)
	return nil
}

// Load returns a copy of the last saved snapshot
func (r *FlowRepository) Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return aggregates.FlowSnapshot{}, err
	}

	r.mu.RLock()
	snapshot, ok := r.flows[id]
	r.mu.RUnlock()

	if !ok {
		return aggregates.FlowSnapshot{}, pkgerrors.NewNotFoundError("saved flow")
	}
	return clone(snapshot), nil
}

// Delete removes a saved flow. Deleting an unknown flow is not an error.
func (r *FlowRepository) Delete(ctx context.Context, id valueobjects.FlowID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.flows, id)
	r.mu.Unlock()
	return nil
}

// Len returns the number of saved flows
func (r *FlowRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

func clone(s aggregates.FlowSnapshot) aggregates.FlowSnapshot {
	out := s
	out.Nodes = append([]entities.NodeSnapshot(nil), s.Nodes...)
	out.Edges = append([]entities.Edge(nil), s.Edges...)
	return out
}
