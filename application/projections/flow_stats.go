package projections

import (
	"context"
	"fmt"

	"flowbuilder/domain/events"

	"go.uber.org/zap"
)

// FlowStatsRecorder receives the figures the projection derives
type FlowStatsRecorder interface {
	ObserveSavedFlow(nodes, edges int)
	ObserveCascade(removedEdges int)
}

// FlowStatsProjection turns save and node removal events into flow size
// and cascade statistics
type FlowStatsProjection struct {
	recorder FlowStatsRecorder
	logger   *zap.Logger
}

// NewFlowStatsProjection creates the projection
func NewFlowStatsProjection(recorder FlowStatsRecorder, logger *zap.Logger) *FlowStatsProjection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlowStatsProjection{recorder: recorder, logger: logger}
}

// GetEventTypes returns the event types this projection handles
func (p *FlowStatsProjection) GetEventTypes() []string {
	return []string{events.TypeFlowSaved, events.TypeNodeRemoved}
}

// CanHandle checks if this projection can handle the given event type
func (p *FlowStatsProjection) CanHandle(eventType string) bool {
	return eventType == events.TypeFlowSaved || eventType == events.TypeNodeRemoved
}

// Handle records the statistics carried by event
func (p *FlowStatsProjection) Handle(ctx context.Context, event events.DomainEvent) error {
	switch e := event.(type) {
	case events.FlowSaved:
		p.recorder.ObserveSavedFlow(e.NodeCount, e.EdgeCount)
	case events.NodeRemoved:
		if len(e.RemovedEdgeIDs) > 0 {
			p.recorder.ObserveCascade(len(e.RemovedEdgeIDs))
			p.logger.Debug("Node removed with its edges",
				zap.String("flowID", e.GetAggregateID()),
				zap.String("nodeID", e.NodeID.String()),
				zap.Int("removedEdges", len(e.RemovedEdgeIDs)),
			)
		}
	default:
		return fmt.Errorf("flow stats: unexpected event %T", event)
	}
	return nil
}
