package validators

import (
	"flowbuilder/domain/core/entities"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
)

// ConnectionValidator admits or rejects a connection attempt
type ConnectionValidator struct {
	newEdgeID func() valueobjects.EdgeID
}

// NewConnectionValidator creates a validator that issues random edge ids
func NewConnectionValidator() *ConnectionValidator {
	return NewConnectionValidatorWithIDs(valueobjects.NewEdgeID)
}

// NewConnectionValidatorWithIDs creates a validator with a custom edge id source
func NewConnectionValidatorWithIDs(newEdgeID func() valueobjects.EdgeID) *ConnectionValidator {
	if newEdgeID == nil {
		newEdgeID = valueobjects.NewEdgeID
	}
	return &ConnectionValidator{newEdgeID: newEdgeID}
}

// Check runs the connection rules in order and returns the first
// rejection: self-loop, then fan-out, then cycle.
func (v *ConnectionValidator) Check(edges []entities.Edge, conn entities.Connection) error {
	if conn.Source.Equals(conn.Target) {
		return pkgerrors.NewSelfLoop(conn.Source.String())
	}

	for _, edge := range edges {
		if edge.SharesOutput(conn) {
			return pkgerrors.NewFanOutExceeded(conn.Source.String(), conn.SourceHandle)
		}
	}

	if WouldCreateCycle(edges, conn.Source, conn.Target) {
		return pkgerrors.NewWouldCreateCycle(conn.Source.String(), conn.Target.String())
	}

	return nil
}

// TryConnect checks conn against edges and, when admitted, builds the new
// edge with a fresh id. It never mutates edges.
func (v *ConnectionValidator) TryConnect(edges []entities.Edge, conn entities.Connection) (entities.Edge, error) {
	if err := v.Check(edges, conn); err != nil {
		return entities.Edge{}, err
	}
	return entities.NewEdge(v.newEdgeID(), conn), nil
}
