package valueobjects

import (
	"fmt"
	"math"

	pkgerrors "flowbuilder/pkg/errors"
)

// Position is the canvas coordinate of a node
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position, rejecting NaN and infinite coordinates
func NewPosition(x, y float64) (Position, error) {
	if !isFinite(x) || !isFinite(y) {
		return Position{}, pkgerrors.NewValidationError(fmt.Sprintf("position coordinates must be finite: (%v, %v)", x, y))
	}
	return Position{X: x, Y: y}, nil
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}

// String returns a readable representation
func (p Position) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
