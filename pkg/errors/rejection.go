package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason identifies why an editor action was refused
type Reason string

const (
	// ReasonSelfLoop indicates a connection whose source equals its target
	ReasonSelfLoop Reason = "SELF_LOOP"

	// ReasonFanOutExceeded indicates an output handle that already has an outgoing edge
	ReasonFanOutExceeded Reason = "FAN_OUT_EXCEEDED"

	// ReasonWouldCreateCycle indicates a connection that would close a cycle
	ReasonWouldCreateCycle Reason = "WOULD_CREATE_CYCLE"

	// ReasonMultipleOpenTargets indicates a save on a flow with more than one entry point
	ReasonMultipleOpenTargets Reason = "MULTIPLE_OPEN_TARGETS"

	// ReasonNotFound indicates a node, edge or flow id that is no longer present
	ReasonNotFound Reason = "NOT_FOUND"
)

// Rejection is a recoverable, user-facing refusal of an editor action.
// It never represents a fault; the state it refers to is left unchanged.
type Rejection struct {
	Reason  Reason                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (r *Rejection) Error() string {
	return fmt.Sprintf("[%s] %s", r.Reason, r.Message)
}

// Is matches rejections by reason
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok {
		return false
	}
	return r.Reason == t.Reason
}

// WithDetail adds a detail to the rejection
func (r *Rejection) WithDetail(key string, value interface{}) *Rejection {
	if r.Details == nil {
		r.Details = make(map[string]interface{})
	}
	r.Details[key] = value
	return r
}

// HTTPStatus maps the rejection to an HTTP status code
func (r *Rejection) HTTPStatus() int {
	if r.Reason == ReasonNotFound {
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

// Sentinels usable with errors.Is
var (
	ErrSelfLoop            = &Rejection{Reason: ReasonSelfLoop}
	ErrFanOutExceeded      = &Rejection{Reason: ReasonFanOutExceeded}
	ErrWouldCreateCycle    = &Rejection{Reason: ReasonWouldCreateCycle}
	ErrMultipleOpenTargets = &Rejection{Reason: ReasonMultipleOpenTargets}
	ErrNotFound            = &Rejection{Reason: ReasonNotFound}
)

// NewSelfLoop rejects a connection from a node to itself
func NewSelfLoop(nodeID string) *Rejection {
	return (&Rejection{
		Reason:  ReasonSelfLoop,
		Message: "Error: Cannot connect a node to itself.",
	}).WithDetail("node_id", nodeID)
}

// NewFanOutExceeded rejects a second outgoing edge from the same source handle
func NewFanOutExceeded(sourceID, sourceHandle string) *Rejection {
	return (&Rejection{
		Reason:  ReasonFanOutExceeded,
		Message: "Error: A source handle can only have one outgoing connection.",
	}).WithDetail("source", sourceID).WithDetail("source_handle", sourceHandle)
}

// NewWouldCreateCycle rejects a connection that would close a cycle
func NewWouldCreateCycle(sourceID, targetID string) *Rejection {
	return (&Rejection{
		Reason:  ReasonWouldCreateCycle,
		Message: "Error: This connection would create a cycle in the flow.",
	}).WithDetail("source", sourceID).WithDetail("target", targetID)
}

// NewMultipleOpenTargets rejects a save with more than one node lacking an incoming edge
func NewMultipleOpenTargets(openTargets []string) *Rejection {
	return (&Rejection{
		Reason:  ReasonMultipleOpenTargets,
		Message: "Error: Cannot save Flow. More than one node has an empty target handle.",
	}).WithDetail("open_targets", openTargets)
}

// NewNotFound rejects an action referring to a resource that no longer exists
func NewNotFound(resource, id string) *Rejection {
	return (&Rejection{
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf("Error: %s not found.", resource),
	}).WithDetail("resource", resource).WithDetail("id", id)
}

// IsRejection checks if an error is a Rejection
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}

// GetRejection extracts a Rejection from an error chain
func GetRejection(err error) *Rejection {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej
	}
	return nil
}

// IsReason checks if an error is a Rejection with the given reason
func IsReason(err error, reason Reason) bool {
	rej := GetRejection(err)
	return rej != nil && rej.Reason == reason
}
