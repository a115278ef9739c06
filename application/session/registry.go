package session

import (
	"fmt"
	"sort"
	"sync"

	"flowbuilder/domain/config"
	"flowbuilder/domain/core/aggregates"
	"flowbuilder/domain/core/validators"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"
)

// Registry owns one Editor per open flow
type Registry struct {
	mu          sync.RWMutex
	editors     map[valueobjects.FlowID]*Editor
	cfg         *config.DomainConfig
	connections *validators.ConnectionValidator
}

// NewRegistry creates an empty registry. Flows it creates use cfg.
func NewRegistry(cfg *config.DomainConfig, connections *validators.ConnectionValidator) *Registry {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if connections == nil {
		connections = validators.NewConnectionValidator()
	}
	return &Registry{
		editors:     make(map[valueobjects.FlowID]*Editor),
		cfg:         cfg,
		connections: connections,
	}
}

// Create opens a new flow holding only the seed node
func (r *Registry) Create() (*Editor, error) {
	flow, err := aggregates.NewFlow(valueobjects.NewFlowID(), r.cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, open := r.editors[flow.ID()]; open {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("flow %s is already open", flow.ID()))
	}

	editor := NewEditor(flow, r.connections)
	r.editors[flow.ID()] = editor

	return editor, nil
}

// Restore opens a flow rebuilt from a saved snapshot, replacing any open
// editor for the same id
func (r *Registry) Restore(snapshot aggregates.FlowSnapshot) (*Editor, error) {
	flow, err := aggregates.ReconstructFlow(snapshot, r.cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, open := r.editors[flow.ID()]; open {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("flow %s is already open", flow.ID()))
	}

	editor := NewEditor(flow, r.connections)
	r.editors[flow.ID()] = editor

	return editor, nil
}

// Get returns the editor of an open flow
func (r *Registry) Get(id valueobjects.FlowID) (*Editor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	editor, ok := r.editors[id]
	if !ok {
		return nil, pkgerrors.NewNotFound("flow", id.String())
	}
	return editor, nil
}

// Delete closes an open flow
func (r *Registry) Delete(id valueobjects.FlowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.editors[id]; !ok {
		return pkgerrors.NewNotFound("flow", id.String())
	}
	delete(r.editors, id)
	return nil
}

// IDs lists the open flows
func (r *Registry) IDs() []valueobjects.FlowID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]valueobjects.FlowID, 0, len(r.editors))
	for id := range r.editors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of open flows
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.editors)
}
