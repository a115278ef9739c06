package persistence

import (
	"context"
	"errors"
	"time"

	"flowbuilder/application/ports"
	"flowbuilder/domain/core/aggregates"
	"flowbuilder/domain/core/valueobjects"
	pkgerrors "flowbuilder/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerMetrics receives repository outcomes and breaker state changes
type BreakerMetrics interface {
	ObserveRepository(operation string, err error)
	SetBreakerState(name string, state int)
}

// BreakerConfig holds configuration for the repository circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerRepository guards a FlowRepository with a circuit breaker. After
// FailureThreshold consecutive infrastructure failures calls fail fast with
// an unavailable error until Timeout has passed.
type BreakerRepository struct {
	next    ports.FlowRepository
	cb      *gobreaker.CircuitBreaker
	metrics BreakerMetrics
	name    string
}

// NewBreakerRepository wraps next. metrics may be nil.
func NewBreakerRepository(next ports.FlowRepository, config BreakerConfig, metrics BreakerMetrics, logger *zap.Logger) *BreakerRepository {
	if config.Name == "" {
		config.Name = "flow-repository"
	}
	threshold := config.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	r := &BreakerRepository{next: next, metrics: metrics, name: config.Name}
	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if r.metrics != nil {
				r.metrics.SetBreakerState(name, int(to))
			}
		},
		IsSuccessful: isSuccessful,
	})

	if metrics != nil {
		metrics.SetBreakerState(config.Name, int(gobreaker.StateClosed))
	}
	return r
}

// isSuccessful decides which errors count against the breaker. Missing
// flows, stale saves and cancelled requests say nothing about the health of
// the store.
func isSuccessful(err error) bool {
	switch {
	case err == nil:
		return true
	case pkgerrors.IsNotFound(err), pkgerrors.IsConflict(err), pkgerrors.IsValidation(err):
		return true
	case errors.Is(err, context.Canceled):
		return true
	default:
		return false
	}
}

// State returns the current breaker state
func (r *BreakerRepository) State() gobreaker.State {
	return r.cb.State()
}

// Save implements ports.FlowRepository
func (r *BreakerRepository) Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error {
	_, err := r.execute("save", func() (interface{}, error) {
		return nil, r.next.Save(ctx, snapshot)
	})
	return err
}

// Load implements ports.FlowRepository
func (r *BreakerRepository) Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error) {
	result, err := r.execute("load", func() (interface{}, error) {
		return r.next.Load(ctx, id)
	})
	if err != nil {
		return aggregates.FlowSnapshot{}, err
	}
	return result.(aggregates.FlowSnapshot), nil
}

// Delete implements ports.FlowRepository
func (r *BreakerRepository) Delete(ctx context.Context, id valueobjects.FlowID) error {
	_, err := r.execute("delete", func() (interface{}, error) {
		return nil, r.next.Delete(ctx, id)
	})
	return err
}

func (r *BreakerRepository) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = pkgerrors.NewUnavailableError(r.name).WithCause(err)
	}
	if r.metrics != nil {
		r.metrics.ObserveRepository(operation, err)
	}
	return result, err
}
