package observability

import (
	"net/http"
	"strconv"
	"time"

	pkgerrors "flowbuilder/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// Registry for this instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Editor metrics
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	Rejections      *prometheus.CounterVec
	OpenFlows       prometheus.Gauge
	SavedFlowSize   *prometheus.HistogramVec
	CascadedEdges   prometheus.Counter

	// Infrastructure metrics
	RepositoryOps   *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates the service metrics on a private registry
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Editor commands by type and outcome",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Editor command duration in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Refused editor actions by reason",
			},
			[]string{"reason"},
		),
		OpenFlows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_flows",
				Help:      "Number of flows currently open for editing",
			},
		),
		SavedFlowSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "saved_flow_size",
				Help:      "Nodes and edges in each saved flow",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"part"},
		),
		CascadedEdges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascaded_edges_removed_total",
				Help:      "Edges removed together with their node",
			},
		),
		RepositoryOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repository_operations_total",
				Help:      "Flow repository operations by status",
			},
			[]string{"operation", "status"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events handed to the event bus",
			},
			[]string{"event_type", "status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Commands,
		m.CommandDuration,
		m.Rejections,
		m.OpenFlows,
		m.SavedFlowSize,
		m.CascadedEdges,
		m.RepositoryOps,
		m.BreakerState,
		m.EventsPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCommand records one command execution
func (m *Metrics) ObserveCommand(command string, duration time.Duration, err error) {
	outcome := OutcomeOK
	if rej := pkgerrors.GetRejection(err); rej != nil {
		outcome = OutcomeRejected
		m.Rejections.WithLabelValues(string(rej.Reason)).Inc()
	} else if err != nil {
		outcome = OutcomeError
	}

	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// ObserveSavedFlow records the size of a saved flow
func (m *Metrics) ObserveSavedFlow(nodes, edges int) {
	m.SavedFlowSize.WithLabelValues("nodes").Observe(float64(nodes))
	m.SavedFlowSize.WithLabelValues("edges").Observe(float64(edges))
}

// ObserveCascade records the edges removed by one node deletion
func (m *Metrics) ObserveCascade(removedEdges int) {
	m.CascadedEdges.Add(float64(removedEdges))
}

// ObserveHTTP records one HTTP request
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRepository records one repository call
func (m *Metrics) ObserveRepository(operation string, err error) {
	m.RepositoryOps.WithLabelValues(operation, status(err)).Inc()
}

// ObserveEvent records one published event
func (m *Metrics) ObserveEvent(eventType string, err error) {
	m.EventsPublished.WithLabelValues(eventType, status(err)).Inc()
}

// SetBreakerState records a circuit breaker transition
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// SetOpenFlows records the number of open flows
func (m *Metrics) SetOpenFlows(n int) {
	m.OpenFlows.Set(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
