// Package metrics defines the Prometheus collectors exported by linkgraph.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every linkgraph collector on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Store operations
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Pairing invariants
	InvariantViolationsTotal *prometheus.CounterVec

	// Traversal
	TraversalVisited prometheus.Histogram
	TraversalQueries prometheus.Histogram

	// Consistency sweep
	SweepRunsTotal      *prometheus.CounterVec
	SweepLastViolations prometheus.Gauge
}

// NewRegistry creates a registry with all collectors initialized.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initStoreMetrics()
	r.initSweepMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
