package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgraph_store_operations_total",
			Help: "Total number of store operations by outcome",
		},
		[]string{"operation", "status"},
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkgraph_store_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	r.InvariantViolationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgraph_invariant_violations_total",
			Help: "Total number of detected pairing invariant violations",
		},
		[]string{"kind"},
	)

	r.TraversalVisited = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkgraph_traversal_visited_objects",
			Help:    "Objects visited per reachability query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	r.TraversalQueries = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkgraph_traversal_neighbour_queries",
			Help:    "Batched neighbour queries issued per reachability query",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		},
	)
}
