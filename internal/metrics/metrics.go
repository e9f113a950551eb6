package metrics

import "time"

// RecordOperation records a store operation and its duration.
func (r *Registry) RecordOperation(operation, status string, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(operation, status).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordInvariantViolation counts one detected violation of the given kind.
func (r *Registry) RecordInvariantViolation(kind string) {
	r.InvariantViolationsTotal.WithLabelValues(kind).Inc()
}

// RecordTraversal records the work done by one reachability query.
func (r *Registry) RecordTraversal(visited, queries int) {
	r.TraversalVisited.Observe(float64(visited))
	r.TraversalQueries.Observe(float64(queries))
}

// RecordSweep records a consistency sweep outcome.
func (r *Registry) RecordSweep(status string, violations int) {
	r.SweepRunsTotal.WithLabelValues(status).Inc()
	r.SweepLastViolations.Set(float64(violations))
}
