package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSweepMetrics() {
	r.SweepRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkgraph_sweep_runs_total",
			Help: "Total number of consistency sweeps by outcome",
		},
		[]string{"status"},
	)

	r.SweepLastViolations = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "linkgraph_sweep_last_violations",
			Help: "Violations found by the most recent consistency sweep",
		},
	)
}
