package explorer

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the exploration counters/gauges surfaced at the end of a
// run (spec.md §9's observability wiring: a small metrics registry, never
// served over HTTP, just dumped as text once the run finishes).
type Metrics struct {
	Registry       *prometheus.Registry
	StatesExplored prometheus.Counter
	QueueDepth     prometheus.Gauge
}

// NewMetrics creates a fresh, unregistered-elsewhere metrics set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	states := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metscheck_states_explored_total",
		Help: "Number of distinct states dequeued and fully evaluated.",
	})
	queue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "metscheck_queue_depth",
		Help: "Number of states currently waiting in the exploration frontier.",
	})
	registry.MustRegister(states, queue)
	return &Metrics{Registry: registry, StatesExplored: states, QueueDepth: queue}
}
