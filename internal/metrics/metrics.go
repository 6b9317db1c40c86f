/*
	Package metrics wraps the Prometheus counters exposed alongside the YAML
	stats-* command family: one counter per command verb and one gauge per
	(tube, state) pair. This is ambient observability, not part of spec.md's
	command table; it is grounded on the broad use of
	github.com/prometheus/client_golang across the retrieval pack and on
	other_examples's yaad beanProto.go, which keeps a similar
	counter-per-command struct (protoMetrics) updated from the session loop.
*/
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds the counters and gauges updated by internal/broker.
type Registry struct {
	Commands    *prometheus.CounterVec
	Connections prometheus.Counter
	JobsByState *prometheus.GaugeVec
}

// New registers a fresh set of collectors against reg and returns the
// Registry. Callers typically pass prometheus.NewRegistry() so tests don't
// collide with the global default registry.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beanstalk",
			Name:      "commands_total",
			Help:      "Count of commands processed, by verb.",
		}, []string{"command"}),
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beanstalk",
			Name:      "connections_total",
			Help:      "Count of accepted TCP connections.",
		}),
		JobsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "beanstalk",
			Name:      "jobs",
			Help:      "Current number of jobs, by tube and state.",
		}, []string{"tube", "state"}),
	}
	reg.MustRegister(m.Commands, m.Connections, m.JobsByState)
	return m
}

// CountCommand increments the per-verb command counter.
func (m *Registry) CountCommand(verb string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(verb).Inc()
}

// CountConnection increments the accepted-connection counter.
func (m *Registry) CountConnection() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

// SetJobGauge sets the current job count for a (tube, state) pair.
func (m *Registry) SetJobGauge(tube, state string, n float64) {
	if m == nil {
		return
	}
	m.JobsByState.WithLabelValues(tube, state).Set(n)
}
