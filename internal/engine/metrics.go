package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts interpreter activity. A nil *Metrics records nothing.
type Metrics struct {
	steps   prometheus.Counter
	changes prometheus.Counter
	runs    *prometheus.CounterVec
	length  prometheus.Histogram
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		steps: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mjgrid",
			Subsystem: "engine",
			Name:      "steps_total",
			Help:      "Interpreter steps executed",
		}),
		changes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mjgrid",
			Subsystem: "engine",
			Name:      "cell_changes_total",
			Help:      "Cell writes recorded in the change log",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mjgrid",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Runs by outcome (completed, limit)",
		}, []string{"outcome"}),
		length: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mjgrid",
			Subsystem: "engine",
			Name:      "run_steps",
			Help:      "Steps per finished run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

func (m *Metrics) recordStep(changes int) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.changes.Add(float64(changes))
}

func (m *Metrics) recordRun(outcome string, steps int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.length.Observe(float64(steps))
}
