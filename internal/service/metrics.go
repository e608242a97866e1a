// internal/service/metrics.go
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xkilldash9x/handoff/internal/runner"
)

// Metrics are the Prometheus collectors for supervised runs.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	Steps          *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	Runs           *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "handoff",
			Name:      "sessions_active",
			Help:      "Number of sessions held in memory",
		}),
		Steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "handoff",
			Name:      "steps_total",
			Help:      "Executed steps by type and outcome",
		}, []string{"type", "outcome"}),
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "handoff",
			Name:      "step_duration_seconds",
			Help:      "Step execution time",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}, []string{"type"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "handoff",
			Name:      "run_invocations_total",
			Help:      "Controller invocations by resulting status",
		}, []string{"status"}),
	}
}

// ObserveStep records one finished step.
func (m *Metrics) ObserveStep(o runner.StepOutcome) {
	outcome := "ok"
	switch {
	case o.Code != "":
		outcome = string(o.Code)
	case o.Paused:
		outcome = "paused"
	}
	m.Steps.WithLabelValues(string(o.Step.Type), outcome).Inc()
	m.StepDuration.WithLabelValues(string(o.Step.Type)).Observe(o.Duration.Seconds())
}

// ObserveRun records the status a controller call left a run in.
func (m *Metrics) ObserveRun(status runner.Status) {
	m.Runs.WithLabelValues(string(status)).Inc()
}
