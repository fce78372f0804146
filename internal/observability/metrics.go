package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded by Metrics.ObserveRun.
const (
	OutcomePlanFound     = "plan_found"
	OutcomeNoPlan        = "no_plan"
	OutcomeDepthExceeded = "depth_exceeded"
	OutcomeCancelled     = "cancelled"
	OutcomeInvalid       = "invalid"
)

// Metrics holds planner counters and histograms on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	checks     *prometheus.CounterVec
	actions    prometheus.Histogram
	expansions prometheus.Histogram
	backtracks prometheus.Counter
	duration   prometheus.Histogram
}

// NewMetrics creates and registers the planner metrics.
//
// Postcondition: Returns a non-nil Metrics with every collector registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocks_solve_runs_total",
			Help: "Solve runs by outcome",
		}, []string{"outcome"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocks_plan_checks_total",
			Help: "Plan checks by result",
		}, []string{"valid"}),
		actions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blocks_plan_actions",
			Help:    "Number of actions in found plans",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		expansions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blocks_search_expansions",
			Help:    "Method expansions per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		backtracks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocks_search_backtracks_total",
			Help: "Backtracks across all searches",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blocks_solve_duration_seconds",
			Help:    "Wall time of solve runs",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
	}
	m.registry.MustRegister(m.runs, m.checks, m.actions, m.expansions, m.backtracks, m.duration)
	return m
}

// Registry returns the registry holding the planner metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one solve run. actions is only observed for
// OutcomePlanFound.
func (m *Metrics) ObserveRun(outcome string, actions, expansions, backtracks int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomePlanFound {
		m.actions.Observe(float64(actions))
	}
	m.expansions.Observe(float64(expansions))
	m.backtracks.Add(float64(backtracks))
	m.duration.Observe(elapsed.Seconds())
}

// ObserveCheck records one plan check.
func (m *Metrics) ObserveCheck(valid bool) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(fmt.Sprint(valid)).Inc()
}

// WriteFile writes the metrics to path in the Prometheus text format, for
// collection by the node exporter's textfile collector.
//
// Postcondition: path holds a complete exposition, or a non-nil error is returned.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
