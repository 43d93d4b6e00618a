// Package metrics records nitcheck runs as Prometheus collectors. A Recorder
// owns its registry so concurrent suites and tests never share counters; the
// CLI dumps it in text exposition format with WriteTextfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dkoosis/nitcheck/pkg/nit"
)

const namespace = "nitcheck"

// Recorder collects invocation and scenario metrics.
type Recorder struct {
	reg *prometheus.Registry

	invocations      *prometheus.CounterVec
	invocationTime   *prometheus.HistogramVec
	scenarios        *prometheus.CounterVec
	scenarioTime     *prometheus.HistogramVec
	backendAvailable prometheus.Gauge
}

// New returns a Recorder backed by a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		// Labels: command (scan, run, ...), outcome (ok, handled, crashed, timeout)
		invocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nit",
			Name:      "invocations_total",
			Help:      "nit invocations by subcommand and outcome",
		}, []string{"command", "outcome"}),
		invocationTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "nit",
			Name:      "invocation_seconds",
			Help:      "Wall time of nit invocations by subcommand",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"command"}),
		// Labels: group (heuristics, llm), status (pass, fail, skip, error)
		scenarios: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "scenarios_total",
			Help:      "Scenario outcomes by group and status",
		}, []string{"group", "status"}),
		scenarioTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "scenario_seconds",
			Help:      "Wall time of scenarios by group",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"group"}),
		backendAvailable: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "available",
			Help:      "1 when an Ollama model was discovered for this run",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveInvocation implements nit.Observer.
func (r *Recorder) ObserveInvocation(inv nit.Invocation) {
	r.invocations.WithLabelValues(inv.Command, inv.Outcome.String()).Inc()
	r.invocationTime.WithLabelValues(inv.Command).Observe(inv.Duration.Seconds())
}

// ObserveScenario records one scenario outcome.
func (r *Recorder) ObserveScenario(group, status string, elapsed time.Duration) {
	r.scenarios.WithLabelValues(group, status).Inc()
	r.scenarioTime.WithLabelValues(group).Observe(elapsed.Seconds())
}

// SetBackendAvailable records the discovery result.
func (r *Recorder) SetBackendAvailable(ok bool) {
	if ok {
		r.backendAvailable.Set(1)
		return
	}
	r.backendAvailable.Set(0)
}

// WriteTextfile writes every collected metric to path, for the node exporter
// textfile collector or a CI artifact.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
