// Package http exposes the monitor surface: the Prometheus metrics
// registry and the HTTP server with health, metrics, and gate-report
// endpoints.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRegistry holds every Prometheus metric the evaluator emits.
type MetricsRegistry struct {
	// Solver traffic.
	SolveDuration *prometheus.HistogramVec
	SolvesTotal   *prometheus.CounterVec

	// Evaluation cache.
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Pipeline outcomes.
	GateVerdicts *prometheus.CounterVec
	ActiveRuns   prometheus.Gauge
	RunsTotal    prometheus.Counter

	// Calibration.
	CalibrationAccepted prometheus.Counter
	CalibrationRejected prometheus.Counter
}

// NewMetricsRegistry creates the metric set.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rotoreval_solve_duration_seconds",
				Help:    "Duration of BEMT solves in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"mode", "result"},
		),
		SolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotoreval_solves_total",
				Help: "Total BEMT solves by mode and result code",
			},
			[]string{"mode", "result"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotoreval_cache_hits_total",
				Help: "Evaluation cache hits by namespace",
			},
			[]string{"kind"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotoreval_cache_misses_total",
				Help: "Evaluation cache misses by namespace",
			},
			[]string{"kind"},
		),
		GateVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotoreval_gate_verdicts_total",
				Help: "Gate reports by terminal verdict",
			},
			[]string{"verdict"},
		),
		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotoreval_active_runs",
				Help: "Closeout runs currently in flight",
			},
		),
		RunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotoreval_runs_total",
				Help: "Completed closeout runs",
			},
		),
		CalibrationAccepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotoreval_calibration_accepted_total",
				Help: "Calibration entries accepted by the gate",
			},
		),
		CalibrationRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotoreval_calibration_rejected_total",
				Help: "Calibration entries rejected by the gate",
			},
		),
	}
}

// Register installs the metric set into a registry.
func (m *MetricsRegistry) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.SolveDuration, m.SolvesTotal,
		m.CacheHits, m.CacheMisses,
		m.GateVerdicts, m.ActiveRuns, m.RunsTotal,
		m.CalibrationAccepted, m.CalibrationRejected,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// GateVerdict counts one terminal verdict. Implements the pipeline's run
// observer.
func (m *MetricsRegistry) GateVerdict(verdict string) {
	m.GateVerdicts.WithLabelValues(verdict).Inc()
}

// SolveObserved counts and times one BEMT solve. Implements the closeout
// runner's solve observer.
func (m *MetricsRegistry) SolveObserved(mode, result string, seconds float64) {
	m.SolvesTotal.WithLabelValues(mode, result).Inc()
	m.SolveDuration.WithLabelValues(mode, result).Observe(seconds)
}

// CacheHit counts one evaluation-cache hit. Implements the cache
// observer.
func (m *MetricsRegistry) CacheHit(kind string) {
	m.CacheHits.WithLabelValues(kind).Inc()
}

// CacheMiss counts one evaluation-cache miss. Implements the cache
// observer.
func (m *MetricsRegistry) CacheMiss(kind string) {
	m.CacheMisses.WithLabelValues(kind).Inc()
}

// RunStarted marks a closeout run in flight.
func (m *MetricsRegistry) RunStarted() {
	m.ActiveRuns.Inc()
}

// RunFinished marks a closeout run complete.
func (m *MetricsRegistry) RunFinished() {
	m.ActiveRuns.Dec()
	m.RunsTotal.Inc()
}

// CalibrationGate records the accepted/rejected split of one gating
// pass. Implements the calibration gate observer.
func (m *MetricsRegistry) CalibrationGate(accepted, rejected int) {
	m.CalibrationAccepted.Add(float64(accepted))
	m.CalibrationRejected.Add(float64(rejected))
}
