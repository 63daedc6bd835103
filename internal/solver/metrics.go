package solver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lox/bodegabrawl/internal/equilibrium"
)

// Metrics instruments a solve run. A nil *Metrics records nothing.
type Metrics struct {
	solved    prometheus.Counter
	failures  *prometheus.CounterVec
	waits     prometheus.Counter
	lpSeconds prometheus.Histogram
	completed prometheus.Gauge
	total     prometheus.Gauge
}

// NewMetrics registers the solver metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		solved: f.NewCounter(prometheus.CounterOpts{
			Name: "brawl_states_solved_total",
			Help: "States solved and published by workers",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brawl_solve_failures_total",
			Help: "Failed state solves by kind",
		}, []string{"kind"}),
		waits: f.NewCounter(prometheus.CounterOpts{
			Name: "brawl_dependency_waits_total",
			Help: "Times a worker blocked on an unpublished successor",
		}),
		lpSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "brawl_lp_solve_duration_seconds",
			Help:    "Zero-sum LP solve duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
		}),
		completed: f.NewGauge(prometheus.GaugeOpts{
			Name: "brawl_states_completed",
			Help: "States published so far in the current run",
		}),
		total: f.NewGauge(prometheus.GaugeOpts{
			Name: "brawl_states_total",
			Help: "States in the index space of the current run",
		}),
	}
}

func (m *Metrics) observeSolve(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.lpSeconds.Observe(d.Seconds())
	if err == nil {
		m.solved.Inc()
	}
}

func (m *Metrics) failure(kind equilibrium.Kind) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) dependencyWait() {
	if m == nil {
		return
	}
	m.waits.Inc()
}

func (m *Metrics) progress(completed, total int) {
	if m == nil {
		return
	}
	m.completed.Set(float64(completed))
	m.total.Set(float64(total))
}
