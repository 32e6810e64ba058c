// Package metrics holds the Prometheus collectors for ingestion.
//
// Collectors are registered on a caller-supplied registry so tests can use
// a private one. A nil *Collectors is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFail    = "fail"
)

// Skip reasons.
const (
	ReasonMissing = "missing"
	ReasonLocked  = "locked"
	ReasonNoID    = "no_id"
)

// Recovery results.
const (
	RecoveryResumed   = "resumed"
	RecoveryAbandoned = "abandoned"
	RecoveryDeferred  = "deferred"
)

// Collectors groups every ingestion metric.
type Collectors struct {
	files        *prometheus.CounterVec
	skips        *prometheus.CounterVec
	recoveries   *prometheus.CounterVec
	tickDuration prometheus.Histogram
	workersBusy  prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "filecrawler_files_total",
			Help: "Files that reached a terminal outcome, by destination.",
		}, []string{"outcome"}),
		skips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "filecrawler_skips_total",
			Help: "Pipeline runs skipped before any step ran, by reason.",
		}, []string{"reason"}),
		recoveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "filecrawler_recoveries_total",
			Help: "Pending WAL files handled during restore, by result.",
		}, []string{"result"}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "filecrawler_tick_duration_seconds",
			Help:    "Duration of one restore+scan tick.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		workersBusy: f.NewGauge(prometheus.GaugeOpts{
			Name: "filecrawler_workers_busy",
			Help: "Pipeline executions currently running in the worker pool.",
		}),
	}
}

// FileDone counts a file moved to its destination.
func (c *Collectors) FileDone(outcome string) {
	if c == nil {
		return
	}
	c.files.WithLabelValues(outcome).Inc()
}

// Skipped counts a run that stopped before its first step.
func (c *Collectors) Skipped(reason string) {
	if c == nil {
		return
	}
	c.skips.WithLabelValues(reason).Inc()
}

// Recovery counts one pending WAL file handled during restore.
func (c *Collectors) Recovery(result string) {
	if c == nil {
		return
	}
	c.recoveries.WithLabelValues(result).Inc()
}

// ObserveTick records the duration of a tick.
func (c *Collectors) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.tickDuration.Observe(d.Seconds())
}

// WorkerStarted marks one more busy worker.
func (c *Collectors) WorkerStarted() {
	if c == nil {
		return
	}
	c.workersBusy.Inc()
}

// WorkerFinished marks one worker as free again.
func (c *Collectors) WorkerFinished() {
	if c == nil {
		return
	}
	c.workersBusy.Dec()
}
