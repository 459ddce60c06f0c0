// Package metrics exposes Prometheus collectors for document store operations.
// A nil *Collector is valid and records nothing, so the store never has to check.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "docfs"
	subsystem = "store"
)

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector groups the store's metrics
type Collector struct {
	opsTotal       *prometheus.CounterVec
	opDuration     *prometheus.HistogramVec
	lockWait       *prometheus.HistogramVec
	skippedEntries *prometheus.CounterVec
}

// New registers the store collectors on reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler; tests should use a fresh registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		opsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total number of store operations by operation and result",
			},
			[]string{"op", "result"},
		),
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of store operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 9),
			},
			[]string{"op"},
		),
		lockWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lock_wait_seconds",
				Help:      "Time spent acquiring per-path locks, by outcome",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 9),
			},
			[]string{"result"},
		),
		skippedEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "skipped_entries_total",
				Help:      "Documents left out of collection scans because they could not be read",
			},
			[]string{"collection"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveOp records one completed operation that started at start
func (c *Collector) ObserveOp(op string, start time.Time, err error) {
	if c == nil {
		return
	}
	c.opsTotal.WithLabelValues(op, result(err)).Inc()
	c.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveLockWait records how long an acquisition took and whether it succeeded
func (c *Collector) ObserveLockWait(wait time.Duration, err error) {
	if c == nil {
		return
	}
	c.lockWait.WithLabelValues(result(err)).Observe(wait.Seconds())
}

// IncSkipped counts a document dropped from a scan of collection
func (c *Collector) IncSkipped(collection string) {
	if c == nil {
		return
	}
	c.skippedEntries.WithLabelValues(collection).Inc()
}
