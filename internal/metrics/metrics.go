// Package metrics exposes Prometheus metrics for evaluations and the worker
// pool.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gridcomp"

// Metrics holds every collector. Create it with New against a registry so
// tests and multiple instances do not collide on the global registry.
type Metrics struct {
	PackagesExecuted *prometheus.CounterVec
	TierDuration     *prometheus.HistogramVec
	TileDuration     *prometheus.HistogramVec
	TileErrors       *prometheus.CounterVec
	QueueDepthGauge  *prometheus.GaugeVec
	Evaluations      *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PackagesExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_packages_executed_total",
			Help:      "Work packages executed, by kind of the owning group.",
		}, []string{"group_kind"}),
		TierDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tier_duration_seconds",
			Help:      "Wall time spent executing one priority tier.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"priority"}),
		TileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_duration_seconds",
			Help:      "Time spent executing one tile on a device.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"device"}),
		TileErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_errors_total",
			Help:      "Tiles that failed or were skipped, by device.",
		}, []string{"device"}),
		QueueDepthGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_queue_depth",
			Help:      "Tasks waiting for a device, sampled on enqueue.",
		}, []string{"device"}),
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Completed evaluations by result.",
		}, []string{"result"}),
	}
}

// QueueDepth records the depth of a device queue.
func (m *Metrics) QueueDepth(device string, depth int) {
	m.QueueDepthGauge.WithLabelValues(device).Set(float64(depth))
}

// TaskDone records one executed tile.
func (m *Metrics) TaskDone(device string, elapsed time.Duration, err error) {
	m.TileDuration.WithLabelValues(device).Observe(elapsed.Seconds())
	if err != nil {
		m.TileErrors.WithLabelValues(device).Inc()
	}
}

// PackageExecuted counts one executed work package.
func (m *Metrics) PackageExecuted(groupKind string) {
	m.PackagesExecuted.WithLabelValues(groupKind).Inc()
}

// TierDone records how long a priority tier took.
func (m *Metrics) TierDone(priority string, elapsed time.Duration) {
	m.TierDuration.WithLabelValues(priority).Observe(elapsed.Seconds())
}

// EvaluationDone counts a finished evaluation.
func (m *Metrics) EvaluationDone(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Evaluations.WithLabelValues(result).Inc()
}
