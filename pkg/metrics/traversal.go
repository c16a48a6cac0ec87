package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TraversalMetrics observes fts iterators.
type TraversalMetrics interface {
	// RecordEntry counts an entry yielded at the given depth.
	RecordEntry(depth int)

	// RecordFramePush and RecordFramePop track directory frames entering
	// and leaving the stack.
	RecordFramePush()
	RecordFramePop()

	// RecordRecurseError counts directories yielded as leaves because
	// their frame could not be opened.
	RecordRecurseError()

	// RecordTraversalEnd counts finished traversals by outcome
	// ("done", "closed", "error").
	RecordTraversalEnd(outcome string)
}

type traversalMetrics struct {
	entries       prometheus.Histogram
	openFrames    prometheus.Gauge
	recurseErrors prometheus.Counter
	traversals    *prometheus.CounterVec
}

var (
	traversalOnce     sync.Once
	traversalInstance TraversalMetrics
)

// NewTraversalMetrics returns the Prometheus-backed TraversalMetrics, or a
// no-op implementation when metrics are disabled.
func NewTraversalMetrics() TraversalMetrics {
	if !IsEnabled() {
		return NewNoopTraversalMetrics()
	}

	traversalOnce.Do(func() {
		reg := GetRegistry()
		traversalInstance = &traversalMetrics{
			entries: promauto.With(reg).NewHistogram(
				prometheus.HistogramOpts{
					Name:    "handlefs_fts_entry_depth",
					Help:    "Depth of entries yielded by traversals",
					Buckets: prometheus.LinearBuckets(1, 1, 16),
				},
			),
			openFrames: promauto.With(reg).NewGauge(
				prometheus.GaugeOpts{
					Name: "handlefs_fts_open_frames",
					Help: "Directory frames currently open across all traversals",
				},
			),
			recurseErrors: promauto.With(reg).NewCounter(
				prometheus.CounterOpts{
					Name: "handlefs_fts_recurse_errors_total",
					Help: "Directories yielded as leaves because recursion failed",
				},
			),
			traversals: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Name: "handlefs_fts_traversals_total",
					Help: "Finished traversals by outcome",
				},
				[]string{"outcome"},
			),
		}
	})
	return traversalInstance
}

func (m *traversalMetrics) RecordEntry(depth int) {
	m.entries.Observe(float64(depth))
}

func (m *traversalMetrics) RecordFramePush() { m.openFrames.Inc() }

func (m *traversalMetrics) RecordFramePop() { m.openFrames.Dec() }

func (m *traversalMetrics) RecordRecurseError() { m.recurseErrors.Inc() }

func (m *traversalMetrics) RecordTraversalEnd(outcome string) {
	m.traversals.WithLabelValues(outcome).Inc()
}

type noopTraversalMetrics struct{}

// NewNoopTraversalMetrics returns a TraversalMetrics that discards everything.
func NewNoopTraversalMetrics() TraversalMetrics {
	return noopTraversalMetrics{}
}

func (noopTraversalMetrics) RecordEntry(int) {}
func (noopTraversalMetrics) RecordFramePush() {}
func (noopTraversalMetrics) RecordFramePop() {}
func (noopTraversalMetrics) RecordRecurseError() {}
func (noopTraversalMetrics) RecordTraversalEnd(string) {}
