package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// VFSMetrics observes the remote object layer of a session.
//
// A nil VFSMetrics is never passed around: callers use NewNoopVFSMetrics
// when collection is disabled.
type VFSMetrics interface {
	// RecordOperation records one remote operation (e.g. "lookup",
	// "readdirplus", "pread") with its duration and outcome.
	RecordOperation(volume, op string, duration time.Duration, err error)

	// RecordBytes records bytes moved by pread/pwrite. direction is
	// "read" or "write".
	RecordBytes(volume, direction string, n int)

	// RecordStatCache records a md-cache lookup.
	RecordStatCache(volume string, hit bool)

	// SetOutstanding publishes the number of live object references and
	// open descriptors.
	SetOutstanding(volume string, objects, fds int64)
}

type vfsMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	bytes       *prometheus.CounterVec
	statCache   *prometheus.CounterVec
	outstanding *prometheus.GaugeVec
}

var (
	vfsOnce     sync.Once
	vfsInstance VFSMetrics
)

// NewVFSMetrics returns the process-wide Prometheus-backed VFSMetrics, or a
// no-op implementation when metrics are disabled. Sessions share one
// instance and are distinguished by the volume label.
func NewVFSMetrics() VFSMetrics {
	if !IsEnabled() {
		return NewNoopVFSMetrics()
	}

	vfsOnce.Do(func() {
		reg := GetRegistry()
		vfsInstance = &vfsMetrics{
			operations: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Name: "handlefs_vfs_operations_total",
					Help: "Total number of remote object operations by volume, operation and status",
				},
				[]string{"volume", "op", "status"},
			),
			duration: promauto.With(reg).NewHistogramVec(
				prometheus.HistogramOpts{
					Name: "handlefs_vfs_operation_duration_seconds",
					Help: "Duration of remote object operations in seconds",
					Buckets: []float64{
						0.00001, // 10µs
						0.0001,  // 100µs
						0.001,   // 1ms
						0.01,    // 10ms
						0.1,     // 100ms
						1,       // 1s
					},
				},
				[]string{"volume", "op"},
			),
			bytes: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Name: "handlefs_vfs_bytes_total",
					Help: "Bytes transferred through descriptors by direction",
				},
				[]string{"volume", "direction"},
			),
			statCache: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Name: "handlefs_vfs_stat_cache_lookups_total",
					Help: "md-cache lookups by result",
				},
				[]string{"volume", "result"},
			),
			outstanding: promauto.With(reg).NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "handlefs_vfs_outstanding",
					Help: "Outstanding object references and descriptors",
				},
				[]string{"volume", "kind"},
			),
		}
	})
	return vfsInstance
}

func (m *vfsMetrics) RecordOperation(volume, op string, duration time.Duration, err error) {
	m.operations.WithLabelValues(volume, op, statusLabel(err)).Inc()
	m.duration.WithLabelValues(volume, op).Observe(duration.Seconds())
}

func (m *vfsMetrics) RecordBytes(volume, direction string, n int) {
	if n > 0 {
		m.bytes.WithLabelValues(volume, direction).Add(float64(n))
	}
}

func (m *vfsMetrics) RecordStatCache(volume string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.statCache.WithLabelValues(volume, result).Inc()
}

func (m *vfsMetrics) SetOutstanding(volume string, objects, fds int64) {
	m.outstanding.WithLabelValues(volume, "objects").Set(float64(objects))
	m.outstanding.WithLabelValues(volume, "fds").Set(float64(fds))
}

type noopVFSMetrics struct{}

// NewNoopVFSMetrics returns a VFSMetrics that discards everything.
func NewNoopVFSMetrics() VFSMetrics {
	return noopVFSMetrics{}
}

func (noopVFSMetrics) RecordOperation(string, string, time.Duration, error) {}
func (noopVFSMetrics) RecordBytes(string, string, int) {}
func (noopVFSMetrics) RecordStatCache(string, bool) {}
func (noopVFSMetrics) SetOutstanding(string, int64, int64) {}
