// Package metrics provides Prometheus metrics collection for handlefs components.
//
// All metrics are optional: if the registry is not initialized, constructors
// return no-op implementations and components run without collection.
//
// Usage:
//
//	metrics.InitRegistry()
//	vfsMetrics := metrics.NewVFSMetrics()
//	ftsMetrics := metrics.NewTraversalMetrics()
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is written once by InitRegistry and read everywhere else.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Must be called before creating metrics instances. Subsequent calls are
// ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
