package config

import (
	"github.com/marmos91/handlefs/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// VFS observes remote object operations (never nil, uses noop if disabled)
	VFS metrics.VFSMetrics

	// Traversal observes tree walks (never nil, uses noop if disabled)
	Traversal metrics.TraversalMetrics
}

// InitializeMetrics creates and initializes all metrics components based on
// configuration.
//
// If metrics are disabled, no registry is created and every collector is a
// no-op.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			VFS:       metrics.NewNoopVFSMetrics(),
			Traversal: metrics.NewNoopTraversalMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:    metrics.NewServer(metrics.ServerConfig{Addr: cfg.Metrics.Addr}),
		VFS:       metrics.NewVFSMetrics(),
		Traversal: metrics.NewTraversalMetrics(),
	}
}
