package volume

import (
	"context"
	"fmt"

	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/config"
	"github.com/marmos91/handlefs/pkg/metrics"
)

// OptionsFromConfig maps the volume and logging sections of cfg onto
// Options. Stores are not created.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Name:     cfg.Volume.Name,
		LogFile:  cfg.Logging.File,
		LogLevel: cfg.Logging.Level,
	}
	for _, srv := range cfg.Volume.VolfileServers {
		opts.VolfileServers = append(opts.VolfileServers, VolfileServer{
			Host:  srv.Host,
			Proto: srv.Proto,
			Port:  srv.Port,
		})
	}
	for _, x := range cfg.Volume.Xlators {
		opts.Xlators = append(opts.Xlators, XlatorOption{Xlator: x.Xlator, Key: x.Key, Value: x.Value})
	}
	return opts
}

// OpenConfig creates the stores described by cfg and opens the volume on
// them. m may be nil.
func OpenConfig(ctx context.Context, cfg *config.Config, m metrics.VFSMetrics) (*Volume, error) {
	meta, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata store: %w", err)
	}
	cs, err := config.CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		if cerr := meta.Close(); cerr != nil {
			logger.Warn("volume: closing metadata store: %v", cerr)
		}
		return nil, fmt.Errorf("content store: %w", err)
	}

	opts := OptionsFromConfig(cfg)
	opts.Metadata = meta
	opts.Content = cs
	opts.Metrics = m
	return Open(ctx, opts)
}
