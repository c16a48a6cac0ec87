package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/config"
	"github.com/marmos91/handlefs/pkg/handle"
	"github.com/marmos91/handlefs/pkg/volume"
	"github.com/spf13/cobra"
)

// cli owns the configuration, the volume and the metrics server shared by
// every command of one invocation.
type cli struct {
	rootCmd *cobra.Command

	// populated by persistent flags
	configPath  string
	logLevel    string
	metricsAddr string

	ctx     context.Context
	cancel  context.CancelFunc
	cfg     *config.Config
	metrics *config.MetricsResult
	vol     *volume.Volume
}

type command interface {
	registerFlags() *cobra.Command
	run(c *cli, cmd *cobra.Command, args []string) error
}

func newCLI() *cli {
	c := &cli{}
	c.rootCmd = &cobra.Command{
		Use:           "handlefs",
		Short:         "handlefs is a command-line client for handle-based volumes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/handlefs/config.yaml)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	c.addCmd(&initCmd{})
	c.addCmd(&infoCmd{})
	c.addCmd(&statCmd{})
	c.addCmd(&uuidCmd{})
	c.addCmd(&lsCmd{})
	c.addCmd(&catCmd{})
	c.addCmd(&putCmd{})
	c.addCmd(&mkdirCmd{})
	c.addCmd(&rmCmd{})
	c.addCmd(&walkCmd{})
	c.addCmd(&gcCmd{})

	return c
}

func (c *cli) Exec() error {
	defer c.Close()
	return c.rootCmd.Execute()
}

func (c *cli) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

// setup loads the configuration, applies flag overrides and starts the
// metrics server when enabled.
func (c *cli) setup() error {
	if c.cfg != nil {
		return nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = c.metricsAddr
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	c.cfg = cfg

	c.ctx, c.cancel = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	c.metrics = config.InitializeMetrics(cfg)
	if c.metrics.Server != nil {
		go func() {
			if err := c.metrics.Server.Start(c.ctx); err != nil {
				logger.Error("metrics server: %v", err)
			}
		}()
	}
	return nil
}

// volume opens the configured volume once per invocation.
func (c *cli) volume() (*volume.Volume, error) {
	if err := c.setup(); err != nil {
		return nil, err
	}
	if c.vol != nil {
		return c.vol, nil
	}
	vol, err := volume.OpenConfig(c.ctx, c.cfg, c.metrics.VFS)
	if err != nil {
		return nil, err
	}
	c.vol = vol
	return vol, nil
}

// resolve looks up p from the volume root.
func (c *cli) resolve(p string, follow bool) (*handle.Handle, error) {
	vol, err := c.volume()
	if err != nil {
		return nil, err
	}
	return vol.ResolvePath(c.ctx, nil, absolute(p), follow, true)
}

func (c *cli) Close() {
	if c.vol != nil {
		if err := c.vol.Close(); err != nil {
			logger.Warn("closing volume: %v", err)
		}
		c.vol = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
