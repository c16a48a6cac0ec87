package main

import (
	"fmt"

	"github.com/marmos91/handlefs/pkg/gc"
	"github.com/spf13/cobra"
)

type gcCmd struct {
	dryRun    bool
	batchSize int
}

func (c *gcCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete content no longer referenced by any file",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&c.dryRun, "dry-run", false, "only report what would be deleted")
	cmd.Flags().IntVar(&c.batchSize, "batch-size", 1000, "deletions between cancellation checks")
	return cmd
}

func (c *gcCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	vol, err := cl.volume()
	if err != nil {
		return err
	}
	meta, cs := vol.Session().Stores()

	collector, err := gc.NewCollector(meta, cs, gc.Config{BatchSize: c.batchSize, DryRun: c.dryRun})
	if err != nil {
		return err
	}
	stats, err := collector.Run(cl.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
	return nil
}
