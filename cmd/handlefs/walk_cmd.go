package main

import (
	"errors"
	"fmt"
	"path"

	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/fts"
	"github.com/spf13/cobra"
)

type walkCmd struct {
	maxDepth  int
	noRecurse bool
	noStat    bool
	showUUID  bool
}

func (c *walkCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk [path]",
		Short: "Walk a directory tree in pre-order",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().IntVar(&c.maxDepth, "max-depth", 0, "do not descend below this depth (-1 for unbounded)")
	cmd.Flags().BoolVar(&c.noRecurse, "no-recurse", false, "list only the direct children")
	cmd.Flags().BoolVar(&c.noStat, "no-stat", false, "do not fetch attributes")
	cmd.Flags().BoolVar(&c.showUUID, "uuid", false, "print object identifiers")
	return cmd
}

// options starts from the traversal section of the configuration and
// applies the flags that were set explicitly.
func (c *walkCmd) options(cl *cli, cmd *cobra.Command) fts.Options {
	opts := fts.Options{
		Recurse:  cl.cfg.Traversal.Recurse,
		Stat:     cl.cfg.Traversal.Stat,
		MaxDepth: cl.cfg.Traversal.MaxDepth,
		Metrics:  cl.metrics.Traversal,
	}
	if cmd.Flags().Changed("max-depth") {
		opts.MaxDepth = c.maxDepth
	}
	if c.noRecurse {
		opts.Recurse = false
	}
	if c.noStat {
		opts.Stat = false
	}
	return opts
}

func (c *walkCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	root := "/"
	if len(args) == 1 {
		root = absolute(args[0])
	}
	h, err := cl.resolve(root, true)
	if err != nil {
		return err
	}
	defer h.Close()

	it, err := fts.Open(cl.ctx, h, c.options(cl, cmd))
	if err != nil {
		return err
	}
	defer it.Close()

	w := cmd.OutOrStdout()
	var entries, skipped int
	for e, err := range it.All(cl.ctx) {
		if err != nil {
			var entryErr *fts.EntryError
			if errors.As(err, &entryErr) {
				logger.Warn("walk: skipping %s: %v", path.Join(root, entryErr.ParentPath, entryErr.Name), entryErr.Err)
				skipped++
				continue
			}
			return err
		}

		line := path.Join(root, e.Path())
		if e.Stat != nil {
			line = fmt.Sprintf("%-9s %10d  %s", e.FileType, e.Stat.Size, line)
		} else {
			line = fmt.Sprintf("%-9s %s", e.FileType, line)
		}
		if c.showUUID {
			line += "  " + e.Handle.UUID()
		}
		fmt.Fprintln(w, line)

		if e.RecurseErr != nil {
			logger.Warn("walk: not descending into %s: %v", path.Join(root, e.Path()), e.RecurseErr)
		}
		if err := e.Handle.Close(); err != nil {
			logger.Warn("walk: closing %s: %v", e.Name, err)
		}
		entries++
	}

	logger.Info("walk %s: %d entries, %d skipped", root, entries, skipped)
	return nil
}
