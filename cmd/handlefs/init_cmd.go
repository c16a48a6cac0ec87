package main

import (
	"fmt"

	"github.com/marmos91/handlefs/pkg/config"
	"github.com/spf13/cobra"
)

type initCmd struct {
	force bool
}

func (c *initCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&c.force, "force", false, "overwrite an existing file")
	return cmd
}

func (c *initCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	var (
		path string
		err  error
	)
	if cl.configPath != "" {
		path = cl.configPath
		err = config.WriteDefaultConfig(path, c.force)
	} else {
		path, err = config.InitConfig(c.force)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}
