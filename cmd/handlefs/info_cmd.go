package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type infoCmd struct{}

func (c *infoCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the configured volume",
		Args:  cobra.NoArgs,
	}
}

func (c *infoCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	vol, err := cl.volume()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Volume:    %s\n", vol.Name())
	fmt.Fprintf(w, "UUID:      %s\n", vol.UUID())
	fmt.Fprintf(w, "Metadata:  %s\n", cl.cfg.Metadata.Type)
	fmt.Fprintf(w, "Content:   %s\n", cl.cfg.Content.Type)
	for _, srv := range vol.VolfileServers() {
		fmt.Fprintf(w, "Server:    %s://%s:%d\n", srv.Proto, srv.Host, srv.Port)
	}
	for _, x := range vol.Xlators() {
		fmt.Fprintf(w, "Xlator:    %s.%s = %s\n", x.Xlator, x.Key, x.Value)
	}

	log := vol.Logging()
	file := log.File
	if file == "" {
		file = "stdout"
	}
	fmt.Fprintf(w, "Logging:   %s (%s)\n", log.Level, file)

	cwd, err := vol.Getcwd(cl.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Cwd:       %s\n", cwd)
	return nil
}
