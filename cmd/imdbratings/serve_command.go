package main

import (
	"strings"

	"github.com/spf13/cobra"

	"imdbratings/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rating API and addon server in the foreground",
		Long: "Run the daemon in the foreground: the rating API and addon server, " +
			"the scheduled dataset refresh and the cache cleanup. Stop it with Ctrl+C.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.Paths.APIBind = strings.TrimSpace(bind)
			}
			opts := daemonrun.Options{}
			if ctx.verbose != nil && *ctx.verbose {
				opts.LogLevel = "debug"
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override the configured listen address")
	return cmd
}
