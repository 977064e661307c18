package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imdbratings/internal/app"
	"imdbratings/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, the rating store and external services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(pipeline *app.App) error {
				results := preflight.RunAll(cmd.Context(), pipeline.Config)
				var probe preflight.DatasetProbe
				if pipeline.Local != nil {
					probe = pipeline.Local
				}
				results = append(results, preflight.CheckDataset(cmd.Context(), probe))

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("System", colorize))
				fmt.Fprintln(out, renderStatusLine("Store backend", statusInfo, pipeline.Config.Store.Backend, colorize))
				fmt.Fprintln(out, renderStatusLine("API bind", statusInfo, pipeline.Config.Paths.APIBind, colorize))
				if !pipeline.Config.TMDBEnabled() {
					fmt.Fprintln(out, renderStatusLine("TMDB", statusWarn, "not configured; discovery uses IMDb suggestions", colorize))
				}
				fmt.Fprintln(out, renderSectionHeader("Checks", colorize))
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
				return nil
			})
		},
	}
}
