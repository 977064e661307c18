package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imdbratings/internal/app"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Download the IMDb dataset and load it into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(pipeline *app.App) error {
				if pipeline.Ingester == nil {
					return errors.New("ingest requires the sqlite store backend")
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Downloading IMDb dataset...")
				summary, err := pipeline.Ingester.Ingest(cmd.Context())
				if err != nil {
					return fmt.Errorf("ingest dataset: %w", err)
				}
				fmt.Fprintf(out, "Loaded %s ratings and %s rated episodes in %s\n",
					humanize.Comma(summary.Ratings),
					humanize.Comma(summary.Episodes),
					summary.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show rating store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(pipeline *app.App) error {
				stats, err := pipeline.Backend.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("read stats: %w", err)
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderSectionHeader("Rating store ("+pipeline.Config.Store.Backend+")", shouldColorize(out)))
				fmt.Fprintln(out, renderTable([]column{
					{header: "Table"},
					{header: "Rows", align: alignRight},
				}, [][]string{
					{"Ratings", humanize.Comma(stats.Ratings)},
					{"Episodes", humanize.Comma(stats.Episodes)},
					{"Mappings", humanize.Comma(stats.Mappings)},
					{"Cache entries", humanize.Comma(stats.CacheEntries)},
					{"Active cache entries", humanize.Comma(stats.ActiveCacheEntries)},
				}))
				fmt.Fprintf(out, "Manual overrides loaded: %d\n", len(pipeline.Manual.Entries()))
				fmt.Fprintf(out, "TMDB search available: %s\n", yesNo(pipeline.Search.TMDBAvailable()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}
