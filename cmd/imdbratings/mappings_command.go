package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"imdbratings/internal/app"
	"imdbratings/internal/contentid"
	"imdbratings/internal/ratings"
)

func newMappingsCommand(ctx *commandContext) *cobra.Command {
	mappingsCmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and edit stored foreign id mappings",
	}
	mappingsCmd.AddCommand(newMappingsListCommand(ctx))
	mappingsCmd.AddCommand(newMappingsPutCommand(ctx))
	return mappingsCmd
}

func newMappingsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(pipeline *app.App) error {
				mappings, err := pipeline.Backend.ListMappings(cmd.Context())
				if err != nil {
					return fmt.Errorf("list mappings: %w", err)
				}
				if asJSON {
					if mappings == nil {
						mappings = []ratings.Mapping{}
					}
					return writeJSON(cmd, mappings)
				}
				out := cmd.OutOrStdout()
				if len(mappings) == 0 {
					fmt.Fprintln(out, "No stored mappings")
					return nil
				}
				rows := make([][]string, 0, len(mappings))
				for _, m := range mappings {
					rows = append(rows, []string{
						m.ForeignID,
						m.IMDbID,
						string(m.Source),
						strconv.Itoa(m.Confidence),
						m.LastVerified.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Foreign ID"},
					{header: "IMDb ID"},
					{header: "Source"},
					{header: "Confidence", align: alignRight},
					{header: "Last Verified"},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print mappings as JSON")
	return cmd
}

func newMappingsPutCommand(ctx *commandContext) *cobra.Command {
	var confidence int

	cmd := &cobra.Command{
		Use:     "put <foreign-id> <imdb-id>",
		Short:   "Store or replace a mapping",
		Example: "  imdbratings mappings put kitsu:7936 tt0417299",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			foreign, err := contentid.Parse(args[0])
			if err != nil {
				return err
			}
			if !foreign.NeedsMapping() {
				return fmt.Errorf("%s is already an IMDb id", args[0])
			}
			target, err := contentid.Parse(args[1])
			if err != nil {
				return err
			}
			if target.NeedsMapping() || target.HasEpisode() {
				return fmt.Errorf("%s is not an IMDb title id", args[1])
			}
			if confidence < 0 || confidence > 100 {
				return fmt.Errorf("--confidence must be between 0 and 100")
			}

			mapping := ratings.Mapping{
				ForeignID:  foreign.ForeignID(),
				IMDbID:     target.IMDbID(),
				Source:     ratings.SourceManual,
				Confidence: confidence,
			}
			return ctx.withApp(func(pipeline *app.App) error {
				if err := pipeline.Backend.PutMapping(cmd.Context(), mapping); err != nil {
					return fmt.Errorf("store mapping: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mapped %s -> %s\n", mapping.ForeignID, mapping.IMDbID)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&confidence, "confidence", 100, "Confidence score stored with the mapping")
	return cmd
}
