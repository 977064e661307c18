package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imdbratings/internal/app"
	"imdbratings/internal/contentid"
	"imdbratings/internal/ratings"
	"imdbratings/internal/resolver"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve an IMDb, Kitsu or TMDB id to its IMDb rating",
		Example: "  imdbratings resolve tt0111161\n" +
			"  imdbratings resolve kitsu:7936:12\n" +
			"  imdbratings resolve tmdb:1396 --type series",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var contentType contentid.ContentType
			if strings.TrimSpace(typeFlag) != "" {
				parsed, ok := contentid.ParseContentType(typeFlag)
				if !ok {
					return fmt.Errorf("unsupported --type %q (use movie or series)", typeFlag)
				}
				contentType = parsed
			}
			return ctx.withApp(func(pipeline *app.App) error {
				result, err := pipeline.Resolver.Resolve(cmd.Context(), args[0], contentType)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", args[0], err)
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				printResult(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Content type hint for ids without an episode (movie or series)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printResult(cmd *cobra.Command, result resolver.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderSectionHeader(result.OriginalID, colorize))
	fmt.Fprintf(out, "Status: %s\n", renderVerdict(!result.NotFound, colorize))

	fields := [][2]string{{"IMDb ID", dash(result.IMDbID)}}
	if result.Season > 0 || result.Episode > 0 {
		fields = append(fields,
			[2]string{"Season", strconv.Itoa(result.Season)},
			[2]string{"Episode", strconv.Itoa(result.Episode)},
			[2]string{"Episode ID", dash(result.EpisodeID)},
		)
	}
	if result.NotFound {
		fields = append(fields, [2]string{"Reason", result.Reason})
	} else {
		fields = append(fields,
			[2]string{"Rating", ratings.FormatRating(result.Rating) + "/10"},
			[2]string{"Votes", humanize.Comma(result.Votes)},
			[2]string{"Confidence", string(result.Confidence)},
			[2]string{"Strategy", string(result.Strategy)},
		)
	}
	if result.Source != "" {
		fields = append(fields,
			[2]string{"Mapping source", string(result.Source)},
			[2]string{"Mapping confidence", strconv.Itoa(result.MappingConfidence)},
		)
	}
	fmt.Fprintln(out, renderFields(fields))
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
