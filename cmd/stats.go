package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
	"github.com/sells-group/crime-cli/internal/report"
	"github.com/sells-group/crime-cli/internal/source"
)

var statsCmd = &cobra.Command{
	Use:   "stats [area]",
	Short: "Show the current month's stats for an area",
	Long: `Fetches an area's monthly counts and prints, per category, the month's
incidents, the rate per 1,000 residents and the change against last month and
the same month last year.

The area defaults to the city. Use --cached to read from the local cache
instead of the remote datastore, and --series to add the trailing-year,
year-to-date and annual-rate histories.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "stats"))

		opts, err := parseStatsOpts(cmd, args)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "stats")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.checkCategories(opts.Categories); err != nil {
			return err
		}

		a, err := env.statsArea(ctx, opts)
		if err != nil {
			return err
		}
		if err := a.FetchData(ctx); err != nil {
			return eris.Wrap(err, "stats")
		}
		log.Debug("area fetched", zap.String("area", a.Key()), zap.Int("months", a.Engine().Grid().Len()))

		r := report.Build(a, env.Categories, report.Options{
			Categories:    opts.Categories,
			TrailingYears: opts.Years,
			SummaryOnly:   !opts.Series,
		})
		return writeReport(os.Stdout, r, opts.Format, opts.Series)
	},
}

func init() {
	statsCmd.Flags().Bool("cached", false, "read rows from the local cache")
	statsCmd.Flags().String("format", "text", "output format: text, yaml, json")
	statsCmd.Flags().String("category", "", "comma-separated category keys (default all)")
	statsCmd.Flags().Bool("series", false, "include trailing-year, year-to-date and annual-rate series")
	statsCmd.Flags().Int("years", 1, "trailing series window in years")
	statsCmd.Flags().Int("window", 0, "city only: fetch just the last N years from the datastore")
	rootCmd.AddCommand(statsCmd)
}

// statsOpts holds the parsed flags of the stats command.
type statsOpts struct {
	Area       string
	Cached     bool
	Format     string
	Categories []string
	Series     bool
	Years      int
	Window     int
}

// parseStatsOpts extracts statsOpts from the cobra command flags.
func parseStatsOpts(cmd *cobra.Command, args []string) (statsOpts, error) {
	cached, _ := cmd.Flags().GetBool("cached")
	format, _ := cmd.Flags().GetString("format")
	categories, _ := cmd.Flags().GetString("category")
	series, _ := cmd.Flags().GetBool("series")
	years, _ := cmd.Flags().GetInt("years")
	window, _ := cmd.Flags().GetInt("window")

	opts := statsOpts{
		Area:       model.CityKey,
		Cached:     cached,
		Format:     strings.ToLower(format),
		Categories: splitList(categories),
		Series:     series,
		Years:      years,
		Window:     window,
	}
	if len(args) > 0 && args[0] != "" {
		opts.Area = args[0]
	}

	switch opts.Format {
	case "text", "yaml", "json":
	default:
		return statsOpts{}, eris.Errorf("stats: unknown format %q", format)
	}
	if opts.Years < 1 {
		return statsOpts{}, eris.New("stats: --years must be at least 1")
	}
	if opts.Window < 0 {
		return statsOpts{}, eris.New("stats: --window must not be negative")
	}
	if opts.Window > 0 && (opts.Area != model.CityKey || opts.Cached) {
		return statsOpts{}, eris.New("stats: --window applies to the live city only")
	}
	return opts, nil
}

// statsArea builds the area for opts, narrowing the city fetch to the
// trailing window when one is set.
func (e *appEnv) statsArea(ctx context.Context, opts statsOpts) (*crime.Area, error) {
	if opts.Window == 0 {
		return e.area(ctx, opts.Area, opts.Cached)
	}
	a, err := e.area(ctx, model.CityKey, false)
	if err != nil {
		return nil, err
	}
	city := source.NewCity(e.Client, e.Query, e.Categories.Keys())
	return crime.NewArea(crime.AreaConfig{
		Key:        a.Key(),
		Name:       a.Name(),
		Categories: e.Categories,
		Population: a.Engine().Population(),
		Now:        e.Now,
		Current:    e.Current,
	}, windowFetcher{city: city, now: e.Now, years: opts.Window}), nil
}

// windowFetcher limits a city fetch to the years before the reporting month.
type windowFetcher struct {
	city  *source.City
	now   crime.TimeContext
	years int
}

func (w windowFetcher) FetchRows(ctx context.Context) ([]model.Row, error) {
	return w.city.FetchPrevious(ctx, w.now.Year, w.now.Month, w.years)
}

// checkCategories rejects keys that are not configured.
func (e *appEnv) checkCategories(keys []string) error {
	for _, k := range keys {
		if !e.Categories.Has(k) {
			return eris.Errorf("unknown category %q (have %s)", k, strings.Join(e.Categories.Keys(), ", "))
		}
	}
	return nil
}

func writeReport(out io.Writer, r *report.AreaReport, format string, series bool) error {
	switch format {
	case "yaml":
		return report.WriteYAML(out, r)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if err := report.WriteSummary(out, r); err != nil {
		return err
	}
	if !series {
		return nil
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return report.WriteCategorySeries(out, r)
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
