package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
	"github.com/sells-group/crime-cli/internal/report"
)

// Series kinds accepted by the series command and the API.
const (
	seriesTrailing = "trailing"
	seriesYTD      = "ytd"
	seriesAnnual   = "annual"
)

var seriesCmd = &cobra.Command{
	Use:   "series [area]",
	Short: "Print one chart series for an area",
	Long: `Prints a single series for one category:

  trailing  monthly counts for the last --years years
  ytd       year-to-date totals through the reporting month, one per year
  annual    yearly incidents per 1,000 residents for complete years

The category defaults to the configured default category.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind, _ := cmd.Flags().GetString("kind")
		category, _ := cmd.Flags().GetString("category")
		years, _ := cmd.Flags().GetInt("years")
		cached, _ := cmd.Flags().GetBool("cached")
		format, _ := cmd.Flags().GetString("format")

		key := model.CityKey
		if len(args) > 0 {
			key = args[0]
		}

		env, err := initEnv(ctx, "stats")
		if err != nil {
			return err
		}
		defer env.Close()

		if category != "" {
			if err := env.checkCategories([]string{category}); err != nil {
				return err
			}
		}

		a, err := env.area(ctx, key, cached)
		if err != nil {
			return err
		}
		if err := a.FetchData(ctx); err != nil {
			return eris.Wrap(err, "series")
		}

		points, err := buildSeries(a.Engine(), kind, category, years)
		if err != nil {
			return err
		}
		if category == "" {
			category = env.Current.Current()
		}
		title := seriesTitle(env.Categories, category, kind)
		return writeSeries(os.Stdout, title, points, format)
	},
}

func init() {
	seriesCmd.Flags().String("kind", seriesTrailing, "series kind: trailing, ytd, annual")
	seriesCmd.Flags().String("category", "", "category key (default from config)")
	seriesCmd.Flags().Int("years", 1, "trailing series window in years")
	seriesCmd.Flags().Bool("cached", false, "read rows from the local cache")
	seriesCmd.Flags().String("format", "text", "output format: text, yaml, json")
	rootCmd.AddCommand(seriesCmd)
}

// buildSeries computes the named series over eng. An empty category uses the
// engine's current category.
func buildSeries(eng *crime.Engine, kind, category string, years int) ([]model.Point, error) {
	switch strings.ToLower(kind) {
	case seriesTrailing:
		if years < 1 {
			return nil, eris.New("series: years must be at least 1")
		}
		return eng.TrailingYearSeries(category, years), nil
	case seriesYTD:
		return eng.YearToDateHistory(category), nil
	case seriesAnnual:
		return eng.AnnualRateSeries(category), nil
	default:
		return nil, eris.Errorf("series: unknown kind %q", kind)
	}
}

func seriesTitle(cats model.CategorySet, key, kind string) string {
	name := key
	if c, ok := cats.Get(key); ok {
		name = c.Title
	}
	switch kind {
	case seriesYTD:
		return name + ", year to date"
	case seriesAnnual:
		return name + ", annual rate per 1,000"
	default:
		return name + ", trailing months"
	}
}

func writeSeries(out io.Writer, title string, points []model.Point, format string) error {
	doc := struct {
		Title  string        `json:"title" yaml:"title"`
		Points []model.Point `json:"points" yaml:"points"`
	}{title, points}

	switch strings.ToLower(format) {
	case "text":
		return report.WriteSeries(out, title, points)
	case "yaml":
		return report.WriteYAML(out, doc)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return eris.Errorf("series: unknown format %q", format)
	}
}
