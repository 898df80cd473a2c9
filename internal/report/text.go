package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/crime-cli/internal/crime"
	"github.com/sells-group/crime-cli/internal/model"
)

var printer = message.NewPrinter(language.English)

const missing = "-"

// WriteSummary writes the per-category summary table of r.
func WriteSummary(out io.Writer, r *AreaReport) error {
	_, _ = fmt.Fprintf(out, "%s, %s %d\n\n", r.Name, time.Month(r.Month), r.Year)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(w, "CATEGORY\tINCIDENTS\tRATE/1K\tVS LAST MONTH\tVS LAST YEAR\t")
	for _, c := range r.Categories {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			c.Title,
			formatInt(c.IncidentsMonth),
			formatRate(c.RateMonth),
			formatChange(c.ChangeLastMonth),
			formatChange(c.ChangeMonthLastYear),
		)
	}
	return w.Flush()
}

// WriteSeries writes one labeled series as a two-column table.
func WriteSeries(out io.Writer, title string, points []model.Point) error {
	_, _ = fmt.Fprintf(out, "%s\n", title)
	if len(points) == 0 {
		_, err := fmt.Fprintln(out, "  (no data)")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range points {
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", p.Label, formatValue(p.Value))
	}
	return w.Flush()
}

// WriteCategorySeries writes every series of each category in r.
func WriteCategorySeries(out io.Writer, r *AreaReport) error {
	for i, c := range r.Categories {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintf(out, "== %s ==\n", c.Title)
		if err := WriteSeries(out, "Trailing months", c.TrailingYear); err != nil {
			return err
		}
		if err := WriteSeries(out, "Year to date ("+crime.MonthLabel(r.Month)+")", c.YearToDate); err != nil {
			return err
		}
		if err := WriteSeries(out, "Annual rate per 1,000", c.AnnualRates); err != nil {
			return err
		}
	}
	return nil
}

// WriteSyncLog writes sync log entries as a table.
func WriteSyncLog(out io.Writer, entries []model.SyncEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tAREA\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		dur := missing
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(e.ID),
			e.Area,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			printer.Sprintf("%d", e.RowsSynced),
			truncate(e.Error, 60),
		)
	}
	return w.Flush()
}

// WriteNeighborhoods writes the neighborhood table.
func WriteNeighborhoods(out io.Writer, ns []model.Neighborhood) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tNAME\tPOP 2000\tPOP 2010")
	for _, n := range ns {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			n.Key, n.Name,
			printer.Sprintf("%.0f", n.Population2000),
			printer.Sprintf("%.0f", n.Population2010),
		)
	}
	return w.Flush()
}

func formatInt(v *int) string {
	if v == nil {
		return missing
	}
	return printer.Sprintf("%d", *v)
}

func formatRate(v *float64) string {
	if v == nil {
		return missing
	}
	return printer.Sprintf("%.2f", *v)
}

// formatChange renders a change ratio as a signed percentage.
func formatChange(v *float64) string {
	if v == nil {
		return missing
	}
	return printer.Sprintf("%+.1f%%", *v*100)
}

func formatValue(v *float64) string {
	if v == nil {
		return missing
	}
	if *v == float64(int64(*v)) {
		return printer.Sprintf("%d", int64(*v))
	}
	return printer.Sprintf("%.2f", *v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
