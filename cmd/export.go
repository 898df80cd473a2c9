package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/model"
	"github.com/sells-group/crime-cli/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export [area]",
	Short: "Write an area's stats and series to XLSX or YAML",
	Long: `Builds the full report for an area (summary plus trailing-year,
year-to-date and annual-rate series for every category) and writes it to
--out. The format follows the file extension: .xlsx, .yaml or .yml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		cached, _ := cmd.Flags().GetBool("cached")
		years, _ := cmd.Flags().GetInt("years")

		format, err := exportFormat(out)
		if err != nil {
			return err
		}
		if years < 1 {
			return eris.New("export: --years must be at least 1")
		}

		key := model.CityKey
		if len(args) > 0 {
			key = args[0]
		}

		env, err := initEnv(ctx, "stats")
		if err != nil {
			return err
		}
		defer env.Close()

		a, err := env.area(ctx, key, cached)
		if err != nil {
			return err
		}
		if err := a.FetchData(ctx); err != nil {
			return eris.Wrap(err, "export")
		}

		r := report.Build(a, env.Categories, report.Options{TrailingYears: years})

		switch format {
		case "xlsx":
			err = report.WriteXLSX(out, r)
		default:
			err = writeYAMLFile(out, r)
		}
		if err != nil {
			return err
		}

		zap.L().Info("report exported", zap.String("area", key), zap.String("file", out))
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file (.xlsx, .yaml or .yml)")
	exportCmd.Flags().Bool("cached", false, "read rows from the local cache")
	exportCmd.Flags().Int("years", 1, "trailing series window in years")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

// exportFormat picks the writer from the output file's extension.
func exportFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return "xlsx", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", eris.Errorf("export: unsupported output file %q (want .xlsx, .yaml or .yml)", path)
	}
}

func writeYAMLFile(path string, r *report.AreaReport) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := report.WriteYAML(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close file")
}
