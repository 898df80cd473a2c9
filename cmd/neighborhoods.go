package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/areas"
	"github.com/sells-group/crime-cli/internal/report"
)

var neighborhoodsCmd = &cobra.Command{
	Use:   "neighborhoods",
	Short: "Manage the neighborhood table",
}

var neighborhoodsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known neighborhoods and their census populations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "stats")
		if err != nil {
			return err
		}
		defer env.Close()

		ns, err := env.neighborhoods(ctx)
		if err != nil {
			return err
		}
		if len(ns) == 0 {
			zap.L().Info("no neighborhoods loaded, run 'crime-cli neighborhoods import <file>'")
			return nil
		}
		return report.WriteNeighborhoods(os.Stdout, ns)
	},
}

var neighborhoodsImportCmd = &cobra.Command{
	Use:   "import [file-or-url]",
	Short: "Import neighborhoods from a CSV or XLSX table",
	Long: `Reads a neighborhood table with the columns key, name, population_2000 and
population_2010 and upserts it into the store. The source may be a local .csv
or .xlsx file, or an http(s) or ftp URL to either. Defaults to area.neighborhoods_file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		location := cfg.Area.NeighborhoodsFile
		if len(args) > 0 {
			location = args[0]
		}
		if location == "" {
			return eris.New("neighborhoods import: no file given and area.neighborhoods_file is empty")
		}

		env, err := initEnv(ctx, "stats")
		if err != nil {
			return err
		}
		defer env.Close()

		ns, err := areas.Load(ctx, env.Files, location)
		if err != nil {
			return eris.Wrapf(err, "neighborhoods import: load %s", location)
		}
		if err := env.Store.SaveNeighborhoods(ctx, ns); err != nil {
			return err
		}

		fmt.Printf("Imported %d neighborhoods from %s\n", len(ns), location)
		return nil
	},
}

func init() {
	neighborhoodsCmd.AddCommand(neighborhoodsListCmd)
	neighborhoodsCmd.AddCommand(neighborhoodsImportCmd)
	rootCmd.AddCommand(neighborhoodsCmd)
}
