package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/config"
)

var (
	cfg *config.Config

	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "crime-cli",
	Short: "Monthly crime statistics for a city and its neighborhoods",
	Long: `Fetches monthly incident counts from the aggregate crime datastore, caches
them locally, and reports per-category counts, rates per 1,000 residents,
period-over-period changes and multi-year histories.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// setup loads configuration and installs the global logger before any
// command runs.
func setup(*cobra.Command, []string) error {
	c, err := config.Load(config.WithFile(configFile))
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c
	zap.L().Debug("config loaded",
		zap.String("store", c.Store.Driver),
		zap.String("dataset", c.Source.Dataset),
		zap.Int("categories", len(c.Categories)),
	)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
