package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/monitoring"
	"github.com/sells-group/crime-cli/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync log",
	Long:  "Displays recent cache refreshes. With --health, also summarizes failures and stale areas.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		limit, _ := cmd.Flags().GetInt("limit")
		health, _ := cmd.Flags().GetBool("health")

		env, err := initEnv(ctx, "stats")
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Store.ListSyncs(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if len(entries) == 0 {
			zap.L().Info("no sync entries found, run 'crime-cli sync' to populate the cache")
		} else if err := report.WriteSyncLog(os.Stdout, entries); err != nil {
			return err
		}

		if !health {
			return nil
		}

		collector := monitoring.NewCollector(env.Store, cfg.Monitoring.StaleAfter())
		snap, err := collector.Collect(ctx, cfg.Monitoring.LookbackWindowHours)
		if err != nil {
			return eris.Wrap(err, "status: collect health")
		}
		fmt.Fprintln(os.Stdout)
		writeHealth(os.Stdout, snap, monitoring.NewAlerter(cfg.Monitoring).Evaluate(snap))
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 50, "maximum number of sync entries")
	statusCmd.Flags().Bool("health", false, "summarize sync health and stale areas")
	rootCmd.AddCommand(statusCmd)
}

func writeHealth(out io.Writer, snap *monitoring.Snapshot, alerts []monitoring.Alert) {
	_, _ = fmt.Fprintf(out, "Last %dh: %d runs, %d complete, %d failed, %d running (failure rate %.0f%%)\n",
		snap.LookbackHours, snap.SyncTotal, snap.SyncComplete, snap.SyncFailed, snap.SyncRunning, snap.SyncFailRate*100)
	_, _ = fmt.Fprintf(out, "Cached areas: %d\n", snap.CachedAreas)
	if len(snap.StaleAreas) > 0 {
		_, _ = fmt.Fprintf(out, "Stale areas: %s\n", strings.Join(snap.StaleAreas, ", "))
	}
	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "[%s] %s\n", a.Severity, a.Message)
	}
}
