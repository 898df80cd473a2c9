package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crime-cli/internal/datasync"
)

var syncCmd = &cobra.Command{
	Use:   "sync [areas...]",
	Short: "Refresh the local row cache from the datastore",
	Long: `Fetches the city and every neighborhood from the remote datastore and
stores their rows in the local cache, recording each refresh in the sync log.

By default an area is refreshed once per calendar month. Pass area keys to
restrict the run, and --force to ignore the schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		opts, err := parseSyncOpts(cmd, args)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "sync")
		if err != nil {
			return err
		}
		defer env.Close()

		targets, err := env.syncTargets(ctx)
		if err != nil {
			return err
		}

		engine := datasync.NewEngine(env.Store, targets, cfg.Sync.Concurrency)

		log.Info("starting sync",
			zap.Strings("areas", opts.Areas),
			zap.Bool("force", opts.Force),
			zap.Int("targets", len(targets)),
		)

		res, err := engine.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		fmt.Fprintf(os.Stdout, "Sync complete: %d synced, %d skipped, %d failed, %d rows\n",
			res.Synced, res.Skipped, res.Failed, res.Rows)
		if res.Failed > 0 {
			return eris.Errorf("sync: %d area(s) failed, see 'crime-cli status'", res.Failed)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("areas", "", "comma-separated area keys (alternative to arguments)")
	syncCmd.Flags().Bool("force", false, "ignore the monthly refresh schedule")
	rootCmd.AddCommand(syncCmd)
}

// parseSyncOpts extracts datasync.RunOpts from the cobra command flags and
// positional area keys.
func parseSyncOpts(cmd *cobra.Command, args []string) (datasync.RunOpts, error) {
	areasStr, _ := cmd.Flags().GetString("areas")
	force, _ := cmd.Flags().GetBool("force")

	opts := datasync.RunOpts{Force: force}
	opts.Areas = append(opts.Areas, splitList(areasStr)...)
	for _, a := range args {
		opts.Areas = append(opts.Areas, splitList(a)...)
	}

	seen := make(map[string]bool, len(opts.Areas))
	for _, a := range opts.Areas {
		if seen[a] {
			return datasync.RunOpts{}, eris.Errorf("sync: area %q listed twice", a)
		}
		seen[a] = true
	}
	return opts, nil
}
