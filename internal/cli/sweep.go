package cli

import (
	"time"

	"github.com/spf13/cobra"

	"tradeledger/internal/sweep"
)

// addSweepCommands adds expiration sweep and retention commands.
func addSweepCommands(rootCmd *cobra.Command, app *App) {
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale orders and compact old terminal orders",
	}
	sweepCmd.AddCommand(newSweepOnceCmd(app))
	sweepCmd.AddCommand(newSweepCompactCmd(app))
	sweepCmd.AddCommand(newSweepRunCmd(app))
	rootCmd.AddCommand(sweepCmd)
}

func (app *App) newSweeper() *sweep.Sweeper {
	return sweep.New(app.Store, app.Engine.Locks(), app.Logger, app.Config.Retention())
}

func newSweepOnceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single expiration sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			expired, err := app.newSweeper().SweepExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"expired": expired})
			}
			output.Success("Expired %d order(s)", expired)
			return nil
		},
	}
}

func newSweepCompactCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Remove cancelled and expired orders past retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			removed, err := app.newSweeper().Compact(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"removed": removed})
			}
			output.Success("Compacted %d order(s)", removed)
			return nil
		},
	}
}

func newSweepRunCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sweeper loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if interval <= 0 {
				interval = app.Config.Sweep.Interval
			}
			output.Info("Sweeping every %s, press Ctrl+C to stop", interval)
			app.newSweeper().Run(cmd.Context(), interval)
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "sweep interval (defaults to config)")
	return cmd
}
