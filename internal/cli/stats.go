package cli

import (
	"time"

	"github.com/spf13/cobra"

	"tradeledger/internal/stats"
	"tradeledger/internal/store"
	"tradeledger/pkg/utils"
)

// addStatsCommands adds aggregation commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregated portfolio and user statistics",
	}
	statsCmd.AddCommand(newPortfolioStatsCmd(app))
	statsCmd.AddCommand(newUserStatsCmd(app))
	rootCmd.AddCommand(statsCmd)
}

func newPortfolioStatsCmd(app *App) *cobra.Command {
	var windowDays int

	cmd := &cobra.Command{
		Use:   "portfolio <portfolio-id>",
		Short: "Show portfolio statistics over a time window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			orders, err := app.Store.ListOrders(cmd.Context(), store.OrderFilter{
				PortfolioID: args[0],
			})
			if err != nil {
				return err
			}

			s := stats.Portfolio(orders, time.Now(), windowDays)
			if output.IsJSON() {
				return output.JSON(s)
			}

			output.Bold("Portfolio %s (last %d days)", args[0], windowDays)
			output.Printf("  Orders:          %d (%d buy / %d sell)\n", s.TotalOrders, s.BuyOrders, s.SellOrders)
			output.Printf("  Volume:          %s\n", utils.FormatAmount(s.TotalVolume, app.Config.Engine.DefaultCurrency))
			output.Printf("  Fees:            %s\n", utils.FormatAmount(s.TotalFees, app.Config.Engine.DefaultCurrency))
			output.Printf("  Avg order size:  %s\n", utils.FormatAmount(s.AverageOrderSize, app.Config.Engine.DefaultCurrency))
			output.Printf("  Symbols:         %d\n", s.DistinctSymbols)
			output.Printf("  Completed:       %d (%s)\n", s.CompletedOrders, utils.FormatPercent(s.CompletionRate))
			output.Printf("  Pending:         %d\n", s.PendingOrders)
			if len(s.SymbolConcentration) > 0 {
				output.Bold("Concentration")
				for symbol, share := range s.SymbolConcentration {
					output.Printf("  %-12s %s\n", symbol, utils.FormatPercent(share))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&windowDays, "window", stats.DefaultWindowDays, "window size in days")
	return cmd
}

func newUserStatsCmd(app *App) *cobra.Command {
	var windowDays int

	cmd := &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show user trading statistics over a time window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			orders, err := app.Store.ListOrders(cmd.Context(), store.OrderFilter{
				UserID: args[0],
			})
			if err != nil {
				return err
			}

			s := stats.User(orders, time.Now(), windowDays)
			if output.IsJSON() {
				return output.JSON(s)
			}

			output.Bold("User %s (last %d days)", args[0], windowDays)
			output.Printf("  Trades:          %d\n", s.TotalTrades)
			output.Printf("  Volume:          %s\n", utils.FormatAmount(s.TotalVolume, app.Config.Engine.DefaultCurrency))
			output.Printf("  Fees:            %s\n", utils.FormatAmount(s.TotalFees, app.Config.Engine.DefaultCurrency))
			output.Printf("  Realized P&L:    %s\n",
				output.ColoredString(output.PnLColor(s.TotalRealizedPnL), utils.FormatPnL(s.TotalRealizedPnL, app.Config.Engine.DefaultCurrency)))
			output.Printf("  Net P&L:         %s\n",
				output.ColoredString(output.PnLColor(s.NetPnL), utils.FormatPnL(s.NetPnL, app.Config.Engine.DefaultCurrency)))
			output.Printf("  Win rate:        %s (%d wins / %d losses)\n",
				utils.FormatPercent(s.WinRate), s.WinningTrades, s.LosingTrades)
			output.Printf("  Avg holding:     %s days\n", s.AverageHoldingPeriod.StringFixed(1))
			return nil
		},
	}

	cmd.Flags().IntVar(&windowDays, "window", stats.DefaultWindowDays, "window size in days")
	return cmd
}
