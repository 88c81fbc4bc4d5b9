package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradeledger/internal/config"
	"tradeledger/internal/engine"
	"tradeledger/internal/logging"
	"tradeledger/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Engine *engine.Engine
	Store  store.OrderStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "tradeledger",
		Short: "Order lifecycle and portfolio accounting engine",
		Long: `Tradeledger tracks brokerage orders from submission through partial
fills to settlement: fee breakdowns, volume-weighted execution prices,
realized/unrealized P&L and per-portfolio trading statistics.

Use 'tradeledger help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configDir, _ := cmd.Flags().GetString("config"); configDir != "" {
				cfg, err := config.Load(configDir)
				if err != nil {
					return err
				}
				app.Config = cfg
				app.Logger = logging.New(cfg.Logging)
			}
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return app.initStore()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.Store != nil {
				return app.Store.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradeledger)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addOrderCommands(rootCmd, app)
	addStatsCommands(rootCmd, app)
	addSweepCommands(rootCmd, app)

	return rootCmd
}

// initStore opens the order store and wires the engine. Paper mode uses the
// in-memory store so simulated sessions never touch the on-disk ledger.
func (a *App) initStore() error {
	if a.Engine != nil {
		return nil
	}
	if a.Config.IsPaperMode() {
		a.Store = store.NewMemoryStore()
	} else {
		s, err := store.NewSQLiteStore(a.Config.Store.Path)
		if err != nil {
			return err
		}
		a.Store = s
	}
	a.Engine = engine.New(a.Store, a.Logger)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("tradeledger v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Engine")
			output.Printf("  Mode:             %s\n", app.Config.Engine.Mode)
			output.Printf("  Default Exchange: %s\n", app.Config.Engine.DefaultExchange)
			output.Printf("  Default Currency: %s\n", app.Config.Engine.DefaultCurrency)
			output.Printf("  Stats Window:     %d days\n", app.Config.Engine.StatsWindowDays)
			output.Println()
			output.Bold("Store")
			output.Printf("  Path: %s\n", app.Config.Store.Path)
			output.Println()
			output.Bold("Sweep")
			output.Printf("  Interval:  %s\n", app.Config.Sweep.Interval)
			output.Printf("  Retention: %d days\n", app.Config.Sweep.RetentionDays)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}
