package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/migledger/internal/cli"
	"github.com/pthm/migledger/internal/logging"
	"github.com/pthm/migledger/pkg/ledger"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string
	logger     = zap.NewNop()

	// Persistent flags
	cfgFile    string
	ledgerFlag string
	verbose    int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "migledger",
	Short: "SQL migration name allocator",
	Long: `migledger - SQL migration name allocator

migledger hands out unique, date-ordered names for hand-written SQL
migrations, records each one in a JSON ledger and creates an empty .sql
file to fill in. It never executes SQL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		logger, err = logging.New(cmd.ErrOrStderr(), logging.Config{
			Level:  cfg.ResolvedLogLevel(verbose, quiet),
			Format: cfg.Log.Format,
		})
		if err != nil {
			return cli.ConfigError("configuring logger", err)
		}
		logger.Debug("configuration loaded",
			zap.String("config", configPath),
			zap.String("ledger", cfg.ResolvedLedger(ledgerFlag)))

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupMigrations = "migrations"
	groupUtility    = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover migledger.yaml)")
	rootCmd.PersistentFlags().StringVar(&ledgerFlag, "ledger", "", "path to the ledger file (default: migrations/migrations.json)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupMigrations, Title: "Migrations:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Migration commands
	newCmd.GroupID = groupMigrations
	listCmd.GroupID = groupMigrations
	markCmd.GroupID = groupMigrations
	doctorCmd.GroupID = groupMigrations
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(doctorCmd)

	// Utility commands
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.ExitWithError(err)
	}
}

// openStore returns the ledger store described by the flags and config.
func openStore() *ledger.FileStore {
	opts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.Lock {
		opts = append(opts, ledger.WithLockTimeout(cfg.LockTimeout))
	} else {
		opts = append(opts, ledger.WithoutLock())
	}
	return ledger.NewFileStore(cfg.ResolvedLedger(ledgerFlag), opts...)
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
// Used for boolean flags where any true value should win.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
