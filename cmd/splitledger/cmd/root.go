// Package cmd provides the splitledger commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/config"
	"github.com/mmynk/splitledger/pkg/logging"
)

var (
	cfgFile string
	dbPath  string
	debug   bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "splitledger",
	Short: "Shared-expense settlement ledger",
	Long: `splitledger splits receipts between group members and keeps the
resulting debts as small as possible.

Example:
  splitledger serve
  splitledger balances --group <id>
  splitledger simplify --group <id> --currency USD
  splitledger migrate-precision`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbPath != "" {
			loaded.Database.Path = dbPath
		}
		if debug {
			loaded.Log.Level = "debug"
		}
		cfg = loaded

		logging.SetupWithOptions(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// The context is canceled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default is $LEDGER_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(simplifyCmd)
	rootCmd.AddCommand(migratePrecisionCmd)
}

// openLedger opens the store, checks the currency precision table against
// the one the stored amounts were written with, and builds a Ledger on top.
func openLedger(ctx context.Context, m *metrics.Metrics) (*ledger.Ledger, *sqlite.SQLiteStore, error) {
	policy, err := cfg.RemainderPolicy()
	if err != nil {
		return nil, nil, err
	}
	locale, err := cfg.Locale()
	if err != nil {
		return nil, nil, err
	}
	table, err := cfg.PrecisionTable()
	if err != nil {
		return nil, nil, err
	}

	store, err := sqlite.New(cfg.Database.Path, sqlite.WithBusyTimeout(cfg.Database.BusyTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Debug("Storage initialized", "database", cfg.Database.Path)

	if _, err := store.SyncCurrencyPrecisions(ctx, table.Entries(), false); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("%w (run migrate-precision to rescale stored amounts)", err)
	}

	l := ledger.New(store, ledger.Config{
		Remainder:   policy,
		LockTimeout: cfg.Ledger.LockTimeout,
		Precision:   &table,
		Locale:      locale,
	}, ledger.WithMetrics(m))
	return l, store, nil
}
