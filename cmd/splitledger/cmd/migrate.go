package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var migratePrecisionCmd = &cobra.Command{
	Use:   "migrate-precision",
	Short: "Rescale stored amounts to the configured currency precisions",
	Long: `Compare the configured currency precision table with the one the
database was written with and rescale every stored amount in the currencies
that changed. Amounts round half away from zero; debts that round to zero
are removed.

Example:
  LEDGER_CONFIG=ledger.yaml splitledger migrate-precision`,
	RunE: runMigratePrecision,
}

func runMigratePrecision(cmd *cobra.Command, args []string) error {
	table, err := cfg.PrecisionTable()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Database.Path, sqlite.WithBusyTimeout(cfg.Database.BusyTimeout))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	changed, err := store.SyncCurrencyPrecisions(cmd.Context(), table.Entries(), true)
	if err != nil {
		return fmt.Errorf("failed to migrate precisions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(changed) == 0 {
		fmt.Fprintln(out, "Currency precisions are up to date.")
		return nil
	}
	slog.Info("Currency precisions migrated", "currencies", changed)
	fmt.Fprintf(out, "Rescaled %s\n", strings.Join(changed, ", "))
	return nil
}
