package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/ledger"
)

var (
	simplifyGroup    string
	simplifyCurrency string
)

var simplifyCmd = &cobra.Command{
	Use:   "simplify",
	Short: "Replace a group's debts with the minimal equivalent set",
	Long: `Retire the group's unsettled debts and write the smallest set that
leaves every member's net balance unchanged. Each currency is simplified
on its own; omit --currency to simplify all of them.

Example:
  splitledger simplify --group 7f9c... --currency EUR`,
	RunE: runSimplify,
}

func init() {
	simplifyCmd.Flags().StringVar(&simplifyGroup, "group", "", "group ID")
	simplifyCmd.Flags().StringVar(&simplifyCurrency, "currency", "", "ISO 4217 code (default: every currency)")
	_ = simplifyCmd.MarkFlagRequired("group")
}

func runSimplify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	l, store, err := openLedger(ctx, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	var results []*ledger.Simplification
	if simplifyCurrency != "" {
		res, err := l.Simplify(ctx, simplifyGroup, simplifyCurrency)
		if err != nil {
			return fmt.Errorf("failed to simplify: %w", err)
		}
		results = append(results, res)
	} else {
		results, err = l.SimplifyGroup(ctx, simplifyGroup)
		if err != nil {
			return fmt.Errorf("failed to simplify: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No unsettled debts.")
		return nil
	}
	for _, res := range results {
		if res.NoOp {
			fmt.Fprintf(out, "%s: no unsettled debts\n", res.Currency)
			continue
		}
		fmt.Fprintf(out, "%s: %d debts -> %d\n", res.Currency, len(res.Retired), len(res.Created))
		for _, d := range res.Created {
			fmt.Fprintf(out, "  %s pays %s %s\n", d.FromMember, d.ToMember, l.Format(d.Amount, d.Currency))
		}
	}
	return nil
}
