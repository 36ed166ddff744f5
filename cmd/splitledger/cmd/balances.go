package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var balancesGroup string

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Print net balances for a group",
	Long: `Print credit, debit and net balance per member and currency over the
group's unsettled debts. Positive net means the member is owed money.

Example:
  splitledger balances --group 7f9c...`,
	RunE: runBalances,
}

func init() {
	balancesCmd.Flags().StringVar(&balancesGroup, "group", "", "group ID")
	_ = balancesCmd.MarkFlagRequired("group")
}

func runBalances(cmd *cobra.Command, args []string) error {
	l, store, err := openLedger(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer store.Close()

	_, summary, err := l.Balances(cmd.Context(), balancesGroup)
	if err != nil {
		return fmt.Errorf("failed to compute balances: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tCURRENCY\tOWED TO\tOWES\tNET")
	for _, mb := range summary {
		if mb.Currency == "" {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", mb.MemberID)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			mb.MemberID,
			mb.Currency,
			l.Format(mb.Credit, mb.Currency),
			l.Format(mb.Debit, mb.Currency),
			l.Format(mb.Net, mb.Currency),
		)
	}
	return w.Flush()
}
