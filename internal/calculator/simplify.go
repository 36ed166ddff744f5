package calculator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
)

// Simplification is the replacement plan for one group and currency: retire
// every debt in Retire and insert every debt in Create. Applying it leaves
// every member's net balance unchanged.
type Simplification struct {
	GroupID  string
	Currency string

	// Retire lists the IDs of the unsettled debts being replaced.
	Retire []string

	// Create is the simplified debt set, at most N-1 debts for N members
	// with a nonzero balance.
	Create []*models.Debt

	// Balances are the nonzero net balances the plan preserves.
	Balances map[string]int64
}

// SimplifyGroupDebts replaces a group's unsettled debts in one currency with
// the smallest set the greedy matcher finds that preserves every member's
// net balance.
//
// Algorithm:
//   - balance(m) = owed to m - owed by m, over unsettled debts; zeros dropped
//   - repeat: match the most negative balance (debtor) with the most
//     positive (creditor), emit debtor -> creditor for the smaller magnitude,
//     and drop whoever reaches zero
//
// Ties on an extreme balance go to the lexicographically smallest member ID.
// Each step zeroes at least one member, so the loop ends after at most N-1
// steps. Debts in other groups or currencies are ignored; simplification
// never crosses currencies. Returns ErrNoUnsettledDebts when there is
// nothing to simplify.
func SimplifyGroupDebts(groupID, currency string, existing []*models.Debt) (*Simplification, error) {
	currency = strings.ToUpper(currency)

	var open []*models.Debt
	for _, d := range existing {
		if d.Settled || d.GroupID != groupID || !strings.EqualFold(d.Currency, currency) {
			continue
		}
		open = append(open, d)
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("%w: group %s currency %s", ErrNoUnsettledDebts, groupID, currency)
	}

	plan := &Simplification{
		GroupID:  groupID,
		Currency: currency,
		Retire:   make([]string, 0, len(open)),
		Balances: netBalances(open),
	}
	for _, d := range open {
		plan.Retire = append(plan.Retire, d.ID)
	}

	remaining := make(map[string]int64, len(plan.Balances))
	for m, b := range plan.Balances {
		remaining[m] = b
	}

	for {
		debtor, creditor := extremes(remaining)
		if debtor == "" || creditor == "" {
			break
		}

		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := -remaining[debtor]
		if remaining[creditor] < amount {
			amount = remaining[creditor]
		}

		plan.Create = append(plan.Create, &models.Debt{
			GroupID:    groupID,
			FromMember: debtor,
			ToMember:   creditor,
			Amount:     amount,
			Currency:   currency,
		})

		remaining[debtor] += amount
		remaining[creditor] -= amount
		if remaining[debtor] == 0 {
			delete(remaining, debtor)
		}
		if remaining[creditor] == 0 {
			delete(remaining, creditor)
		}
	}

	return plan, nil
}

// extremes returns the member with the most negative balance and the member
// with the most positive one, empty when no such member exists.
func extremes(balances map[string]int64) (debtor, creditor string) {
	members := make([]string, 0, len(balances))
	for m := range balances {
		members = append(members, m)
	}
	sort.Strings(members)

	for _, m := range members {
		b := balances[m]
		switch {
		case b < 0 && (debtor == "" || b < balances[debtor]):
			debtor = m
		case b > 0 && (creditor == "" || b > balances[creditor]):
			creditor = m
		}
	}
	return debtor, creditor
}
