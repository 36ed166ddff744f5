package calculator

import (
	"sort"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
)

// Balances holds net balances per member per currency:
// balances[member][currency]. Positive means the member is owed money,
// negative means the member owes money.
type Balances map[string]map[string]int64

// Of returns member's balance in currency, zero when absent.
func (b Balances) Of(member, currency string) int64 {
	return b[member][strings.ToUpper(currency)]
}

// Currencies returns every currency with at least one nonzero balance, sorted.
func (b Balances) Currencies() []string {
	seen := make(map[string]bool)
	for _, byCurrency := range b {
		for ccy, amount := range byCurrency {
			if amount != 0 {
				seen[ccy] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for ccy := range seen {
		out = append(out, ccy)
	}
	sort.Strings(out)
	return out
}

// MemberBalance is the balance information for one member in one currency.
type MemberBalance struct {
	MemberID string
	Currency string
	Credit   int64 // owed to the member
	Debit    int64 // owed by the member
	Net      int64 // Credit - Debit
}

// ComputeBalances projects unsettled debts onto net balances. Every member
// in members appears in the result, even with no debts; members that only
// appear on debts are included as well. Settled debts are ignored.
func ComputeBalances(debts []*models.Debt, members []string) Balances {
	balances := make(Balances, len(members))
	for _, m := range members {
		balances[m] = make(map[string]int64)
	}

	for _, d := range debts {
		if d.Settled {
			continue
		}
		ccy := strings.ToUpper(d.Currency)
		if _, ok := balances[d.ToMember]; !ok {
			balances[d.ToMember] = make(map[string]int64)
		}
		if _, ok := balances[d.FromMember]; !ok {
			balances[d.FromMember] = make(map[string]int64)
		}
		balances[d.ToMember][ccy] += d.Amount
		balances[d.FromMember][ccy] -= d.Amount
	}
	return balances
}

// SummarizeBalances returns credit, debit and net per member and currency
// over unsettled debts, ordered by currency then member. Members in members
// with no debts at all are reported once with an empty currency.
func SummarizeBalances(debts []*models.Debt, members []string) []MemberBalance {
	type key struct{ member, currency string }
	sums := make(map[key]*MemberBalance)
	touched := make(map[string]bool)

	get := func(member, ccy string) *MemberBalance {
		k := key{member, ccy}
		if mb, ok := sums[k]; ok {
			return mb
		}
		mb := &MemberBalance{MemberID: member, Currency: ccy}
		sums[k] = mb
		touched[member] = true
		return mb
	}

	for _, d := range debts {
		if d.Settled {
			continue
		}
		ccy := strings.ToUpper(d.Currency)
		get(d.ToMember, ccy).Credit += d.Amount
		get(d.FromMember, ccy).Debit += d.Amount
	}
	for _, m := range members {
		if !touched[m] {
			get(m, "")
		}
	}

	out := make([]MemberBalance, 0, len(sums))
	for _, mb := range sums {
		mb.Net = mb.Credit - mb.Debit
		out = append(out, *mb)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency < out[j].Currency
		}
		return out[i].MemberID < out[j].MemberID
	})
	return out
}

// netBalances computes credits minus debits per member over the unsettled
// debts in one currency, dropping members that net to zero.
func netBalances(debts []*models.Debt) map[string]int64 {
	balances := make(map[string]int64)
	for _, d := range debts {
		balances[d.ToMember] += d.Amount
		balances[d.FromMember] -= d.Amount
	}
	for m, b := range balances {
		if b == 0 {
			delete(balances, m)
		}
	}
	return balances
}
