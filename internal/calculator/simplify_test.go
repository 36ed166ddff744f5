package calculator

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/mmynk/splitledger/internal/models"
)

func rngFor(seed int) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}

func debt(id, from, to string, amount int64, ccy string) *models.Debt {
	return &models.Debt{ID: id, GroupID: "g1", FromMember: from, ToMember: to, Amount: amount, Currency: ccy}
}

func TestSimplifyGroupDebts(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		debts    []*models.Debt
		want     []models.Debt
	}{
		{
			name:     "three debts become two",
			currency: "USD",
			debts: []*models.Debt{
				debt("d1", "A", "B", 500, "USD"),
				debt("d2", "C", "B", 300, "USD"),
				debt("d3", "B", "A", 200, "USD"),
			},
			// A=-300, B=+600, C=-300; tie between A and C goes to A
			want: []models.Debt{
				{FromMember: "A", ToMember: "B", Amount: 300},
				{FromMember: "C", ToMember: "B", Amount: 300},
			},
		},
		{
			name:     "cycle nets to nothing",
			currency: "USD",
			debts: []*models.Debt{
				debt("d1", "A", "B", 100, "USD"),
				debt("d2", "B", "C", 100, "USD"),
				debt("d3", "C", "A", 100, "USD"),
			},
			want: nil,
		},
		{
			name:     "chain collapses",
			currency: "USD",
			debts: []*models.Debt{
				debt("d1", "A", "B", 100, "USD"),
				debt("d2", "B", "C", 100, "USD"),
			},
			want: []models.Debt{{FromMember: "A", ToMember: "C", Amount: 100}},
		},
		{
			name:     "largest debtor pays largest creditor first",
			currency: "JPY",
			debts: []*models.Debt{
				debt("d1", "A", "X", 1000, "JPY"),
				debt("d2", "B", "Y", 400, "JPY"),
				debt("d3", "A", "Y", 200, "JPY"),
			},
			// A=-1200, B=-400, X=+1000, Y=+600. After A->X 1000, A is at
			// -200 and B at -400 is the most negative, so B pays next.
			want: []models.Debt{
				{FromMember: "A", ToMember: "X", Amount: 1000},
				{FromMember: "B", ToMember: "Y", Amount: 400},
				{FromMember: "A", ToMember: "Y", Amount: 200},
			},
		},
		{
			name:     "other currencies and settled debts are ignored",
			currency: "usd",
			debts: []*models.Debt{
				debt("d1", "A", "B", 100, "USD"),
				debt("d2", "B", "A", 999, "EUR"),
				{ID: "d3", GroupID: "g1", FromMember: "B", ToMember: "A", Amount: 100, Currency: "USD", Settled: true},
				{ID: "d4", GroupID: "other", FromMember: "B", ToMember: "A", Amount: 50, Currency: "USD"},
			},
			want: []models.Debt{{FromMember: "A", ToMember: "B", Amount: 100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := SimplifyGroupDebts("g1", tt.currency, tt.debts)
			if err != nil {
				t.Fatalf("SimplifyGroupDebts failed: %v", err)
			}
			if len(plan.Create) != len(tt.want) {
				t.Fatalf("got %d debts, want %d: %v", len(plan.Create), len(tt.want), describe(plan.Create))
			}
			for i, d := range plan.Create {
				w := tt.want[i]
				if d.FromMember != w.FromMember || d.ToMember != w.ToMember || d.Amount != w.Amount {
					t.Errorf("debt %d = %s->%s %d, want %s->%s %d",
						i, d.FromMember, d.ToMember, d.Amount, w.FromMember, w.ToMember, w.Amount)
				}
				if d.ReceiptID != "" || d.GroupID != "g1" {
					t.Errorf("debt %d has receipt %q group %q", i, d.ReceiptID, d.GroupID)
				}
			}
		})
	}
}

func TestSimplifyGroupDebts_RetiresEveryOpenDebt(t *testing.T) {
	debts := []*models.Debt{
		debt("d1", "A", "B", 500, "USD"),
		debt("d2", "C", "B", 300, "USD"),
		debt("d3", "B", "A", 200, "USD"),
		debt("d4", "A", "B", 10, "EUR"),
	}
	plan, err := SimplifyGroupDebts("g1", "USD", debts)
	if err != nil {
		t.Fatalf("SimplifyGroupDebts failed: %v", err)
	}
	want := map[string]bool{"d1": true, "d2": true, "d3": true}
	if len(plan.Retire) != len(want) {
		t.Fatalf("retire = %v, want d1..d3", plan.Retire)
	}
	for _, id := range plan.Retire {
		if !want[id] {
			t.Errorf("unexpected retired debt %s", id)
		}
	}
	if plan.Currency != "USD" {
		t.Errorf("currency = %q", plan.Currency)
	}
}

func TestSimplifyGroupDebts_NoOp(t *testing.T) {
	tests := []struct {
		name  string
		debts []*models.Debt
	}{
		{"no debts", nil},
		{"only other currency", []*models.Debt{debt("d1", "A", "B", 1, "EUR")}},
		{"only settled", []*models.Debt{{ID: "d1", GroupID: "g1", FromMember: "A", ToMember: "B", Amount: 1, Currency: "USD", Settled: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := SimplifyGroupDebts("g1", "USD", tt.debts)
			if !errors.Is(err, ErrNoUnsettledDebts) {
				t.Errorf("expected ErrNoUnsettledDebts, got %v", err)
			}
			if plan != nil {
				t.Errorf("expected nil plan, got %+v", plan)
			}
		})
	}
}

func TestSimplifyGroupDebts_PreservesBalancesAndIsMinimal(t *testing.T) {
	members := []string{"ana", "ben", "cai", "dee", "eli", "fay", "gus"}
	currencies := []string{"USD", "JPY", "KWD"}

	for i := 0; i < 300; i++ {
		rng := rngFor(i)
		var debts []*models.Debt
		for j := 0; j < 1+rng.Intn(25); j++ {
			from := members[rng.Intn(len(members))]
			to := members[rng.Intn(len(members))]
			if from == to {
				continue
			}
			debts = append(debts, debt(fmt.Sprintf("d%d", j), from, to, 1+rng.Int63n(100000), currencies[rng.Intn(len(currencies))]))
		}

		before := ComputeBalances(debts, members)
		for _, ccy := range currencies {
			plan, err := SimplifyGroupDebts("g1", ccy, debts)
			if errors.Is(err, ErrNoUnsettledDebts) {
				continue
			}
			if err != nil {
				t.Fatalf("SimplifyGroupDebts failed: %v", err)
			}

			after := ComputeBalances(plan.Create, members)
			for _, m := range members {
				if before.Of(m, ccy) != after.Of(m, ccy) {
					t.Fatalf("case %d %s: balance of %s changed %d -> %d", i, ccy, m, before.Of(m, ccy), after.Of(m, ccy))
				}
			}

			nonzero := len(plan.Balances)
			if nonzero > 0 && len(plan.Create) > nonzero-1 {
				t.Fatalf("case %d %s: %d debts for %d nonzero members", i, ccy, len(plan.Create), nonzero)
			}
			for _, d := range plan.Create {
				if d.FromMember == d.ToMember || d.Amount <= 0 {
					t.Fatalf("case %d: invalid simplified debt %+v", i, *d)
				}
				if d.Currency != ccy {
					t.Fatalf("case %d: debt crossed currencies: %s in %s plan", i, d.Currency, ccy)
				}
			}
		}
	}
}

func describe(debts []*models.Debt) []string {
	out := make([]string, len(debts))
	for i, d := range debts {
		out[i] = fmt.Sprintf("%s->%s %d", d.FromMember, d.ToMember, d.Amount)
	}
	return out
}
