package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func seedReceipt(t *testing.T, store *SQLiteStore) (*models.Group, *models.Receipt) {
	t.Helper()
	ctx := context.Background()

	group := &models.Group{Name: "Lisbon trip", Members: []string{"alice", "bob", "carol"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	receipt := &models.Receipt{
		GroupID:  group.ID,
		Currency: "usd",
		Subtotal: 10000,
		Tax:      1000,
		Total:    11000,
		PayerID:  "alice",
		LineItems: []models.LineItem{
			{Description: "Bacalhau", TotalPrice: 6000},
			{Description: "Vinho verde", TotalPrice: 4000, Quantity: 2},
		},
	}
	if err := store.CreateReceipt(ctx, receipt); err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	return group, receipt
}

func TestSQLiteStore(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup generates ID and keeps members", func(t *testing.T) {
		group := &models.Group{Name: "Roommates", Members: []string{"zed", "amy", "amy"}}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(got.Members) != 2 || got.Members[0] != "amy" || got.Members[1] != "zed" {
			t.Errorf("Members = %v, want [amy zed]", got.Members)
		}

		if err := store.AddGroupMembers(ctx, group.ID, []string{"bea", "zed"}); err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}
		got, _ = store.GetGroup(ctx, group.ID)
		if len(got.Members) != 3 {
			t.Errorf("Members after add = %v, want 3", got.Members)
		}
	})

	t.Run("missing records return ErrNotFound", func(t *testing.T) {
		if _, err := store.GetGroup(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetGroup: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetReceipt(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetReceipt: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetDebt(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetDebt: expected ErrNotFound, got %v", err)
		}
		if err := store.AddGroupMembers(ctx, "nope", []string{"x"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("AddGroupMembers: expected ErrNotFound, got %v", err)
		}
		change := storage.ClaimChange{Claim: models.Claim{LineItemID: "nope", MemberID: "x", Portion: 1}}
		if err := store.ApplyClaimChange(ctx, "nope", change, nil); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("ApplyClaimChange: expected ErrNotFound, got %v", err)
		}
		r := &models.Receipt{GroupID: "nope", Currency: "USD", Subtotal: 1, Total: 1, PayerID: "x"}
		if err := store.CreateReceipt(ctx, r); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("CreateReceipt: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetReceipt retrieves complete receipt", func(t *testing.T) {
		_, original := seedReceipt(t, store)

		got, err := store.GetReceipt(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.Currency != "USD" {
			t.Errorf("Currency = %s, want USD", got.Currency)
		}
		if got.Subtotal != 10000 || got.Tax != 1000 || got.Total != 11000 {
			t.Errorf("amounts = %d/%d/%d", got.Subtotal, got.Tax, got.Total)
		}
		if got.Title != "Bacalhau, Vinho verde" {
			t.Errorf("Title = %q", got.Title)
		}
		if len(got.LineItems) != 2 {
			t.Fatalf("Items count mismatch: got %d, want 2", len(got.LineItems))
		}
		if got.LineItems[0].Description != "Bacalhau" || got.LineItems[1].Quantity != 2 {
			t.Errorf("line items out of order or wrong: %+v", got.LineItems)
		}
		if got.LineItems[0].Quantity != 1 {
			t.Errorf("default quantity = %d, want 1", got.LineItems[0].Quantity)
		}
	})

	t.Run("claims set and remove", func(t *testing.T) {
		g, r := seedReceipt(t, store)
		item := r.LineItems[1].ID

		set := func(member string, portion float64) error {
			change := storage.ClaimChange{Claim: models.Claim{LineItemID: item, MemberID: member, Portion: portion}}
			return store.ApplyClaimChange(ctx, r.ID, change, nil)
		}
		if err := set("bob", 1); err != nil {
			t.Fatalf("ApplyClaimChange failed: %v", err)
		}
		if err := set("bob", 2.5); err != nil {
			t.Fatalf("ApplyClaimChange replace failed: %v", err)
		}
		first := storage.ClaimChange{Claim: models.Claim{LineItemID: r.LineItems[0].ID, MemberID: "dave", Portion: 1}}
		if err := store.ApplyClaimChange(ctx, r.ID, first, nil); err != nil {
			t.Fatalf("ApplyClaimChange failed: %v", err)
		}

		claims, err := store.ListClaimsByReceipt(ctx, r.ID)
		if err != nil {
			t.Fatalf("ListClaimsByReceipt failed: %v", err)
		}
		if len(claims) != 2 {
			t.Fatalf("got %d claims, want 2", len(claims))
		}
		if claims[0].MemberID != "dave" || claims[1].Portion != 2.5 {
			t.Errorf("claims = %+v", claims)
		}

		// a new claimant joins the group
		got, _ := store.GetGroup(ctx, g.ID)
		if len(got.Members) != 4 {
			t.Errorf("Members = %v, want dave added", got.Members)
		}

		remove := storage.ClaimChange{Claim: models.Claim{LineItemID: item, MemberID: "bob"}, Remove: true}
		if err := store.ApplyClaimChange(ctx, r.ID, remove, nil); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if err := store.ApplyClaimChange(ctx, r.ID, remove, nil); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second remove: expected ErrNotFound, got %v", err)
		}

		// an item from another receipt is not on this one
		_, other := seedReceipt(t, store)
		wrong := storage.ClaimChange{Claim: models.Claim{LineItemID: other.LineItems[0].ID, MemberID: "bob", Portion: 1}}
		if err := store.ApplyClaimChange(ctx, r.ID, wrong, nil); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("foreign item: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ApplyClaimChange writes nothing when a debt insert fails", func(t *testing.T) {
		g, r := seedReceipt(t, store)
		item := r.LineItems[0].ID

		initial := storage.ClaimChange{Claim: models.Claim{LineItemID: item, MemberID: "bob", Portion: 1}}
		before := []*models.Debt{{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 6600, Currency: "USD"}}
		if err := store.ApplyClaimChange(ctx, r.ID, initial, before); err != nil {
			t.Fatalf("ApplyClaimChange failed: %v", err)
		}

		// a self-debt violates the debts CHECK constraint after the claim
		// has been written inside the transaction
		change := storage.ClaimChange{Claim: models.Claim{LineItemID: item, MemberID: "erin", Portion: 1}}
		bad := []*models.Debt{
			{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 3300, Currency: "USD"},
			{GroupID: g.ID, FromMember: "erin", ToMember: "erin", Amount: 3300, Currency: "USD"},
		}
		if err := store.ApplyClaimChange(ctx, r.ID, change, bad); err == nil {
			t.Fatal("expected ApplyClaimChange to fail")
		}

		claims, _ := store.ListClaimsByReceipt(ctx, r.ID)
		if len(claims) != 1 || claims[0].MemberID != "bob" {
			t.Errorf("claims after failed change = %+v, want only bob", claims)
		}
		debts, _ := store.ListUnsettledDebts(ctx, g.ID, "USD")
		if len(debts) != 1 || debts[0].ID != before[0].ID || debts[0].Amount != 6600 {
			t.Errorf("debts after failed change = %+v, want the original 6600", debts)
		}
		got, _ := store.GetGroup(ctx, g.ID)
		for _, m := range got.Members {
			if m == "erin" {
				t.Error("erin joined the group although the change failed")
			}
		}
	})

	t.Run("CreateReceipt adds the payer with the receipt or not at all", func(t *testing.T) {
		g, r := seedReceipt(t, store)

		ok := &models.Receipt{GroupID: g.ID, Currency: "USD", Subtotal: 500, Total: 500, PayerID: "frank"}
		if err := store.CreateReceipt(ctx, ok); err != nil {
			t.Fatalf("CreateReceipt failed: %v", err)
		}

		// reusing an ID fails on the receipts primary key
		dup := &models.Receipt{ID: r.ID, GroupID: g.ID, Currency: "USD", Subtotal: 500, Total: 500, PayerID: "gina"}
		if err := store.CreateReceipt(ctx, dup); err == nil {
			t.Fatal("expected duplicate receipt to fail")
		}

		got, _ := store.GetGroup(ctx, g.ID)
		members := strings.Join(got.Members, ",")
		if !strings.Contains(members, "frank") {
			t.Errorf("Members = %v, want frank added", got.Members)
		}
		if strings.Contains(members, "gina") {
			t.Errorf("Members = %v, gina should not join on a failed receipt", got.Members)
		}
	})

	t.Run("ReplaceReceiptDebts keeps exactly one debt set", func(t *testing.T) {
		g, r := seedReceipt(t, store)

		first := []*models.Debt{
			{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 4400, Currency: "USD"},
			{GroupID: g.ID, FromMember: "carol", ToMember: "alice", Amount: 100, Currency: "USD"},
		}
		if err := store.ReplaceReceiptDebts(ctx, r.ID, first); err != nil {
			t.Fatalf("ReplaceReceiptDebts failed: %v", err)
		}
		second := []*models.Debt{
			{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 4500, Currency: "USD"},
		}
		if err := store.ReplaceReceiptDebts(ctx, r.ID, second); err != nil {
			t.Fatalf("ReplaceReceiptDebts failed: %v", err)
		}

		debts, err := store.ListUnsettledDebts(ctx, g.ID, "usd")
		if err != nil {
			t.Fatalf("ListUnsettledDebts failed: %v", err)
		}
		if len(debts) != 1 || debts[0].Amount != 4500 || debts[0].ReceiptID != r.ID {
			t.Errorf("debts after re-derive = %+v", debts)
		}
	})

	t.Run("ReplaceReceiptDebts leaves settled debts alone", func(t *testing.T) {
		g, r := seedReceipt(t, store)
		debts := []*models.Debt{{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 4400, Currency: "USD"}}
		if err := store.ReplaceReceiptDebts(ctx, r.ID, debts); err != nil {
			t.Fatalf("ReplaceReceiptDebts failed: %v", err)
		}
		if _, err := store.SettleDebt(ctx, debts[0].ID, models.ReasonPayment); err != nil {
			t.Fatalf("SettleDebt failed: %v", err)
		}
		if err := store.ReplaceReceiptDebts(ctx, r.ID, nil); err != nil {
			t.Fatalf("ReplaceReceiptDebts failed: %v", err)
		}

		all, err := store.ListDebtsByGroup(ctx, g.ID, true)
		if err != nil {
			t.Fatalf("ListDebtsByGroup failed: %v", err)
		}
		if len(all) != 1 || !all[0].Settled {
			t.Errorf("settled debt should survive re-derivation, got %+v", all)
		}
	})

	t.Run("SettleDebt", func(t *testing.T) {
		g, r := seedReceipt(t, store)
		debts := []*models.Debt{{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 4400, Currency: "USD"}}
		if err := store.ReplaceReceiptDebts(ctx, r.ID, debts); err != nil {
			t.Fatalf("ReplaceReceiptDebts failed: %v", err)
		}

		got, err := store.SettleDebt(ctx, debts[0].ID, models.ReasonPayment)
		if err != nil {
			t.Fatalf("SettleDebt failed: %v", err)
		}
		if !got.Settled || got.SettledAt == 0 || got.SettlementReason != models.ReasonPayment {
			t.Errorf("settled debt = %+v", got)
		}

		if _, err := store.SettleDebt(ctx, debts[0].ID, models.ReasonPayment); !errors.Is(err, storage.ErrAlreadySettled) {
			t.Errorf("expected ErrAlreadySettled, got %v", err)
		}
		if _, err := store.SettleDebt(ctx, "nope", models.ReasonPayment); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		open, _ := store.ListDebtsByGroup(ctx, g.ID, false)
		if len(open) != 0 {
			t.Errorf("expected no open debts, got %d", len(open))
		}
	})

	t.Run("ApplySimplification retires and creates atomically", func(t *testing.T) {
		g, r := seedReceipt(t, store)
		debts := []*models.Debt{
			{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 500, Currency: "USD"},
			{GroupID: g.ID, FromMember: "carol", ToMember: "alice", Amount: 300, Currency: "USD"},
		}
		if err := store.ReplaceReceiptDebts(ctx, r.ID, debts); err != nil {
			t.Fatalf("ReplaceReceiptDebts failed: %v", err)
		}

		create := []*models.Debt{{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 800, Currency: "USD"}}
		if err := store.ApplySimplification(ctx, []string{debts[0].ID, "missing"}, create); !errors.Is(err, storage.ErrConcurrentMutation) {
			t.Fatalf("expected ErrConcurrentMutation, got %v", err)
		}
		open, _ := store.ListUnsettledDebts(ctx, g.ID, "USD")
		if len(open) != 2 {
			t.Fatalf("failed simplification left %d open debts, want 2", len(open))
		}

		create = []*models.Debt{{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 800, Currency: "USD"}}
		if err := store.ApplySimplification(ctx, []string{debts[0].ID, debts[1].ID}, create); err != nil {
			t.Fatalf("ApplySimplification failed: %v", err)
		}

		open, _ = store.ListUnsettledDebts(ctx, g.ID, "USD")
		if len(open) != 1 || open[0].Amount != 800 || open[0].ReceiptID != "" {
			t.Errorf("open debts = %+v", open)
		}
		retired, _ := store.GetDebt(ctx, debts[0].ID)
		if !retired.Settled || retired.SettlementReason != models.ReasonSimplified {
			t.Errorf("retired debt = %+v", retired)
		}
	})
}

func TestApplySimplification_ConcurrentRetireSucceedsOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	g, r := seedReceipt(t, store)

	debts := []*models.Debt{
		{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 500, Currency: "USD"},
		{GroupID: g.ID, FromMember: "alice", ToMember: "carol", Amount: 500, Currency: "USD"},
	}
	if err := store.ReplaceReceiptDebts(ctx, r.ID, debts); err != nil {
		t.Fatalf("ReplaceReceiptDebts failed: %v", err)
	}
	retire := []string{debts[0].ID, debts[1].ID}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			create := []*models.Debt{{GroupID: g.ID, FromMember: "bob", ToMember: "carol", Amount: 500, Currency: "USD"}}
			err := store.ApplySimplification(ctx, retire, create)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case storage.IsRetryable(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != workers-1 {
		t.Errorf("succeeded=%d conflicts=%d, want 1 and %d", succeeded, conflicts, workers-1)
	}
	open, _ := store.ListUnsettledDebts(ctx, g.ID, "")
	if len(open) != 1 {
		t.Errorf("got %d open debts, want 1", len(open))
	}
}

func TestSyncCurrencyPrecisions(t *testing.T) {
	store, dbPath := newTestStore(t)
	ctx := context.Background()

	initial := map[string]int{"JPY": 0, "KWD": 3}
	if changed, err := store.SyncCurrencyPrecisions(ctx, initial, false); err != nil || len(changed) != 0 {
		t.Fatalf("first sync = %v, %v", changed, err)
	}
	if _, err := store.SyncCurrencyPrecisions(ctx, initial, false); err != nil {
		t.Fatalf("same table rejected: %v", err)
	}

	g, r := seedReceipt(t, store)
	debts := []*models.Debt{
		{GroupID: g.ID, FromMember: "bob", ToMember: "alice", Amount: 4450, Currency: "USD"},
		{GroupID: g.ID, FromMember: "carol", ToMember: "alice", Amount: 40, Currency: "USD"},
	}
	if err := store.ReplaceReceiptDebts(ctx, r.ID, debts); err != nil {
		t.Fatalf("ReplaceReceiptDebts failed: %v", err)
	}

	// USD becomes a zero-decimal currency
	changedTable := map[string]int{"JPY": 0, "KWD": 3, "USD": 0}
	changed, err := store.SyncCurrencyPrecisions(ctx, changedTable, false)
	if !errors.Is(err, storage.ErrPrecisionChanged) {
		t.Fatalf("expected ErrPrecisionChanged, got %v", err)
	}
	if len(changed) != 1 || changed[0] != "USD" {
		t.Errorf("changed = %v, want [USD]", changed)
	}
	if !strings.Contains(err.Error(), "USD") {
		t.Errorf("error should name the currency: %v", err)
	}

	// reopening with the old table still works
	store.Close()
	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.SyncCurrencyPrecisions(ctx, initial, false); err != nil {
		t.Fatalf("original table rejected after failed change: %v", err)
	}

	if _, err := reopened.SyncCurrencyPrecisions(ctx, changedTable, true); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	got, err := reopened.GetReceipt(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReceipt failed: %v", err)
	}
	if got.Subtotal != 100 || got.Tax != 10 || got.Total != 110 {
		t.Errorf("rescaled receipt = %d/%d/%d, want 100/10/110", got.Subtotal, got.Tax, got.Total)
	}
	if got.LineItems[0].TotalPrice != 60 {
		t.Errorf("rescaled item = %d, want 60", got.LineItems[0].TotalPrice)
	}

	open, _ := reopened.ListUnsettledDebts(ctx, g.ID, "USD")
	if len(open) != 1 || open[0].Amount != 45 {
		t.Errorf("rescaled debts = %+v, want one debt of 45", open)
	}

	if _, err := reopened.SyncCurrencyPrecisions(ctx, changedTable, false); err != nil {
		t.Errorf("migrated table rejected: %v", err)
	}
}

func TestGenerateTitle(t *testing.T) {
	at := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	item := func(d string) models.LineItem { return models.LineItem{Description: d} }

	tests := []struct {
		items        []models.LineItem
		wantContains string
	}{
		{nil, "Receipt - Mar 14, 2026"},
		{[]models.LineItem{item("")}, "Receipt -"},
		{[]models.LineItem{item("Pizza")}, "Pizza"},
		{[]models.LineItem{item("Pizza"), item("Beer"), item("Salad")}, "Pizza, Beer, Salad"},
		{[]models.LineItem{item("Pizza"), item("Beer"), item("Salad"), item("Tiramisu")}, "Pizza, Beer and 2 more"},
	}

	for _, tt := range tests {
		t.Run(tt.wantContains, func(t *testing.T) {
			got := generateTitle(tt.items, at)
			if !strings.Contains(got, tt.wantContains) {
				t.Errorf("generateTitle() = %q, want to contain %q", got, tt.wantContains)
			}
		})
	}
}
