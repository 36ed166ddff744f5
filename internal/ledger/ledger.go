// Package ledger coordinates the calculator with persistent storage.
//
// It is the only writer of debts. Work on one receipt is serialized under a
// per-receipt lock, and work on one (group, currency) pair under a
// per-pair lock, so derivation and simplification never interleave on the
// same debts. The store's own conflict detection backs this up across
// processes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// DefaultLockTimeout bounds how long an operation waits for another one on
// the same receipt or group currency.
const DefaultLockTimeout = 10 * time.Second

// Config controls ledger behavior.
type Config struct {
	// Remainder decides who absorbs allocation rounding drift.
	Remainder calculator.RemainderPolicy

	// LockTimeout bounds lock waits. Zero means DefaultLockTimeout.
	LockTimeout time.Duration

	// Precision is the currency precision table. The zero value means
	// money.DefaultTable().
	Precision *money.Table

	// Locale drives Format's digit grouping. Zero means English.
	Locale language.Tag
}

// Ledger is the settlement ledger.
type Ledger struct {
	store     storage.Store
	cfg       Config
	table     money.Table
	formatter *money.Formatter
	locks     *keyedLock
	metrics   *metrics.Metrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMetrics records ledger activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New creates a Ledger on top of store.
func New(store storage.Store, cfg Config, opts ...Option) *Ledger {
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.Remainder == "" {
		cfg.Remainder = calculator.RemainderNone
	}
	table := money.DefaultTable()
	if cfg.Precision != nil {
		table = *cfg.Precision
	}
	locale := cfg.Locale
	if locale == language.Und {
		locale = language.English
	}

	l := &Ledger{
		store:     store,
		cfg:       cfg,
		table:     table,
		formatter: money.NewFormatter(table, locale),
		locks:     newKeyedLock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Table returns the precision table the ledger was configured with.
func (l *Ledger) Table() money.Table {
	return l.table
}

// Derivation is the outcome of (re)deriving one receipt's debts.
type Derivation struct {
	Receipt    *models.Receipt
	Allocation *calculator.Allocation
	Debts      []*models.Debt
}

// Simplification is the outcome of simplifying one group currency.
// NoOp is set when there were no unsettled debts.
type Simplification struct {
	GroupID  string
	Currency string
	NoOp     bool
	Retired  []string
	Created  []*models.Debt
}

// CreateGroup creates a group with the given members.
func (l *Ledger) CreateGroup(ctx context.Context, name string, members []string) (*models.Group, error) {
	group := &models.Group{Name: name, Members: dedupe(members)}
	if err := l.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

// GetGroup returns a group with its members.
func (l *Ledger) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return l.store.GetGroup(ctx, groupID)
}

// AddMembers adds members to a group.
func (l *Ledger) AddMembers(ctx context.Context, groupID string, members []string) error {
	return l.store.AddGroupMembers(ctx, groupID, dedupe(members))
}

// CreateReceipt validates and records a receipt. The payer joins the group
// if they weren't a member yet.
func (l *Ledger) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	code, err := money.NormalizeCode(receipt.Currency)
	if err != nil {
		return fmt.Errorf("%w: %w", calculator.ErrInvalidReceipt, err)
	}
	receipt.Currency = code

	if receipt.PayerID == "" {
		return fmt.Errorf("%w: payer is required", calculator.ErrInvalidReceipt)
	}
	if receipt.Subtotal <= 0 || receipt.Total <= 0 {
		return fmt.Errorf("%w: subtotal and total must be positive", calculator.ErrInvalidReceipt)
	}
	for _, item := range receipt.LineItems {
		if item.TotalPrice < 0 {
			return fmt.Errorf("%w: line item %q has a negative price", calculator.ErrInvalidReceipt, item.Description)
		}
	}
	if !receipt.FeesBalance() {
		slog.Warn("Receipt total does not match subtotal plus fees",
			"group_id", receipt.GroupID,
			"subtotal", receipt.Subtotal,
			"tax", receipt.Tax,
			"tip", receipt.Tip,
			"service_fee", receipt.ServiceFee,
			"total", receipt.Total,
		)
	}

	if err := l.store.CreateReceipt(ctx, receipt); err != nil {
		return fmt.Errorf("failed to create receipt: %w", err)
	}
	return nil
}

// GetReceipt returns a receipt with its line items.
func (l *Ledger) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	return l.store.GetReceipt(ctx, receiptID)
}

// SetClaim records a member's portion of a line item and re-derives the
// receipt's debts. A claimant who isn't in the group yet joins it. The claim
// and the new debts are written together or not at all.
func (l *Ledger) SetClaim(ctx context.Context, receiptID string, claim models.Claim) (*Derivation, error) {
	if math.IsNaN(claim.Portion) || math.IsInf(claim.Portion, 0) || claim.Portion <= 0 {
		return nil, fmt.Errorf("%w: portion must be a positive number, got %v", calculator.ErrInvalidClaim, claim.Portion)
	}
	if claim.MemberID == "" {
		return nil, fmt.Errorf("%w: member is required", calculator.ErrInvalidClaim)
	}
	return l.withReceipt(ctx, receiptID, &storage.ClaimChange{Claim: claim})
}

// DeleteClaim removes a member's claim on a line item and re-derives the
// receipt's debts.
func (l *Ledger) DeleteClaim(ctx context.Context, receiptID, lineItemID, memberID string) (*Derivation, error) {
	return l.withReceipt(ctx, receiptID, &storage.ClaimChange{
		Claim:  models.Claim{LineItemID: lineItemID, MemberID: memberID},
		Remove: true,
	})
}

// DeriveReceipt recomputes a receipt's debts from its current claims and
// replaces its unsettled debts with the result. Calling it twice with the
// same claims leaves the same debt set.
func (l *Ledger) DeriveReceipt(ctx context.Context, receiptID string) (*Derivation, error) {
	return l.withReceipt(ctx, receiptID, nil)
}

// Allocate computes member shares for a receipt without writing anything.
func (l *Ledger) Allocate(ctx context.Context, receiptID string) (*models.Receipt, *calculator.Allocation, error) {
	receipt, err := l.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, nil, err
	}
	claims, err := l.store.ListClaimsByReceipt(ctx, receiptID)
	if err != nil {
		return nil, nil, err
	}
	alloc, err := calculator.Allocator{Remainder: l.cfg.Remainder}.Allocate(receipt, receipt.LineItems, claims)
	if err != nil {
		return nil, nil, err
	}
	return receipt, alloc, nil
}

// withReceipt re-derives a receipt's debts under the receipt's lock and its
// group currency's lock. With a change, debts are derived from the claims as
// they will be after it, and the change and the debts are stored in one write.
func (l *Ledger) withReceipt(ctx context.Context, receiptID string, change *storage.ClaimChange) (*Derivation, error) {
	release, err := l.lock(ctx, receiptKey(receiptID), "derive")
	if err != nil {
		return nil, err
	}
	defer release()

	receipt, err := l.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	releaseGroup, err := l.lock(ctx, groupKey(receipt.GroupID, receipt.Currency), "derive")
	if err != nil {
		return nil, err
	}
	defer releaseGroup()

	claims, err := l.store.ListClaimsByReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if change != nil {
		if !hasItem(receipt, change.Claim.LineItemID) {
			return nil, fmt.Errorf("line item %s on receipt %s: %w", change.Claim.LineItemID, receiptID, storage.ErrNotFound)
		}
		if claims, err = change.Apply(claims); err != nil {
			return nil, err
		}
	}

	alloc, err := calculator.Allocator{Remainder: l.cfg.Remainder}.Allocate(receipt, receipt.LineItems, claims)
	if err != nil {
		return nil, err
	}
	debts, err := calculator.DeriveDebts(receipt, alloc.Shares)
	if err != nil {
		return nil, err
	}

	if change != nil {
		err = l.store.ApplyClaimChange(ctx, receiptID, *change, debts)
	} else {
		err = l.store.ReplaceReceiptDebts(ctx, receiptID, debts)
	}
	if err != nil {
		if storage.IsRetryable(err) {
			l.metrics.ObserveConflict("derive")
		}
		return nil, fmt.Errorf("failed to replace receipt debts: %w", err)
	}
	l.metrics.ObserveDerived(len(debts))

	slog.Debug("Receipt debts derived",
		"receipt_id", receiptID,
		"claims", len(claims),
		"debts", len(debts),
		"remainder", alloc.Remainder,
	)
	return &Derivation{Receipt: receipt, Allocation: alloc, Debts: debts}, nil
}

// Simplify replaces a group's unsettled debts in one currency with the
// minimal equivalent set. A group with nothing to simplify yields NoOp.
func (l *Ledger) Simplify(ctx context.Context, groupID, currency string) (*Simplification, error) {
	code, err := money.NormalizeCode(currency)
	if err != nil {
		return nil, err
	}

	release, err := l.lock(ctx, groupKey(groupID, code), "simplify")
	if err != nil {
		return nil, err
	}
	defer release()

	debts, err := l.store.ListUnsettledDebts(ctx, groupID, code)
	if err != nil {
		return nil, err
	}

	plan, err := calculator.SimplifyGroupDebts(groupID, code, debts)
	if errors.Is(err, calculator.ErrNoUnsettledDebts) {
		return &Simplification{GroupID: groupID, Currency: code, NoOp: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := l.store.ApplySimplification(ctx, plan.Retire, plan.Create); err != nil {
		if storage.IsRetryable(err) {
			l.metrics.ObserveConflict("simplify")
		}
		return nil, fmt.Errorf("failed to apply simplification: %w", err)
	}
	l.metrics.ObserveSimplified(code, len(plan.Retire), len(plan.Create))

	slog.Info("Group debts simplified",
		"group_id", groupID,
		"currency", code,
		"retired", len(plan.Retire),
		"created", len(plan.Create),
	)
	return &Simplification{
		GroupID:  groupID,
		Currency: code,
		Retired:  plan.Retire,
		Created:  plan.Create,
	}, nil
}

// SimplifyGroup simplifies every currency with unsettled debts in the group,
// one goroutine per currency. Results are ordered by currency.
func (l *Ledger) SimplifyGroup(ctx context.Context, groupID string) ([]*Simplification, error) {
	if _, err := l.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	debts, err := l.store.ListUnsettledDebts(ctx, groupID, "")
	if err != nil {
		return nil, err
	}

	var currencies []string
	for _, d := range debts {
		if !slices.Contains(currencies, d.Currency) {
			currencies = append(currencies, d.Currency)
		}
	}
	sort.Strings(currencies)

	results := make([]*Simplification, len(currencies))
	g, gctx := errgroup.WithContext(ctx)
	for i, ccy := range currencies {
		g.Go(func() error {
			res, err := l.Simplify(gctx, groupID, ccy)
			if err != nil {
				return fmt.Errorf("%s: %w", ccy, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Balances returns net balances and per-member summaries over a group's
// unsettled debts.
func (l *Ledger) Balances(ctx context.Context, groupID string) (calculator.Balances, []calculator.MemberBalance, error) {
	group, err := l.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	debts, err := l.store.ListUnsettledDebts(ctx, groupID, "")
	if err != nil {
		return nil, nil, err
	}
	return calculator.ComputeBalances(debts, group.Members), calculator.SummarizeBalances(debts, group.Members), nil
}

// Debts lists a group's debts, newest first.
func (l *Ledger) Debts(ctx context.Context, groupID string, includeSettled bool) ([]*models.Debt, error) {
	if _, err := l.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return l.store.ListDebtsByGroup(ctx, groupID, includeSettled)
}

// SettleDebt records that a debt was paid.
func (l *Ledger) SettleDebt(ctx context.Context, debtID string) (*models.Debt, error) {
	d, err := l.store.GetDebt(ctx, debtID)
	if err != nil {
		return nil, err
	}

	release, err := l.lock(ctx, groupKey(d.GroupID, d.Currency), "settle")
	if err != nil {
		return nil, err
	}
	defer release()

	settled, err := l.store.SettleDebt(ctx, debtID, models.ReasonPayment)
	if err != nil {
		return nil, err
	}
	slog.Info("Debt settled",
		"debt_id", debtID,
		"from", settled.FromMember,
		"to", settled.ToMember,
		"amount", l.Format(settled.Amount, settled.Currency),
	)
	return settled, nil
}

// Convert converts minor units between currencies for display.
func (l *Ledger) Convert(minor int64, from, to string, rates money.ExchangeRateSet) (int64, error) {
	return l.table.Convert(minor, from, to, rates)
}

// Format renders minor units with the configured locale.
func (l *Ledger) Format(minor int64, currency string) string {
	return l.formatter.Format(minor, currency)
}

func (l *Ledger) lock(ctx context.Context, key, operation string) (func(), error) {
	start := time.Now()
	release, err := l.locks.acquire(ctx, key, l.cfg.LockTimeout)
	l.metrics.ObserveLockWait(time.Since(start).Seconds())
	if err != nil {
		if storage.IsRetryable(err) {
			l.metrics.ObserveConflict(operation)
		}
		return nil, err
	}
	return release, nil
}

func hasItem(receipt *models.Receipt, lineItemID string) bool {
	for _, item := range receipt.LineItems {
		if item.ID == lineItemID {
			return true
		}
	}
	return false
}

func dedupe(members []string) []string {
	seen := make(map[string]bool, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
