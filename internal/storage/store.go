// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// ClaimChange is one edit to a receipt's claims.
type ClaimChange struct {
	// Claim identifies the (item, member) pair. Its Portion is ignored
	// when Remove is set.
	Claim models.Claim

	// Remove deletes the claim instead of setting it.
	Remove bool
}

// Apply returns claims with the change applied. Setting replaces the
// portion of an existing (item, member) claim or appends a new one.
// Removing a claim that isn't there returns ErrNotFound.
func (c ClaimChange) Apply(claims []models.Claim) ([]models.Claim, error) {
	out := make([]models.Claim, 0, len(claims)+1)
	found := false
	for _, existing := range claims {
		if existing.LineItemID != c.Claim.LineItemID || existing.MemberID != c.Claim.MemberID {
			out = append(out, existing)
			continue
		}
		found = true
		if !c.Remove {
			out = append(out, c.Claim)
		}
	}
	if c.Remove && !found {
		return nil, fmt.Errorf("claim %s/%s: %w", c.Claim.LineItemID, c.Claim.MemberID, ErrNotFound)
	}
	if !c.Remove && !found {
		out = append(out, c.Claim)
	}
	return out, nil
}

// Store defines the persistence operations the ledger needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger or service layers.
//
// Every write is atomic: an operation either applies completely or leaves
// no trace.
type Store interface {
	// CreateGroup persists a new group and its members.
	// The group.ID and CreatedAt fields are populated when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members.
	// Returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddGroupMembers adds members to a group. Existing members are ignored.
	AddGroupMembers(ctx context.Context, groupID string, members []string) error

	// CreateReceipt persists a receipt together with its line items and
	// adds the payer to the receipt's group.
	// IDs and CreatedAt are populated when empty.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error

	// GetReceipt retrieves a receipt including its line items.
	// Returns ErrNotFound if the receipt does not exist.
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// ApplyClaimChange applies change to the receipt's claims and replaces
	// the receipt's unsettled debts with debts, in one transaction.
	// Returns ErrNotFound if the line item is not on the receipt or, for a
	// removal, if there was no such claim.
	ApplyClaimChange(ctx context.Context, receiptID string, change ClaimChange, debts []*models.Debt) error

	// ListClaimsByReceipt returns every claim on the receipt's line items.
	ListClaimsByReceipt(ctx context.Context, receiptID string) ([]models.Claim, error)

	// ReplaceReceiptDebts deletes the receipt's unsettled debts and inserts
	// debts in their place, in one transaction. Settled debts are kept.
	ReplaceReceiptDebts(ctx context.Context, receiptID string, debts []*models.Debt) error

	// ListUnsettledDebts returns a group's unsettled debts. An empty currency
	// means every currency.
	ListUnsettledDebts(ctx context.Context, groupID, currency string) ([]*models.Debt, error)

	// ListDebtsByGroup returns a group's debts, newest first.
	ListDebtsByGroup(ctx context.Context, groupID string, includeSettled bool) ([]*models.Debt, error)

	// GetDebt retrieves a debt by ID.
	// Returns ErrNotFound if the debt does not exist.
	GetDebt(ctx context.Context, debtID string) (*models.Debt, error)

	// ApplySimplification marks every debt in retire as settled with reason
	// "simplified" and inserts create, in one transaction. If any retired
	// debt is no longer unsettled it returns ErrConcurrentMutation and
	// changes nothing.
	ApplySimplification(ctx context.Context, retire []string, create []*models.Debt) error

	// SettleDebt marks a debt settled with the given reason and returns it.
	// Returns ErrNotFound or ErrAlreadySettled.
	SettleDebt(ctx context.Context, debtID string, reason models.SettlementReason) (*models.Debt, error)

	// SyncCurrencyPrecisions compares the persisted precision table with
	// entries. A first run persists entries. A difference returns
	// ErrPrecisionChanged unless migrate is set, in which case stored
	// amounts in the affected currencies are rescaled and the table replaced.
	// It returns the codes whose precision changed.
	SyncCurrencyPrecisions(ctx context.Context, entries map[string]int, migrate bool) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
