package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateReceipt persists a new receipt and its line items. The payer joins
// the group in the same transaction.
func (s *SQLiteStore) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	// Generate IDs if not set
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = s.now().Unix()
	}
	if receipt.Title == "" {
		receipt.Title = generateTitle(receipt.LineItems, time.Unix(receipt.CreatedAt, 0))
	}
	receipt.Currency = strings.ToUpper(receipt.Currency)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failed("begin transaction", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", receipt.GroupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", receipt.GroupID, storage.ErrNotFound)
	}
	if err != nil {
		return failed("check group existence", err)
	}

	if err := insertMembers(ctx, tx, receipt.GroupID, []string{receipt.PayerID}); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (id, group_id, title, currency, subtotal, tax, tip, service_fee, total, payer_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID, receipt.GroupID, receipt.Title, receipt.Currency,
		receipt.Subtotal, receipt.Tax, receipt.Tip, receipt.ServiceFee, receipt.Total,
		receipt.PayerID, receipt.CreatedAt,
	)
	if err != nil {
		return failed("insert receipt", err)
	}

	for i := range receipt.LineItems {
		item := &receipt.LineItems[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		item.ReceiptID = receipt.ID

		_, err = tx.ExecContext(ctx,
			`INSERT INTO line_items (id, receipt_id, position, description, total_price, quantity)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, receipt.ID, i, item.Description, item.TotalPrice, item.Quantity,
		)
		if err != nil {
			return failed("insert line item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return failed("commit transaction", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID, including its line items in their
// original order.
func (s *SQLiteStore) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	r := &models.Receipt{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, title, currency, subtotal, tax, tip, service_fee, total, payer_id, created_at
		 FROM receipts WHERE id = ?`,
		receiptID,
	).Scan(&r.ID, &r.GroupID, &r.Title, &r.Currency, &r.Subtotal, &r.Tax, &r.Tip,
		&r.ServiceFee, &r.Total, &r.PayerID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("receipt %s: %w", receiptID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, receipt_id, description, total_price, quantity
		 FROM line_items WHERE receipt_id = ? ORDER BY position`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.Description, &item.TotalPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		r.LineItems = append(r.LineItems, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate line items: %w", err)
	}

	return r, nil
}

// ApplyClaimChange sets or removes one claim, adds a new claimant to the
// receipt's group and swaps the receipt's unsettled debts for debts.
func (s *SQLiteStore) ApplyClaimChange(ctx context.Context, receiptID string, change storage.ClaimChange, debts []*models.Debt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failed("begin transaction", err)
	}
	defer tx.Rollback()

	var groupID string
	err = tx.QueryRowContext(ctx,
		`SELECT r.group_id FROM line_items li
		 JOIN receipts r ON r.id = li.receipt_id
		 WHERE li.id = ? AND li.receipt_id = ?`,
		change.Claim.LineItemID, receiptID,
	).Scan(&groupID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("line item %s on receipt %s: %w", change.Claim.LineItemID, receiptID, storage.ErrNotFound)
	}
	if err != nil {
		return failed("check line item existence", err)
	}

	if change.Remove {
		err = deleteClaim(ctx, tx, change.Claim.LineItemID, change.Claim.MemberID)
	} else {
		err = upsertClaim(ctx, tx, groupID, change.Claim)
	}
	if err != nil {
		return err
	}

	if err := replaceReceiptDebts(ctx, tx, receiptID, debts, s.now().Unix()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return failed("commit transaction", err)
	}
	return nil
}

func upsertClaim(ctx context.Context, tx *sql.Tx, groupID string, claim models.Claim) error {
	if err := insertMembers(ctx, tx, groupID, []string{claim.MemberID}); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO line_item_claims (line_item_id, member_id, portion) VALUES (?, ?, ?)
		 ON CONFLICT (line_item_id, member_id) DO UPDATE SET portion = excluded.portion`,
		claim.LineItemID, claim.MemberID, claim.Portion,
	)
	if err != nil {
		return failed("upsert claim", err)
	}
	return nil
}

func deleteClaim(ctx context.Context, tx *sql.Tx, lineItemID, memberID string) error {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM line_item_claims WHERE line_item_id = ? AND member_id = ?",
		lineItemID, memberID,
	)
	if err != nil {
		return failed("delete claim", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("claim %s/%s: %w", lineItemID, memberID, storage.ErrNotFound)
	}
	return nil
}

// ListClaimsByReceipt returns every claim on the receipt's line items,
// ordered by item position then member.
func (s *SQLiteStore) ListClaimsByReceipt(ctx context.Context, receiptID string) ([]models.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.line_item_id, c.member_id, c.portion
		 FROM line_item_claims c
		 JOIN line_items li ON li.id = c.line_item_id
		 WHERE li.receipt_id = ?
		 ORDER BY li.position, c.member_id`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []models.Claim
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(&c.LineItemID, &c.MemberID, &c.Portion); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}
	return claims, nil
}

// generateTitle creates an auto-generated title from the line items.
func generateTitle(items []models.LineItem, at time.Time) string {
	var names []string
	for _, item := range items {
		if item.Description != "" {
			names = append(names, item.Description)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Receipt - %s", at.Format("Jan 2, 2006"))
	}
	if len(names) <= 3 {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}
