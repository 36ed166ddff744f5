package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const debtColumns = `id, group_id, receipt_id, from_member, to_member, amount, currency,
	settled, settled_at, settlement_reason, created_at`

// ReplaceReceiptDebts swaps a receipt's unsettled debts for debts.
func (s *SQLiteStore) ReplaceReceiptDebts(ctx context.Context, receiptID string, debts []*models.Debt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failed("begin transaction", err)
	}
	defer tx.Rollback()

	if err := replaceReceiptDebts(ctx, tx, receiptID, debts, s.now().Unix()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return failed("commit transaction", err)
	}
	return nil
}

func replaceReceiptDebts(ctx context.Context, tx *sql.Tx, receiptID string, debts []*models.Debt, now int64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM debts WHERE receipt_id = ? AND settled = 0",
		receiptID,
	)
	if err != nil {
		return failed("delete receipt debts", err)
	}

	for _, d := range debts {
		d.ReceiptID = receiptID
		if err := insertDebt(ctx, tx, d, now); err != nil {
			return err
		}
	}
	return nil
}

// ListUnsettledDebts retrieves a group's unsettled debts, oldest first.
func (s *SQLiteStore) ListUnsettledDebts(ctx context.Context, groupID, currency string) ([]*models.Debt, error) {
	query := "SELECT " + debtColumns + " FROM debts WHERE group_id = ? AND settled = 0"
	args := []any{groupID}
	if currency != "" {
		query += " AND currency = ?"
		args = append(args, strings.ToUpper(currency))
	}
	query += " ORDER BY created_at, id"

	return s.queryDebts(ctx, query, args...)
}

// ListDebtsByGroup retrieves a group's debts, newest first.
func (s *SQLiteStore) ListDebtsByGroup(ctx context.Context, groupID string, includeSettled bool) ([]*models.Debt, error) {
	query := "SELECT " + debtColumns + " FROM debts WHERE group_id = ?"
	if !includeSettled {
		query += " AND settled = 0"
	}
	query += " ORDER BY created_at DESC, id"

	return s.queryDebts(ctx, query, groupID)
}

// GetDebt retrieves a debt by ID.
func (s *SQLiteStore) GetDebt(ctx context.Context, debtID string) (*models.Debt, error) {
	d, err := scanDebt(s.db.QueryRowContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE id = ?",
		debtID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return d, nil
}

// ApplySimplification retires debts and inserts their replacements atomically.
func (s *SQLiteStore) ApplySimplification(ctx context.Context, retire []string, create []*models.Debt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failed("begin transaction", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	for _, id := range retire {
		res, err := tx.ExecContext(ctx,
			`UPDATE debts SET settled = 1, settled_at = ?, settlement_reason = ?
			 WHERE id = ? AND settled = 0`,
			now, string(models.ReasonSimplified), id,
		)
		if err != nil {
			return failed("retire debt", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("debt %s no longer unsettled: %w", id, storage.ErrConcurrentMutation)
		}
	}

	for _, d := range create {
		if err := insertDebt(ctx, tx, d, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return failed("commit transaction", err)
	}
	return nil
}

// SettleDebt marks a single debt settled.
func (s *SQLiteStore) SettleDebt(ctx context.Context, debtID string, reason models.SettlementReason) (*models.Debt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, failed("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE debts SET settled = 1, settled_at = ?, settlement_reason = ?
		 WHERE id = ? AND settled = 0`,
		s.now().Unix(), string(reason), debtID,
	)
	if err != nil {
		return nil, failed("settle debt", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}

	d, err := scanDebt(tx.QueryRowContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE id = ?",
		debtID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, failed("get debt", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrAlreadySettled)
	}

	if err := tx.Commit(); err != nil {
		return nil, failed("commit transaction", err)
	}
	return d, nil
}

func insertDebt(ctx context.Context, tx *sql.Tx, d *models.Debt, now int64) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = now
	}
	d.Currency = strings.ToUpper(d.Currency)

	var receiptID any = nil
	if d.ReceiptID != "" {
		receiptID = d.ReceiptID
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO debts (id, group_id, receipt_id, from_member, to_member, amount, currency, settled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		d.ID, d.GroupID, receiptID, d.FromMember, d.ToMember, d.Amount, d.Currency, d.CreatedAt,
	)
	if err != nil {
		return failed("insert debt", err)
	}
	return nil
}

func (s *SQLiteStore) queryDebts(ctx context.Context, query string, args ...any) ([]*models.Debt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

func scanDebt(row rowScanner) (*models.Debt, error) {
	d := &models.Debt{}
	var (
		receiptID sql.NullString
		settledAt sql.NullInt64
		reason    sql.NullString
	)
	err := row.Scan(&d.ID, &d.GroupID, &receiptID, &d.FromMember, &d.ToMember, &d.Amount,
		&d.Currency, &d.Settled, &settledAt, &reason, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.ReceiptID = receiptID.String
	d.SettledAt = settledAt.Int64
	d.SettlementReason = models.SettlementReason(reason.String)
	return d, nil
}
