package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// SyncCurrencyPrecisions guards stored amounts against a silent change of a
// currency's minor unit.
func (s *SQLiteStore) SyncCurrencyPrecisions(ctx context.Context, entries map[string]int, migrate bool) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, failed("begin transaction", err)
	}
	defer tx.Rollback()

	stored, err := loadPrecisions(ctx, tx)
	if err != nil {
		return nil, err
	}

	var changed []string
	if len(stored) > 0 {
		changed = diffPrecisions(stored, entries)
	}
	if len(changed) > 0 && !migrate {
		return changed, fmt.Errorf("%w: %s", storage.ErrPrecisionChanged, strings.Join(changed, ", "))
	}

	for _, code := range changed {
		shift := decimalsOf(entries, code) - decimalsOf(stored, code)
		if err := rescaleCurrency(ctx, tx, code, shift); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM currency_precisions"); err != nil {
		return nil, failed("clear currency precisions", err)
	}
	for code, d := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO currency_precisions (code, decimals) VALUES (?, ?)",
			strings.ToUpper(code), d,
		)
		if err != nil {
			return nil, failed("insert currency precision", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, failed("commit transaction", err)
	}
	return changed, nil
}

func loadPrecisions(ctx context.Context, tx *sql.Tx) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT code, decimals FROM currency_precisions")
	if err != nil {
		return nil, fmt.Errorf("failed to load currency precisions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var code string
		var d int
		if err := rows.Scan(&code, &d); err != nil {
			return nil, fmt.Errorf("failed to scan currency precision: %w", err)
		}
		out[code] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate currency precisions: %w", err)
	}
	return out, nil
}

// diffPrecisions returns the sorted codes whose effective precision differs.
// A code missing from one side has money.DefaultDecimals there.
func diffPrecisions(a, b map[string]int) []string {
	codes := make(map[string]bool)
	for c := range a {
		codes[strings.ToUpper(c)] = true
	}
	for c := range b {
		codes[strings.ToUpper(c)] = true
	}

	var changed []string
	for c := range codes {
		if decimalsOf(a, c) != decimalsOf(b, c) {
			changed = append(changed, c)
		}
	}
	sort.Strings(changed)
	return changed
}

func decimalsOf(m map[string]int, code string) int {
	if d, ok := m[code]; ok {
		return d
	}
	if d, ok := m[strings.ToLower(code)]; ok {
		return d
	}
	return money.DefaultDecimals
}

// rescaleCurrency multiplies every stored amount in code by 10^shift,
// rounding half away from zero. Unsettled debts that round to zero are
// dropped since a debt amount must stay positive.
func rescaleCurrency(ctx context.Context, tx *sql.Tx, code string, shift int) error {
	if err := rescaleRows(ctx, tx, shift,
		"SELECT id, subtotal, tax, tip, service_fee, total FROM receipts WHERE currency = ?",
		"UPDATE receipts SET subtotal = ?, tax = ?, tip = ?, service_fee = ?, total = ? WHERE id = ?",
		code,
	); err != nil {
		return err
	}
	if err := rescaleRows(ctx, tx, shift,
		`SELECT li.id, li.total_price FROM line_items li
		 JOIN receipts r ON r.id = li.receipt_id WHERE r.currency = ?`,
		"UPDATE line_items SET total_price = ? WHERE id = ?",
		code,
	); err != nil {
		return err
	}

	if shift < 0 {
		// amounts below one new minor unit would round to zero
		half := decimal.New(5, int32(-shift-1)).IntPart()
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM debts WHERE currency = ? AND amount < ?",
			code, half,
		); err != nil {
			return failed("drop vanishing debts", err)
		}
	}
	return rescaleRows(ctx, tx, shift,
		"SELECT id, amount FROM debts WHERE currency = ?",
		"UPDATE debts SET amount = ? WHERE id = ?",
		code,
	)
}

// rescaleRows reads (id, amounts...) rows with selectQuery and writes the
// rescaled amounts back with updateQuery, whose last parameter is the id.
func rescaleRows(ctx context.Context, tx *sql.Tx, shift int, selectQuery, updateQuery string, args ...any) error {
	rows, err := tx.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to read amounts for rescale: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return fmt.Errorf("failed to read columns: %w", err)
	}

	type row struct {
		id      string
		amounts []int64
	}
	var pending []row
	for rows.Next() {
		r := row{amounts: make([]int64, len(cols)-1)}
		dest := []any{&r.id}
		for i := range r.amounts {
			dest = append(dest, &r.amounts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan amounts: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate amounts: %w", err)
	}

	for _, r := range pending {
		params := make([]any, 0, len(r.amounts)+1)
		for _, a := range r.amounts {
			params = append(params, rescale(a, shift))
		}
		params = append(params, r.id)
		if _, err := tx.ExecContext(ctx, updateQuery, params...); err != nil {
			return failed("write rescaled amounts", err)
		}
	}
	return nil
}

func rescale(amount int64, shift int) int64 {
	return decimal.NewFromInt(amount).Shift(int32(shift)).Round(0).IntPart()
}
