// Package money implements integer minor-unit arithmetic for the ledger.
//
// Every stored or computed amount is an int64 count of a currency's minor
// unit (cents, fils, yen). How many decimals a currency's minor unit has is
// looked up in a precision Table; floats only appear transiently when a
// caller hands in a major-unit value, and are rounded to the nearest minor
// unit immediately.
//
// Rounding policy: half away from zero (2.5 -> 3, -2.5 -> -3), applied once,
// on the shortest decimal representation of any float input.
package money

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	// ErrRateUnavailable is returned by Convert when either currency has no
	// rate in the supplied ExchangeRateSet.
	ErrRateUnavailable = errors.New("money: exchange rate unavailable")

	// ErrUnknownCurrency is returned for codes that are not ISO 4217.
	ErrUnknownCurrency = errors.New("money: unknown currency")

	// ErrInvalidAmount is returned when a major-unit value cannot be parsed.
	ErrInvalidAmount = errors.New("money: invalid amount")
)

// DefaultDecimals is the minor-unit precision of any currency the table
// doesn't list explicitly.
const DefaultDecimals = 2

// Table maps currency codes to their minor-unit decimal count.
// A Table is immutable once built and safe to share between goroutines.
type Table struct {
	decimals map[string]int
}

var defaultTable = Table{decimals: map[string]int{
	// zero-decimal currencies
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"IDR": 0,
	"CLP": 0,
	"PYG": 0,
	"ISK": 0,
	"UGX": 0,
	"XAF": 0,
	"XOF": 0,
	// three-decimal currencies
	"KWD": 3,
	"BHD": 3,
	"OMR": 3,
	"JOD": 3,
	"TND": 3,
	"LYD": 3,
	"IQD": 3,
}}

// DefaultTable returns the built-in precision table.
func DefaultTable() Table {
	return defaultTable
}

// WithOverrides returns a copy of t with the given entries replaced.
// Codes are validated as ISO 4217 and decimals must be between 0 and 4.
func (t Table) WithOverrides(overrides map[string]int) (Table, error) {
	out := Table{decimals: make(map[string]int, len(t.decimals)+len(overrides))}
	for code, d := range t.decimals {
		out.decimals[code] = d
	}
	for code, d := range overrides {
		norm, err := NormalizeCode(code)
		if err != nil {
			return Table{}, err
		}
		if d < 0 || d > 4 {
			return Table{}, fmt.Errorf("money: invalid decimals %d for %s", d, norm)
		}
		out.decimals[norm] = d
	}
	return out, nil
}

// DecimalsFor returns how many decimals the currency's minor unit has.
func (t Table) DecimalsFor(code string) int {
	if d, ok := t.decimals[strings.ToUpper(code)]; ok {
		return d
	}
	return DefaultDecimals
}

// Entries returns a copy of the explicit entries, for persisting.
func (t Table) Entries() map[string]int {
	out := make(map[string]int, len(t.decimals))
	for code, d := range t.decimals {
		out[code] = d
	}
	return out
}

// Codes returns the explicitly listed currency codes in sorted order.
func (t Table) Codes() []string {
	codes := make([]string, 0, len(t.decimals))
	for code := range t.decimals {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ToMajor converts minor units into a major-unit float for display or
// transport. The result is the float nearest to the exact decimal value.
func (t Table) ToMajor(minor int64, code string) float64 {
	return decimal.New(minor, -int32(t.DecimalsFor(code))).InexactFloat64()
}

// ToMinor rounds a major-unit float to the nearest minor unit, half away
// from zero. NaN and infinities are treated as zero.
//
// ToMinor(ToMajor(x)) == x for every |x| < 1e15.
func (t Table) ToMinor(major float64, code string) int64 {
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return 0
	}
	return decimal.NewFromFloat(major).Shift(int32(t.DecimalsFor(code))).Round(0).IntPart()
}

// ParseMajor parses a user-typed decimal string ("12.345", "-3", "1,234.50")
// into minor units using the same rounding as ToMinor.
func (t Table) ParseMajor(s, code string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d.Shift(int32(t.DecimalsFor(code))).Round(0).IntPart(), nil
}

// major returns the exact decimal major-unit value of minor.
func (t Table) major(minor int64, code string) decimal.Decimal {
	return decimal.New(minor, -int32(t.DecimalsFor(code)))
}

// DecimalsFor looks up the built-in table.
func DecimalsFor(code string) int { return defaultTable.DecimalsFor(code) }

// ToMajor converts using the built-in table.
func ToMajor(minor int64, code string) float64 { return defaultTable.ToMajor(minor, code) }

// ToMinor converts using the built-in table.
func ToMinor(major float64, code string) int64 { return defaultTable.ToMinor(major, code) }

// ParseMajor parses using the built-in table.
func ParseMajor(s, code string) (int64, error) { return defaultTable.ParseMajor(s, code) }

// NormalizeCode upper-cases code and checks it is a known ISO 4217 currency.
func NormalizeCode(code string) (string, error) {
	norm := strings.ToUpper(strings.TrimSpace(code))
	if len(norm) != 3 {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	if _, err := currency.ParseISO(norm); err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return norm, nil
}
