package money

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateSet is a snapshot of rates relative to a base currency.
// It is supplied by the caller for each request and only ever used for
// display conversion; settlement always happens in a receipt's own currency.
type ExchangeRateSet struct {
	// Base is the currency every rate is quoted against.
	Base string
	// Rates maps a currency code to units of that currency per one unit of Base.
	Rates map[string]decimal.Decimal
	// FetchedAt is when the rates were observed.
	FetchedAt time.Time
}

// Rate returns the rate of code relative to the base. The base itself
// always has rate 1, whether or not it's listed.
func (r ExchangeRateSet) Rate(code string) (decimal.Decimal, bool) {
	code = strings.ToUpper(code)
	if code == strings.ToUpper(r.Base) {
		return decimal.NewFromInt(1), true
	}
	rate, ok := r.Rates[code]
	if !ok {
		// tolerate lower-case keys from hand-built sets
		rate, ok = r.Rates[strings.ToLower(code)]
	}
	if !ok || !rate.IsPositive() {
		return decimal.Zero, false
	}
	return rate, true
}

// Convert converts minor units of from into minor units of to: minor to
// major in from, divide by from's rate, multiply by to's rate, major to
// minor in to. Rounding happens once, at the end.
func (t Table) Convert(minor int64, from, to string, rates ExchangeRateSet) (int64, error) {
	if strings.EqualFold(from, to) {
		return minor, nil
	}
	fromRate, ok := rates.Rate(from)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRateUnavailable, strings.ToUpper(from))
	}
	toRate, ok := rates.Rate(to)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRateUnavailable, strings.ToUpper(to))
	}

	converted := t.major(minor, from).Div(fromRate).Mul(toRate)
	return converted.Shift(int32(t.DecimalsFor(to))).Round(0).IntPart(), nil
}

// Convert converts using the built-in precision table.
func Convert(minor int64, from, to string, rates ExchangeRateSet) (int64, error) {
	return defaultTable.Convert(minor, from, to, rates)
}
