package money

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// symbols lists currencies whose display symbol differs from their code.
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "CN¥",
	"KRW": "₩",
	"VND": "₫",
	"INR": "₹",
	"IDR": "Rp",
	"THB": "฿",
	"PHP": "₱",
	"ILS": "₪",
	"NGN": "₦",
	"CAD": "CA$",
	"AUD": "A$",
	"NZD": "NZ$",
	"HKD": "HK$",
	"SGD": "S$",
	"MXN": "MX$",
	"BRL": "R$",
}

// Symbol returns the display symbol for code, or the code itself when the
// currency has no distinct symbol.
func Symbol(code string) string {
	code = strings.ToUpper(code)
	if sym, ok := symbols[code]; ok {
		return sym
	}
	return code
}

// Formatter renders amounts with locale digit grouping.
type Formatter struct {
	table   Table
	printer *message.Printer
	decSep  string
}

// NewFormatter returns a Formatter for the given precision table and locale.
func NewFormatter(table Table, tag language.Tag) *Formatter {
	p := message.NewPrinter(tag)
	return &Formatter{
		table:   table,
		printer: p,
		decSep:  decimalSeparator(p),
	}
}

var defaultFormatter = NewFormatter(defaultTable, language.English)

// Format renders minor units as a grouped major-unit string with the
// currency symbol: "$1,234.56", "¥1,235", "-€0.50". Currencies without a
// distinct symbol render once as a code prefix: "KWD 1.500".
func (f *Formatter) Format(minor int64, code string) string {
	code = strings.ToUpper(code)
	decimals := f.table.DecimalsFor(code)

	neg := minor < 0
	abs := uint64(minor)
	if neg {
		abs = uint64(-minor)
	}

	divisor := uint64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}

	body := f.printer.Sprintf("%d", abs/divisor)
	if decimals > 0 {
		body += f.decSep + fmt.Sprintf("%0*d", decimals, abs%divisor)
	}

	sym := Symbol(code)
	var out string
	if sym == code {
		out = code + " " + body
	} else {
		out = sym + body
	}
	if neg {
		return "-" + out
	}
	return out
}

// Format renders using the built-in table and English grouping.
func Format(minor int64, code string) string {
	return defaultFormatter.Format(minor, code)
}

// decimalSeparator asks the printer's locale for its decimal separator.
func decimalSeparator(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	i := strings.IndexRune(s, '1')
	j := strings.LastIndex(s, "5")
	if i < 0 || j <= i+1 {
		return "."
	}
	return s[i+1 : j]
}
