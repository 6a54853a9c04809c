// Package money formats minor-unit amounts for display.
package money

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSuffix is appended to every formatted amount.
const DefaultSuffix = "원"

// Formatter renders amounts with locale digit grouping and a currency suffix.
type Formatter struct {
	printer *message.Printer
	suffix  string
}

// NewFormatter returns a formatter for lang. An invalid tag falls back to Korean.
func NewFormatter(lang, suffix string) *Formatter {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Korean
	}
	return &Formatter{printer: message.NewPrinter(tag), suffix: suffix}
}

var defaultFormatter = NewFormatter("ko", DefaultSuffix)

// Format renders amount as "80,000원".
func Format(amount int64) string {
	return defaultFormatter.Format(amount)
}

// Format renders amount with digit grouping and the configured suffix.
func (f *Formatter) Format(amount int64) string {
	return f.Number(amount) + f.suffix
}

// Number renders amount with digit grouping only.
func (f *Formatter) Number(amount int64) string {
	return f.printer.Sprintf("%d", amount)
}

// Hours renders a labor duration such as "1.5".
func (f *Formatter) Hours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
