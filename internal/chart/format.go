package chart

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	DefaultLocale = "ja-JP"
	DefaultSuffix = "円"
)

// CurrencyTicks formats axis values as locale grouped digits followed by a
// currency suffix: 1234 -> "1,234円".
type CurrencyTicks struct {
	Locale string `json:"locale"`
	Suffix string `json:"suffix"`
}

// DefaultTicks returns the yen formatter used by the analytics page.
func DefaultTicks() CurrencyTicks {
	return CurrencyTicks{Locale: DefaultLocale, Suffix: DefaultSuffix}
}

// Format renders v. Fractions keep at most three digits, matching
// Number.prototype.toLocaleString.
func (t CurrencyTicks) Format(v float64) string {
	p := message.NewPrinter(t.tag())
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(3))) + t.Suffix
}

func (t CurrencyTicks) tag() language.Tag {
	tag, err := language.Parse(t.Locale)
	if err != nil {
		return language.Japanese
	}
	return tag
}
