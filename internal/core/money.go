// Package core provides money parsing and handling utilities.
//
// Amounts are whole yen; there is no minor unit to round.
package core

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Yen is an amount of money in whole yen.
type Yen int64

const maxYen = Yen(1<<53 - 1)

var yenPrinter = message.NewPrinter(language.Japanese)

// ParseYen converts user input to a positive yen amount.
//
// It accepts plain digits, comma-grouped digits and an optional "¥" prefix or
// "円" suffix. Negative values, zero, fractions and values beyond the range a
// browser can represent exactly are rejected.
//
// Examples:
//
//	ParseYen("1234")   -> 1234, nil
//	ParseYen("1,234円") -> 1234, nil
//	ParseYen("¥980")   -> 980, nil
//	ParseYen("12.5")   -> 0, ErrInvalidAmount
func ParseYen(s string) (Yen, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.TrimSuffix(s, "円")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ",") && !validGrouping(s) {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	y := Yen(v)
	if y <= 0 || y > maxYen {
		return 0, ErrInvalidAmount
	}
	return y, nil
}

// validGrouping reports whether commas split s into thousands groups.
func validGrouping(s string) bool {
	groups := strings.Split(s, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// String renders the amount with Japanese digit grouping, e.g. "1,234円".
func (y Yen) String() string {
	return yenPrinter.Sprintf("%d円", int64(y))
}

// Float returns the amount as a float64 for charting and statistics.
func (y Yen) Float() float64 {
	return float64(y)
}
