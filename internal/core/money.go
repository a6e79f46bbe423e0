// Package core holds the bookkeeping domain model and the summary
// aggregation logic.
//
// Amounts are decimal values throughout. Binary floating point never touches
// an amount: parsing, storage, and accumulation all go through
// shopspring/decimal so that totals stay exact to the cent across any number
// of additions.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary amount from a string.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is
// a valid amount (a no-activity placeholder entry is legitimate); negative
// amounts are rejected since the sign is carried by the entry type.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount reports whether d is usable as an entry amount.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
