// Package domain holds the vocabulary shared by the club portal packages:
// identifiers, gram quantities, roles and the error taxonomy.
package domain

import (
	"github.com/shopspring/decimal"
)

// Quantities of product, allowance and stock are grams held as decimals.
var (
	// MaxOrderGrams is the hard per-order ceiling.
	MaxOrderGrams = decimal.NewFromInt(7)

	// DefaultMonthlyLimit is the allowance a new member starts with.
	DefaultMonthlyLimit = decimal.NewFromInt(30)
)

// GramsScale is the number of decimal places gram columns are stored with.
const GramsScale = 2

// ExactGrams reports whether d is stored without rounding.
func ExactGrams(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(GramsScale))
}

// Grams builds a gram quantity from a float, mostly for tests and seeds.
func Grams(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// FormatGrams renders a quantity the way it is shown to members ("4.5g").
func FormatGrams(d decimal.Decimal) string {
	return d.String() + "g"
}
