/*
Package payroll computes monthly pay from salary, attendance and settings.

PURPOSE:
  Holds the progressive tax engine, the pension engine and the aggregator
  that combines base salary, overtime, bonuses and deductions into a payroll
  aggregate. Everything here is a pure function of its inputs.

TAX LADDER:
  Brackets are ordered by Min. Each bracket taxes the part of the income
  that falls between its Min (or what earlier brackets already taxed) and
  its Max. A nil Max is open-ended and only the last bracket may have one.

  brackets := []payroll.TaxBracket{
      {Min: 0,    Max: 5000, Rate: 0},
      {Min: 5000, Max: nil,  Rate: 0.20},
  }
  payroll.ComputeTax(8000, brackets, true) // 600.00

VALIDATION:
  Ladders are validated when settings are saved (ValidateBrackets). The
  computation itself never fails.

SEE ALSO:
  - aggregate.go: Payroll aggregation
  - factory/settings.go: Rejects invalid ladders at save time
*/
package payroll

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// TaxBracket is one rung of the progressive ladder. Rate is a fraction (0.2 = 20%).
type TaxBracket struct {
	Min  decimal.Decimal
	Max  *decimal.Decimal // nil = open-ended
	Rate decimal.Decimal
}

// IsOpenEnded reports whether the bracket has no upper bound.
func (b TaxBracket) IsOpenEnded() bool { return b.Max == nil }

// BracketError identifies the bracket that made a ladder invalid.
type BracketError struct {
	Index  int
	Reason string
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("invalid tax brackets: bracket %d: %s", e.Index, e.Reason)
}

func (e *BracketError) Unwrap() error {
	return generic.ErrInvalidTaxBrackets
}

// ValidateBrackets checks a ladder in the order given: non-negative minimums,
// Max above Min, rates within [0, 1], each bracket starting where the previous
// one ended, and at most one open-ended bracket which must be last.
// An empty ladder is valid and taxes nothing.
func ValidateBrackets(brackets []TaxBracket) error {
	one := decimal.NewFromInt(1)
	for i, b := range brackets {
		if b.Min.IsNegative() {
			return &BracketError{Index: i, Reason: "min must not be negative"}
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return &BracketError{Index: i, Reason: "rate must be between 0 and 1"}
		}
		if b.Max != nil && !b.Max.GreaterThan(b.Min) {
			return &BracketError{Index: i, Reason: "max must be greater than min"}
		}
		if b.IsOpenEnded() && i != len(brackets)-1 {
			return &BracketError{Index: i, Reason: "only the last bracket may be open-ended"}
		}
		if i == 0 {
			continue
		}
		prevMax := brackets[i-1].Max
		switch {
		case b.Min.LessThan(*prevMax):
			return &BracketError{Index: i, Reason: fmt.Sprintf("min %s overlaps previous bracket ending at %s", b.Min, prevMax)}
		case b.Min.GreaterThan(*prevMax):
			return &BracketError{Index: i, Reason: fmt.Sprintf("gap between %s and %s", prevMax, b.Min)}
		}
	}
	return nil
}

// ComputeTax applies the ladder to income. Tax is zero when disabled or when
// income is not positive. Only the final total is rounded.
func ComputeTax(income decimal.Decimal, brackets []TaxBracket, enabled bool) decimal.Decimal {
	if !enabled || !income.IsPositive() || len(brackets) == 0 {
		return decimal.Zero
	}

	ordered := make([]TaxBracket, len(brackets))
	copy(ordered, brackets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Min.LessThan(ordered[j].Min) })

	tax := decimal.Zero
	taxedUpTo := decimal.Zero
	for _, b := range ordered {
		if !income.GreaterThan(b.Min) {
			break
		}
		lower := generic.MaxDecimal(b.Min, taxedUpTo)
		upper := income
		if b.Max != nil && b.Max.LessThan(income) {
			upper = *b.Max
		}
		if upper.GreaterThan(lower) {
			tax = tax.Add(upper.Sub(lower).Mul(b.Rate))
			taxedUpTo = upper
		}
	}
	return generic.RoundCurrency(tax)
}
