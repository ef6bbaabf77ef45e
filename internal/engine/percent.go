package engine

import "github.com/shopspring/decimal"

// Percent is a percentage change that may be undefined. The zero value is
// the NoBaseline sentinel: the previous amount was zero, so no percentage
// exists. It is distinct from a defined 0% ("no change").
type Percent struct {
	value   decimal.Decimal
	defined bool
}

// NoBaseline is the percentage reported when the previous amount is zero.
var NoBaseline = Percent{}

// hundred is used for percentage scaling.
var hundred = decimal.NewFromInt(100)

// rankingEpsilon is added to the denominator by RankingPercent.
var rankingEpsilon = decimal.RequireFromString("0.01")

// PercentChange returns change / previous * 100, or NoBaseline when previous
// is zero.
func PercentChange(change, previous decimal.Decimal) Percent {
	if previous.IsZero() {
		return NoBaseline
	}
	return Percent{value: change.Div(previous).Mul(hundred), defined: true}
}

// Defined reports whether a baseline existed.
func (p Percent) Defined() bool { return p.defined }

// Value returns the percentage and whether it is defined.
func (p Percent) Value() (decimal.Decimal, bool) { return p.value, p.defined }

// Equal reports whether two percentages are both undefined or equal.
func (p Percent) Equal(q Percent) bool {
	if p.defined != q.defined {
		return false
	}
	return !p.defined || p.value.Equal(q.value)
}

// String renders the percentage with two decimals, or "n/a".
func (p Percent) String() string {
	if !p.defined {
		return "n/a"
	}
	return p.value.StringFixed(2)
}
