// Package fixed8 provides the decimal arithmetic helpers shared by every
// market calculation: all prices, volumes and capitalizations are quantized
// to 8 fractional digits with banker's (half-even) rounding before they are
// stored or returned.
package fixed8

import "github.com/shopspring/decimal"

// Places is the number of fractional digits kept for monetary values.
const Places = 8

var (
	one     = decimal.New(1, 0)
	two     = decimal.New(2, 0)
	hundred = decimal.New(100, 0)
)

// Quantize rounds d to 8 fractional digits, half-even.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// Known wraps a decimal as a valid (known) nullable value.
func Known(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Unknown returns the explicit "unknown" marker.
func Unknown() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// Inverse returns round(1/d, 8, half-even), or unknown when d is zero.
// A zero input is a missing price, not an error.
func Inverse(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return Unknown()
	}
	return Known(Quantize(one.Div(d)))
}

// InverseN is Inverse lifted over nullable values: unknown in, unknown out.
func InverseN(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return Unknown()
	}
	return Inverse(d.Decimal)
}

// Avg returns the quantized half-even mean of a and b.
func Avg(a, b decimal.Decimal) decimal.Decimal {
	return Quantize(a.Add(b).Div(two))
}

// PriceChange returns 100 * (close - open) / open, quantized, or unknown
// when open is zero.
func PriceChange(open, close decimal.Decimal) decimal.NullDecimal {
	if open.IsZero() {
		return Unknown()
	}
	return Known(Quantize(hundred.Mul(close.Sub(open)).Div(open)))
}

// Div returns round(num/den, 8, half-even), or unknown when den is zero or
// either operand is unknown. Every division in the compiler goes through
// here so a zero divisor can never be reached.
func Div(num decimal.Decimal, den decimal.NullDecimal) decimal.NullDecimal {
	if !den.Valid || den.Decimal.IsZero() {
		return Unknown()
	}
	return Known(Quantize(num.Div(den.Decimal)))
}
