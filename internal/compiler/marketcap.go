package compiler

import (
	"github.com/shopspring/decimal"

	"dexmetrics/pkg/fixed8"
)

// marketCaps computes capitalization in each pair-leg denomination:
// round(supply / price, 8, half-even), independently per leg. An unknown or
// zero price yields an unknown cap, never a division error.
func marketCaps(supply decimal.Decimal, priceInBase, priceInQuote decimal.NullDecimal) (capInBase, capInQuote decimal.NullDecimal) {
	return fixed8.Div(supply, priceInBase), fixed8.Div(supply, priceInQuote)
}
