package compiler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"dexmetrics/internal/domain"
	"dexmetrics/pkg/fixed8"
)

var exactlyOne = fixed8.Known(decimal.New(1, 0))

// assetPrices is an asset's pricing against each canonical pair leg: the raw
// per-market summaries, the direct prices and the cross-rate aggregates.
// Every field can independently be unknown.
type assetPrices struct {
	SummaryInBase  *domain.PriceSummary
	SummaryInQuote *domain.PriceSummary
	PriceInBase    decimal.NullDecimal
	PriceInQuote   decimal.NullDecimal
	AggInBase      decimal.NullDecimal
	AggInQuote     decimal.NullDecimal
}

// assetPrices resolves an asset's price against both pair legs within the
// optional [start, end] window. For assets outside the canonical pair the
// two markets are queried independently; each pair leg itself is the
// self-referential case handled below.
func (c *Compiler) assetPrices(ctx context.Context, asset string, prim PricePrimitives, lastTrades int, start, end *time.Time) (assetPrices, error) {
	if c.pair.Contains(asset) {
		return c.pairLegPrices(asset, prim), nil
	}

	opt := domain.SummaryOptions{Start: start, End: end, LastTrades: lastTrades}
	inBase, err := c.ledger.PriceSummary(ctx, c.pair.Base, asset, opt)
	if err != nil {
		return assetPrices{}, err
	}
	inQuote, err := c.ledger.PriceSummary(ctx, c.pair.Quote, asset, opt)
	if err != nil {
		return assetPrices{}, err
	}

	out := assetPrices{SummaryInBase: inBase, SummaryInQuote: inQuote}
	if inBase != nil {
		out.PriceInBase = fixed8.Known(inBase.MarketPrice)
	}
	if inQuote != nil {
		out.PriceInQuote = fixed8.Known(inQuote.MarketPrice)
	}

	// Aggregated price: half-even mean of the direct price and the price
	// derived through the other leg via the canonical rate. Any missing
	// operand leaves the aggregate unknown; zero is never substituted.
	if out.PriceInBase.Valid && out.PriceInQuote.Valid && prim.PairPrice.Valid {
		cross := fixed8.Quantize(out.PriceInQuote.Decimal.Mul(prim.PairPrice.Decimal))
		out.AggInBase = fixed8.Known(fixed8.Avg(out.PriceInBase.Decimal, cross))
	}
	if out.PriceInBase.Valid && out.PriceInQuote.Valid && prim.InversePrice.Valid {
		cross := fixed8.Quantize(out.PriceInBase.Decimal.Mul(prim.InversePrice.Decimal))
		out.AggInQuote = fixed8.Known(fixed8.Avg(out.PriceInQuote.Decimal, cross))
	}
	return out, nil
}

// pairLegPrices prices one canonical pair leg against both legs. A leg is
// worth exactly 1.0 in its own terms; in the other leg's terms the canonical
// rate (or its inverse) applies. The quote-side summary is the canonical
// summary re-expressed in the reverse direction, which inverts each attached
// trade's unit price and swaps its base/quote quantities.
func (c *Compiler) pairLegPrices(asset string, prim PricePrimitives) assetPrices {
	out := assetPrices{
		SummaryInBase:  prim.PairSummary,
		SummaryInQuote: prim.PairSummary.Inverted(fixed8.Inverse),
	}
	if asset == c.pair.Base {
		out.PriceInBase = exactlyOne
		out.AggInBase = exactlyOne
		if out.SummaryInQuote != nil {
			out.PriceInQuote = fixed8.Known(out.SummaryInQuote.MarketPrice)
		}
		out.AggInQuote = prim.InversePrice
		return out
	}
	out.PriceInQuote = exactlyOne
	out.AggInQuote = exactlyOne
	if out.SummaryInBase != nil {
		out.PriceInBase = fixed8.Known(out.SummaryInBase.MarketPrice)
	}
	out.AggInBase = prim.PairPrice
	return out
}
