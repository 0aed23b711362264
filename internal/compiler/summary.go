package compiler

import (
	"context"

	"dexmetrics/internal/domain"
	"dexmetrics/pkg/fixed8"
)

// compileSummary assembles the full current-state market summary for one
// asset: direct and aggregated prices in each pair leg with reciprocals,
// normalized supply and market caps.
func (c *Compiler) compileSummary(ctx context.Context, asset string, prim PricePrimitives) (domain.MarketSummary, error) {
	entry, err := c.assetInfo(ctx, asset, nil)
	if err != nil {
		return domain.MarketSummary{}, err
	}
	prices, err := c.assetPrices(ctx, asset, prim, c.recentTrades, nil, nil)
	if err != nil {
		return domain.MarketSummary{}, err
	}
	capInBase, capInQuote := marketCaps(entry.TotalIssued, prices.PriceInBase, prices.PriceInQuote)

	return domain.MarketSummary{
		PriceInBase:      prices.PriceInBase,
		PriceInQuote:     prices.PriceInQuote,
		PriceAsBase:      fixed8.InverseN(prices.PriceInBase),
		PriceAsQuote:     fixed8.InverseN(prices.PriceInQuote),
		AggPriceInBase:   prices.AggInBase,
		AggPriceInQuote:  prices.AggInQuote,
		AggPriceAsBase:   fixed8.InverseN(prices.AggInBase),
		AggPriceAsQuote:  fixed8.InverseN(prices.AggInQuote),
		TotalSupply:      entry.TotalIssued,
		MarketCapInBase:  capInBase,
		MarketCapInQuote: capInQuote,
	}, nil
}
