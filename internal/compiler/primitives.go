package compiler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"dexmetrics/internal/domain"
	"dexmetrics/pkg/fixed8"
)

// PricePrimitives is the canonical pair's reference rate for a window: the
// pair's market price summary, the base-to-quote price and its half-even
// inverse. When the pair saw no trades in the window everything is unknown.
type PricePrimitives struct {
	PairSummary  *domain.PriceSummary
	PairPrice    decimal.NullDecimal // canonical base-to-quote rate
	InversePrice decimal.NullDecimal // quote-to-base rate, round(1/p, 8, half-even)
}

// pricePrimitives computes the canonical pair rate restricted to the
// [start, end] window, attaching up to lastTrades recent trades for display.
func (c *Compiler) pricePrimitives(ctx context.Context, start, end *time.Time, lastTrades int) (PricePrimitives, error) {
	sum, err := c.ledger.PriceSummary(ctx, c.pair.Base, c.pair.Quote, domain.SummaryOptions{
		Start:      start,
		End:        end,
		LastTrades: lastTrades,
	})
	if err != nil {
		return PricePrimitives{}, err
	}
	if sum == nil {
		return PricePrimitives{}, nil
	}
	return PricePrimitives{
		PairSummary:  sum,
		PairPrice:    fixed8.Known(sum.MarketPrice),
		InversePrice: fixed8.Inverse(sum.MarketPrice),
	}, nil
}
