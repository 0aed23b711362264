package compiler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"dexmetrics/internal/domain"
)

// blockTrades is one block's slice of the pending trade replay.
type blockTrades struct {
	index  int64
	time   time.Time
	trades []domain.Trade
}

// extendCapHistory replays every trade with block index greater than
// afterBlock, in ascending block order, and appends market-cap history
// points for the touched assets. Within a block the trades are walked in
// reverse ledger order and each asset is considered once, so an asset's
// state reflects its latest trade in that block. A point is appended per
// denomination only when the value differs from the most recent existing
// point at or below that block, which keeps the series sparse and makes the
// whole replay idempotent.
func (c *Compiler) extendCapHistory(ctx context.Context, afterBlock int64) error {
	trades, err := c.ledger.TradesInRange(ctx, domain.TradeFilter{AfterBlock: &afterBlock})
	if err != nil {
		return err
	}

	var blocks []blockTrades
	for _, t := range trades {
		if n := len(blocks); n > 0 && blocks[n-1].index == t.BlockIndex {
			blocks[n-1].trades = append(blocks[n-1].trades, t)
			continue
		}
		blocks = append(blocks, blockTrades{index: t.BlockIndex, time: t.BlockTime, trades: []domain.Trade{t}})
	}

	for _, blk := range blocks {
		// reference rate anchored at this block's time
		prim, err := c.pricePrimitives(ctx, nil, &blk.time, 0)
		if err != nil {
			return err
		}
		seen := make(map[string]bool)
		for i := len(blk.trades) - 1; i >= 0; i-- {
			t := blk.trades[i]
			for _, asset := range []string{t.BaseAsset, t.QuoteAsset} {
				if seen[asset] {
					continue
				}
				seen[asset] = true
				if err := c.recordCapPoints(ctx, asset, t, prim); err != nil {
					if errors.Is(err, domain.ErrInvalidAsset) || errors.Is(err, domain.ErrAssetNotFoundAt) {
						c.log.Warn("skipping asset for cap history",
							slog.String("asset", asset),
							slog.Int64("block", t.BlockIndex),
							slog.Any("error", err))
						continue
					}
					return err
				}
			}
		}
	}
	return nil
}

// recordCapPoints resolves the asset's supply and price anchored at the
// trade's block time and appends one change-only history point per
// denomination.
func (c *Compiler) recordCapPoints(ctx context.Context, asset string, t domain.Trade, prim PricePrimitives) error {
	at := t.BlockTime
	entry, err := c.assetInfo(ctx, asset, &at)
	if err != nil {
		return err
	}
	prices, err := c.assetPrices(ctx, asset, prim, 0, nil, &at)
	if err != nil {
		return err
	}
	capInBase, capInQuote := marketCaps(entry.TotalIssued, prices.PriceInBase, prices.PriceInQuote)

	for _, d := range []struct {
		capAs string
		cap   decimal.NullDecimal
	}{
		{c.pair.Base, capInBase},
		{c.pair.Quote, capInQuote},
	} {
		if !d.cap.Valid || d.cap.Decimal.IsZero() {
			continue
		}
		prev, err := c.store.LatestCapPoint(ctx, asset, d.capAs, t.BlockIndex)
		if err != nil {
			return err
		}
		if prev != nil && prev.MarketCap.Equal(d.cap.Decimal) {
			continue
		}
		point := domain.CapPoint{
			BlockIndex: t.BlockIndex,
			BlockTime:  t.BlockTime,
			Asset:      asset,
			MarketCap:  d.cap.Decimal,
			CapAs:      d.capAs,
		}
		if err := c.store.InsertCapPoint(ctx, point); err != nil {
			return err
		}
		c.log.Info("market cap history point",
			slog.String("asset", asset),
			slog.String("cap_as", d.capAs),
			slog.Int64("block", t.BlockIndex))
	}
	return nil
}
