package compiler

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"dexmetrics/internal/domain"
	"dexmetrics/pkg/fixed8"
)

// compile24h computes the trailing-24h aggregates for one asset: total
// traded volume and count across every pairing the asset appears in, plus
// OHLC and percent price change for its market against each pair leg.
func (c *Compiler) compile24h(ctx context.Context, asset string, now time.Time) (domain.Window24h, error) {
	since := now.Add(-24 * time.Hour)
	var w domain.Window24h

	asBase, err := c.ledger.TradesInRange(ctx, domain.TradeFilter{SinceTime: &since, BaseAsset: asset})
	if err != nil {
		return w, err
	}
	asQuote, err := c.ledger.TradesInRange(ctx, domain.TradeFilter{SinceTime: &since, QuoteAsset: asset})
	if err != nil {
		return w, err
	}
	vol := decimal.Zero
	for _, t := range asBase {
		vol = vol.Add(t.BaseQuantity)
	}
	for _, t := range asQuote {
		vol = vol.Add(t.QuoteQuantity)
	}
	w.Volume24h = vol
	w.Count24h = int64(len(asBase) + len(asQuote))

	for _, leg := range []string{c.pair.Base, c.pair.Quote} {
		if asset == leg {
			// an asset's OHLC against itself is always empty
			continue
		}
		trades, err := c.ledger.TradesInRange(ctx, domain.TradeFilter{
			SinceTime:  &since,
			BaseAsset:  leg,
			QuoteAsset: asset,
		})
		if err != nil {
			return w, err
		}
		ohlc := reduceOHLC(trades)
		var change decimal.NullDecimal
		if ohlc != nil {
			change = fixed8.PriceChange(ohlc.Open, ohlc.Close)
		}
		if leg == c.pair.Base {
			w.OHLCInBase, w.PriceChange24hInBase = ohlc, change
		} else {
			w.OHLCInQuote, w.PriceChange24hInQuote = ohlc, change
		}
	}
	return w, nil
}

// reduceOHLC folds an ordered trade slice into a candle, or nil when the
// sub-market saw no trades.
func reduceOHLC(trades []domain.Trade) *domain.OHLC {
	if len(trades) == 0 {
		return nil
	}
	o := &domain.OHLC{
		Open:   trades[0].UnitPrice,
		High:   trades[0].UnitPrice,
		Low:    trades[0].UnitPrice,
		Close:  trades[len(trades)-1].UnitPrice,
		Volume: decimal.Zero,
		Count:  int64(len(trades)),
	}
	for _, t := range trades {
		if t.UnitPrice.GreaterThan(o.High) {
			o.High = t.UnitPrice
		}
		if t.UnitPrice.LessThan(o.Low) {
			o.Low = t.UnitPrice
		}
		o.Volume = o.Volume.Add(t.BaseQuantity)
	}
	return o
}

// hourBucket accumulates one calendar hour of a 7d series.
type hourBucket struct {
	when     time.Time
	priceSum decimal.Decimal
	count    int64
	baseVol  decimal.Decimal
	quoteVol decimal.Decimal
}

// compile7d computes the trailing-7d hourly history series for one asset
// against each pair leg. For the pair legs themselves the canonical market
// is bucketed once and the reverse-direction series derived from it.
func (c *Compiler) compile7d(ctx context.Context, asset string, now time.Time) (domain.Window7d, error) {
	since := now.Add(-7 * 24 * time.Hour)
	var w domain.Window7d

	if !c.pair.Contains(asset) {
		for _, leg := range []string{c.pair.Base, c.pair.Quote} {
			trades, err := c.ledger.TradesInRange(ctx, domain.TradeFilter{
				SinceTime:  &since,
				BaseAsset:  leg,
				QuoteAsset: asset,
			})
			if err != nil {
				return w, err
			}
			points := forwardPoints(bucketHourly(trades))
			if leg == c.pair.Base {
				w.History7dInBase = points
			} else {
				w.History7dInQuote = points
			}
		}
		return w, nil
	}

	// canonical market, bucketed once; the quote-leg series is the same
	// buckets re-expressed in the reverse direction
	trades, err := c.ledger.TradesInRange(ctx, domain.TradeFilter{
		SinceTime:  &since,
		BaseAsset:  c.pair.Base,
		QuoteAsset: c.pair.Quote,
	})
	if err != nil {
		return w, err
	}
	buckets := bucketHourly(trades)
	w.History7dInBase = forwardPoints(buckets)
	w.History7dInQuote = c.invertedPoints(buckets)
	return w, nil
}

// bucketHourly groups trades into calendar (year, month, day, hour) buckets
// in UTC and reduces each to an average price and summed volumes, ordered
// chronologically.
func bucketHourly(trades []domain.Trade) []hourBucket {
	byHour := make(map[time.Time]*hourBucket)
	for _, t := range trades {
		bt := t.BlockTime.UTC()
		key := time.Date(bt.Year(), bt.Month(), bt.Day(), bt.Hour(), 0, 0, 0, time.UTC)
		b, ok := byHour[key]
		if !ok {
			b = &hourBucket{when: key, priceSum: decimal.Zero, baseVol: decimal.Zero, quoteVol: decimal.Zero}
			byHour[key] = b
		}
		b.priceSum = b.priceSum.Add(t.UnitPrice)
		b.count++
		b.baseVol = b.baseVol.Add(t.BaseQuantity)
		b.quoteVol = b.quoteVol.Add(t.QuoteQuantity)
	}

	out := make([]hourBucket, 0, len(byHour))
	for _, b := range byHour {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].when.Before(out[j].when) })
	return out
}

func (b hourBucket) avgPrice() decimal.Decimal {
	return fixed8.Quantize(b.priceSum.Div(decimal.NewFromInt(b.count)))
}

func forwardPoints(buckets []hourBucket) []domain.PricePoint {
	points := make([]domain.PricePoint, len(buckets))
	for i, b := range buckets {
		points[i] = domain.PricePoint{
			When:   b.when.UnixMilli(),
			Price:  b.avgPrice(),
			Volume: b.baseVol,
		}
	}
	return points
}

// invertedPoints derives the reverse-direction series: each bucket's price
// is inverted with the standard 8-digit half-even inversion. The original
// system ran the same inversion over the volume as well; that behavior is
// kept behind the legacy flag, otherwise the bucket's summed quote quantity
// is used, which is the base quantity under the flipped pair direction.
func (c *Compiler) invertedPoints(buckets []hourBucket) []domain.PricePoint {
	points := make([]domain.PricePoint, len(buckets))
	for i, b := range buckets {
		p := domain.PricePoint{When: b.when.UnixMilli(), Volume: b.quoteVol}
		if inv := fixed8.Inverse(b.avgPrice()); inv.Valid {
			p.Price = inv.Decimal
		}
		if c.legacyInvertVolume {
			p.Volume = decimal.Zero
			if inv := fixed8.Inverse(b.baseVol); inv.Valid {
				p.Volume = inv.Decimal
			}
		}
		points[i] = p
	}
	return points
}
