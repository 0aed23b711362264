package compiler

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"dexmetrics/internal/domain"
)

// RunCycle executes one full compilation cycle: 24h and 7d window aggregates
// for every currently-traded asset, summary records for assets traded since
// the checkpoint, the market-cap history replay, and finally the checkpoint
// advance. A cycle is safe to re-run over the same range; the change-only
// history rule absorbs replays.
func (c *Compiler) RunCycle(ctx context.Context) error {
	caughtUp, err := c.ledger.CaughtUp(ctx)
	if err != nil {
		return err
	}
	if !caughtUp {
		c.log.Info("indexer not caught up, skipping compilation cycle")
		return nil
	}

	checkpoint, err := c.store.Checkpoint(ctx)
	if err != nil {
		return err
	}
	// head is pinned now; trades arriving during a long cycle fall into the
	// next one instead of being skipped over
	head, err := c.ledger.ChainHead(ctx)
	if err != nil {
		return err
	}
	if head == checkpoint {
		c.log.Debug("no new blocks since last compilation", slog.Int64("block", head))
		return nil
	}
	headTime, err := c.ledger.BlockTime(ctx, head)
	if err != nil {
		return err
	}
	c.log.Info("compiling asset market info",
		slog.Int64("from_block", checkpoint),
		slog.Int64("to_block", head),
		slog.Time("head_time", headTime))

	now := c.clock.Now()
	prim, err := c.pricePrimitives(ctx, nil, nil, c.recentTrades)
	if err != nil {
		return err
	}

	// every asset that ever traded quotes against a pair leg, so the quote
	// side of the full log plus the legs themselves is the complete set
	everTraded, err := c.ledger.DistinctAssets(ctx, domain.TradeFilter{}, domain.SideQuote)
	if err != nil {
		return err
	}
	allTraded := newStringSet(c.pair.Base, c.pair.Quote)
	allTraded.add(everTraded...)

	if err := c.runWindow24h(ctx, now, allTraded); err != nil {
		return err
	}
	if err := c.runWindow7d(ctx, now, allTraded); err != nil {
		return err
	}
	if err := c.runSummaries(ctx, checkpoint, prim); err != nil {
		return err
	}
	if err := c.extendCapHistory(ctx, checkpoint); err != nil {
		return err
	}
	return c.store.SetCheckpoint(ctx, head)
}

// runWindow24h recomputes 24h aggregates for assets that traded in the last
// day on any pairing, and zeroes the window for every other traded asset.
func (c *Compiler) runWindow24h(ctx context.Context, now time.Time, allTraded stringSet) error {
	since := now.Add(-24 * time.Hour)
	active, err := c.activeAssets(ctx,
		domain.TradeFilter{SinceTime: &since},
		domain.TradeFilter{SinceTime: &since})
	if err != nil {
		return err
	}
	for _, asset := range active.sorted() {
		w, err := c.compile24h(ctx, asset, now)
		if err != nil {
			return err
		}
		if err := c.store.UpdateWindow24h(ctx, asset, w); err != nil {
			return err
		}
	}
	// assets with no trades in the window still get explicit zeroed fields
	if err := c.store.ZeroWindow24h(ctx, allTraded.minus(active)); err != nil {
		return err
	}
	c.log.Info("calculated 24h stats", slog.Int("assets", active.len()))
	return nil
}

// runWindow7d recomputes the 7d history series for assets that traded
// against a pair leg in the last week, zeroing everyone else.
func (c *Compiler) runWindow7d(ctx context.Context, now time.Time, allTraded stringSet) error {
	since := now.Add(-7 * 24 * time.Hour)
	active, err := c.activeAssets(ctx,
		domain.TradeFilter{SinceTime: &since},
		domain.TradeFilter{SinceTime: &since, BaseIn: []string{c.pair.Base, c.pair.Quote}})
	if err != nil {
		return err
	}
	for _, asset := range active.sorted() {
		w, err := c.compile7d(ctx, asset, now)
		if err != nil {
			return err
		}
		if err := c.store.UpdateWindow7d(ctx, asset, w); err != nil {
			return err
		}
	}
	if err := c.store.ZeroWindow7d(ctx, allTraded.minus(active)); err != nil {
		return err
	}
	c.log.Info("calculated 7d stats", slog.Int("assets", active.len()))
	return nil
}

// runSummaries refreshes the summary section for every asset traded since
// the checkpoint. An unknown asset is a per-asset failure: it is logged and
// skipped without aborting the cycle.
func (c *Compiler) runSummaries(ctx context.Context, checkpoint int64, prim PricePrimitives) error {
	active, err := c.activeAssets(ctx,
		domain.TradeFilter{AfterBlock: &checkpoint},
		domain.TradeFilter{AfterBlock: &checkpoint, BaseIn: []string{c.pair.Base, c.pair.Quote}})
	if err != nil {
		return err
	}
	for _, asset := range active.sorted() {
		summary, err := c.compileSummary(ctx, asset, prim)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidAsset) || errors.Is(err, domain.ErrAssetNotFoundAt) {
				c.log.Warn("skipping asset summary", slog.String("asset", asset), slog.Any("error", err))
				continue
			}
			return err
		}
		if err := c.store.UpsertSummary(ctx, asset, summary); err != nil {
			return err
		}
	}
	c.log.Info("updated asset summaries", slog.Int("assets", active.len()))
	return nil
}

// activeAssets unions the distinct base-side assets of baseFilter with the
// distinct quote-side assets of quoteFilter.
func (c *Compiler) activeAssets(ctx context.Context, baseFilter, quoteFilter domain.TradeFilter) (stringSet, error) {
	bases, err := c.ledger.DistinctAssets(ctx, baseFilter, domain.SideBase)
	if err != nil {
		return nil, err
	}
	quotes, err := c.ledger.DistinctAssets(ctx, quoteFilter, domain.SideQuote)
	if err != nil {
		return nil, err
	}
	set := newStringSet()
	set.add(bases...)
	set.add(quotes...)
	return set, nil
}

type stringSet map[string]bool

func newStringSet(members ...string) stringSet {
	s := make(stringSet, len(members))
	s.add(members...)
	return s
}

func (s stringSet) add(members ...string) {
	for _, m := range members {
		s[m] = true
	}
}

func (s stringSet) len() int { return len(s) }

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// minus returns s \ other as a sorted slice.
func (s stringSet) minus(other stringSet) []string {
	var out []string
	for m := range s {
		if !other[m] {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
