package compiler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"dexmetrics/internal/domain"
	"dexmetrics/pkg/fixed8"
)

// memLedger is an in-memory LedgerReader over a plain trade slice, enough to
// drive every compiler path without a database.
type memLedger struct {
	caughtUp   bool
	head       int64
	blockTimes map[int64]time.Time
	trades     []domain.Trade
	supplies   map[string]decimal.Decimal // chain-wide supply of the pair legs
	entries    map[string]*domain.AssetEntry
}

func newMemLedger() *memLedger {
	return &memLedger{
		caughtUp:   true,
		blockTimes: make(map[int64]time.Time),
		supplies:   make(map[string]decimal.Decimal),
		entries:    make(map[string]*domain.AssetEntry),
	}
}

func (m *memLedger) addTrade(t domain.Trade) {
	m.trades = append(m.trades, t)
	sort.SliceStable(m.trades, func(i, j int) bool {
		a, b := m.trades[i], m.trades[j]
		if a.BlockIndex != b.BlockIndex {
			return a.BlockIndex < b.BlockIndex
		}
		return a.TxIndex < b.TxIndex
	})
	m.blockTimes[t.BlockIndex] = t.BlockTime
	if t.BlockIndex > m.head {
		m.head = t.BlockIndex
	}
}

func (m *memLedger) CaughtUp(context.Context) (bool, error) { return m.caughtUp, nil }

func (m *memLedger) ChainHead(context.Context) (int64, error) { return m.head, nil }

func (m *memLedger) BlockTime(_ context.Context, block int64) (time.Time, error) {
	bt, ok := m.blockTimes[block]
	if !ok {
		return time.Time{}, fmt.Errorf("no block %d", block)
	}
	return bt, nil
}

func matches(t domain.Trade, f domain.TradeFilter) bool {
	if f.SinceTime != nil && t.BlockTime.Before(*f.SinceTime) {
		return false
	}
	if f.UntilTime != nil && t.BlockTime.After(*f.UntilTime) {
		return false
	}
	if f.AfterBlock != nil && t.BlockIndex <= *f.AfterBlock {
		return false
	}
	if f.BaseAsset != "" && t.BaseAsset != f.BaseAsset {
		return false
	}
	if f.QuoteAsset != "" && t.QuoteAsset != f.QuoteAsset {
		return false
	}
	if len(f.BaseIn) > 0 {
		ok := false
		for _, b := range f.BaseIn {
			if t.BaseAsset == b {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (m *memLedger) TradesInRange(_ context.Context, f domain.TradeFilter) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range m.trades {
		if matches(t, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memLedger) DistinctAssets(_ context.Context, f domain.TradeFilter, side domain.TradeSide) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, t := range m.trades {
		if !matches(t, f) {
			continue
		}
		asset := t.BaseAsset
		if side == domain.SideQuote {
			asset = t.QuoteAsset
		}
		if !seen[asset] {
			seen[asset] = true
			out = append(out, asset)
		}
	}
	return out, nil
}

func (m *memLedger) PriceSummary(ctx context.Context, base, quote string, opt domain.SummaryOptions) (*domain.PriceSummary, error) {
	trades, err := m.TradesInRange(ctx, domain.TradeFilter{
		SinceTime:  opt.Start,
		UntilTime:  opt.End,
		BaseAsset:  base,
		QuoteAsset: quote,
	})
	if err != nil || len(trades) == 0 {
		return nil, err
	}
	sum := decimal.Zero
	for _, t := range trades {
		sum = sum.Add(t.UnitPrice)
	}
	s := &domain.PriceSummary{
		BaseAsset:   base,
		QuoteAsset:  quote,
		MarketPrice: fixed8.Quantize(sum.Div(decimal.NewFromInt(int64(len(trades))))),
	}
	for i := len(trades) - 1; i >= 0 && len(s.LastTrades) < opt.LastTrades; i-- {
		s.LastTrades = append(s.LastTrades, trades[i])
	}
	return s, nil
}

func (m *memLedger) AssetSupply(_ context.Context, asset string, _ *time.Time) (decimal.Decimal, error) {
	supply, ok := m.supplies[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("no supply for %s", asset)
	}
	return supply, nil
}

func (m *memLedger) AssetEntry(_ context.Context, asset string) (*domain.AssetEntry, error) {
	return m.entries[asset], nil
}

// memStore is an in-memory MarketStore.
type memStore struct {
	summaries  map[string]domain.MarketSummary
	windows24  map[string]domain.Window24h
	windows7   map[string]domain.Window7d
	zeroed24   map[string]bool
	zeroed7    map[string]bool
	points     []domain.CapPoint
	checkpoint int64
}

func newMemStore() *memStore {
	return &memStore{
		summaries: make(map[string]domain.MarketSummary),
		windows24: make(map[string]domain.Window24h),
		windows7:  make(map[string]domain.Window7d),
		zeroed24:  make(map[string]bool),
		zeroed7:   make(map[string]bool),
	}
}

func (m *memStore) UpsertSummary(_ context.Context, asset string, s domain.MarketSummary) error {
	m.summaries[asset] = s
	return nil
}

func (m *memStore) UpdateWindow24h(_ context.Context, asset string, w domain.Window24h) error {
	m.windows24[asset] = w
	delete(m.zeroed24, asset)
	return nil
}

func (m *memStore) UpdateWindow7d(_ context.Context, asset string, w domain.Window7d) error {
	m.windows7[asset] = w
	delete(m.zeroed7, asset)
	return nil
}

func (m *memStore) ZeroWindow24h(_ context.Context, assets []string) error {
	for _, a := range assets {
		m.windows24[a] = domain.Window24h{Volume24h: decimal.Zero}
		m.zeroed24[a] = true
	}
	return nil
}

func (m *memStore) ZeroWindow7d(_ context.Context, assets []string) error {
	for _, a := range assets {
		m.windows7[a] = domain.Window7d{}
		m.zeroed7[a] = true
	}
	return nil
}

func (m *memStore) LatestCapPoint(_ context.Context, asset, capAs string, upToBlock int64) (*domain.CapPoint, error) {
	var best *domain.CapPoint
	for i := range m.points {
		p := m.points[i]
		if p.Asset != asset || p.CapAs != capAs || p.BlockIndex > upToBlock {
			continue
		}
		if best == nil || p.BlockIndex > best.BlockIndex {
			best = &m.points[i]
		}
	}
	return best, nil
}

func (m *memStore) InsertCapPoint(_ context.Context, p domain.CapPoint) error {
	m.points = append(m.points, p)
	return nil
}

func (m *memStore) Checkpoint(context.Context) (int64, error) { return m.checkpoint, nil }

func (m *memStore) SetCheckpoint(_ context.Context, block int64) error {
	m.checkpoint = block
	return nil
}

func (m *memStore) capPoints(asset, capAs string) []domain.CapPoint {
	var out []domain.CapPoint
	for _, p := range m.points {
		if p.Asset == asset && p.CapAs == capAs {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockIndex < out[j].BlockIndex })
	return out
}

// fixedClock pins the compiler's notion of now.
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}
