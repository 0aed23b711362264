package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pair is the canonical trading pair the whole compiler is anchored on.
// Base is always the market base of the reference rate; every other market
// quotes against one of the two legs.
type Pair struct {
	Base  string
	Quote string
}

// Contains reports whether asset is one of the pair's legs.
func (p Pair) Contains(asset string) bool {
	return asset == p.Base || asset == p.Quote
}

// Trade is a single immutable fill from the ledger's append-only trade log.
// Trades are totally ordered by (BlockIndex, TxIndex).
type Trade struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	BlockIndex    int64           `gorm:"index:idx_trades_block" json:"block_index"`
	TxIndex       int64           `gorm:"index:idx_trades_block" json:"tx_index"` // position within the block, ledger order
	BlockTime     time.Time       `gorm:"index" json:"block_time"`
	BaseAsset     string          `gorm:"index" json:"base_asset"`
	QuoteAsset    string          `gorm:"index" json:"quote_asset"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric" json:"unit_price"`
	BaseQuantity  decimal.Decimal `gorm:"type:numeric" json:"base_quantity_normalized"`
	QuoteQuantity decimal.Decimal `gorm:"type:numeric" json:"quote_quantity_normalized"`
}

// TradeSide selects which leg of a trade a query refers to.
type TradeSide int

const (
	SideBase TradeSide = iota
	SideQuote
)

// TradeFilter narrows a trade log scan. Zero-value fields are ignored.
type TradeFilter struct {
	SinceTime  *time.Time // block_time >= SinceTime
	UntilTime  *time.Time // block_time <= UntilTime
	AfterBlock *int64     // block_index > AfterBlock
	BaseAsset  string
	QuoteAsset string
	BaseIn     []string // base_asset IN BaseIn
}

// SummaryOptions bounds a market price summary request.
type SummaryOptions struct {
	Start      *time.Time
	End        *time.Time
	LastTrades int // number of most-recent trades to attach, 0 for none
}

// PriceSummary is an asset pair's aggregated market price over a window plus
// a bounded list of recent trades for display. It is derived per request and
// never persisted. A pair with no trades in the window has no summary at all
// (nil), never a zeroed one.
type PriceSummary struct {
	BaseAsset   string
	QuoteAsset  string
	MarketPrice decimal.Decimal
	LastTrades  []Trade // newest first
}

// Inverted re-expresses the summary in the reverse pair direction: the
// market price and each attached trade's unit price are inverted, and each
// trade's base/quote quantities are swapped so "base quantity" keeps its
// meaning under the flipped direction.
func (s *PriceSummary) Inverted(invert func(decimal.Decimal) decimal.NullDecimal) *PriceSummary {
	if s == nil {
		return nil
	}
	out := &PriceSummary{
		BaseAsset:  s.QuoteAsset,
		QuoteAsset: s.BaseAsset,
	}
	if p := invert(s.MarketPrice); p.Valid {
		out.MarketPrice = p.Decimal
	}
	out.LastTrades = make([]Trade, len(s.LastTrades))
	for i, t := range s.LastTrades {
		flipped := t
		flipped.BaseAsset, flipped.QuoteAsset = t.QuoteAsset, t.BaseAsset
		flipped.BaseQuantity, flipped.QuoteQuantity = t.QuoteQuantity, t.BaseQuantity
		if p := invert(t.UnitPrice); p.Valid {
			flipped.UnitPrice = p.Decimal
		} else {
			flipped.UnitPrice = decimal.Zero
		}
		out.LastTrades[i] = flipped
	}
	return out
}
