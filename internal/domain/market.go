package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLC is a trailing-window candle for one sub-market. A nil *OHLC means the
// sub-market saw no trades in the window (or the sub-market is the asset
// against itself, which is always empty).
type OHLC struct {
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"vol"`
	Count  int64           `json:"count"`
}

// PricePoint is one hourly bucket of the 7d history series: epoch
// milliseconds, half-even average price, and summed volume.
type PricePoint struct {
	When   int64           `json:"when"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"vol"`
}

// MarketSummary is the current-state pricing block of an asset's market info.
// Invalid NullDecimals are the explicit "unknown" marker; they are never
// silently zero.
type MarketSummary struct {
	PriceInBase      decimal.NullDecimal `gorm:"type:numeric" json:"price_in_base"`
	PriceInQuote     decimal.NullDecimal `gorm:"type:numeric" json:"price_in_quote"`
	PriceAsBase      decimal.NullDecimal `gorm:"type:numeric" json:"price_as_base"`
	PriceAsQuote     decimal.NullDecimal `gorm:"type:numeric" json:"price_as_quote"`
	AggPriceInBase   decimal.NullDecimal `gorm:"type:numeric" json:"aggregated_price_in_base"`
	AggPriceInQuote  decimal.NullDecimal `gorm:"type:numeric" json:"aggregated_price_in_quote"`
	AggPriceAsBase   decimal.NullDecimal `gorm:"type:numeric" json:"aggregated_price_as_base"`
	AggPriceAsQuote  decimal.NullDecimal `gorm:"type:numeric" json:"aggregated_price_as_quote"`
	TotalSupply      decimal.Decimal     `gorm:"type:numeric" json:"total_supply"`
	MarketCapInBase  decimal.NullDecimal `gorm:"type:numeric" json:"market_cap_in_base"`
	MarketCapInQuote decimal.NullDecimal `gorm:"type:numeric" json:"market_cap_in_quote"`
}

// Window24h holds the trailing-24h aggregates. Volume and Count cover the
// asset on every pairing; the OHLC fields cover its market against each
// canonical pair leg only.
type Window24h struct {
	Volume24h             decimal.Decimal     `gorm:"type:numeric" json:"24h_vol"`
	Count24h              int64               `json:"24h_count"`
	OHLCInBase            *OHLC               `gorm:"serializer:json" json:"24h_ohlc_in_base"`
	OHLCInQuote           *OHLC               `gorm:"serializer:json" json:"24h_ohlc_in_quote"`
	PriceChange24hInBase  decimal.NullDecimal `gorm:"type:numeric" json:"24h_price_change_in_base"`
	PriceChange24hInQuote decimal.NullDecimal `gorm:"type:numeric" json:"24h_price_change_in_quote"`
}

// Window7d holds the trailing-7d hourly history series against each
// canonical pair leg.
type Window7d struct {
	History7dInBase  []PricePoint `gorm:"serializer:json" json:"7d_history_in_base"`
	History7dInQuote []PricePoint `gorm:"serializer:json" json:"7d_history_in_quote"`
}

// AssetMarketInfo is the one derived row per traded asset that consumers
// read. Each cycle fully overwrites the sections it recomputes; an asset
// with no trades in a window still gets explicit zeroed fields.
type AssetMarketInfo struct {
	Asset         string `gorm:"primaryKey" json:"asset"`
	MarketSummary `gorm:"embedded"`
	Window24h     `gorm:"embedded"`
	Window7d      `gorm:"embedded"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (AssetMarketInfo) TableName() string { return "asset_market_info" }

// CapPoint is one point of the sparse market-cap history. For a given
// (Asset, CapAs) key, points are ordered by BlockIndex and no two adjacent
// points hold the same MarketCap.
type CapPoint struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	BlockIndex int64           `gorm:"index:idx_cap_key" json:"block_index"`
	BlockTime  time.Time       `json:"block_time"`
	Asset      string          `gorm:"index:idx_cap_key" json:"asset"`
	MarketCap  decimal.Decimal `gorm:"type:numeric" json:"market_cap"`
	CapAs      string          `gorm:"index:idx_cap_key" json:"market_cap_as"` // one of the two pair legs
}

func (CapPoint) TableName() string { return "asset_marketcap_history" }
