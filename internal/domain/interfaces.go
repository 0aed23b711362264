package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerReader is the read-only view of the ledger/store collaborator: the
// indexed chain state the compiler derives everything from.
type LedgerReader interface {
	// CaughtUp reports whether the indexer has reached the chain head.
	CaughtUp(ctx context.Context) (bool, error)
	// ChainHead returns the highest indexed block.
	ChainHead(ctx context.Context) (int64, error)
	// BlockTime returns the timestamp of a block.
	BlockTime(ctx context.Context, block int64) (time.Time, error)
	// PriceSummary aggregates the (base, quote) market over the option
	// window. A nil summary means no trades, never an error.
	PriceSummary(ctx context.Context, base, quote string, opt SummaryOptions) (*PriceSummary, error)
	// AssetSupply answers the chain-wide total issued supply of one of the
	// canonical pair legs, as of at when given.
	AssetSupply(ctx context.Context, asset string, at *time.Time) (decimal.Decimal, error)
	// AssetEntry returns the registry entry, or nil when unknown.
	AssetEntry(ctx context.Context, asset string) (*AssetEntry, error)
	// TradesInRange scans the trade log, ordered by block index then ledger
	// position within the block.
	TradesInRange(ctx context.Context, f TradeFilter) ([]Trade, error)
	// DistinctAssets lists the distinct assets appearing on the given side
	// of trades matching the filter.
	DistinctAssets(ctx context.Context, f TradeFilter, side TradeSide) ([]string, error)
}

// MarketStore is the persistence collaborator owning the derived outputs.
// The compiler is its only writer.
type MarketStore interface {
	UpsertSummary(ctx context.Context, asset string, s MarketSummary) error
	UpdateWindow24h(ctx context.Context, asset string, w Window24h) error
	UpdateWindow7d(ctx context.Context, asset string, w Window7d) error
	// ZeroWindow24h/7d write explicit empty window records for assets with
	// no trades in the window; absence of a row is not a "no activity"
	// signal.
	ZeroWindow24h(ctx context.Context, assets []string) error
	ZeroWindow7d(ctx context.Context, assets []string) error
	// LatestCapPoint returns the most recent history point for
	// (asset, capAs) at or below upToBlock, or nil. Inclusive so a replayed
	// block compares against its own earlier write.
	LatestCapPoint(ctx context.Context, asset, capAs string, upToBlock int64) (*CapPoint, error)
	InsertCapPoint(ctx context.Context, p CapPoint) error
	// Checkpoint is the last fully-compiled block index.
	Checkpoint(ctx context.Context) (int64, error)
	SetCheckpoint(ctx context.Context, block int64) error
}

// Clock abstracts time for the scheduler and the compiler so cycle timing
// and trailing windows are deterministic under test.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}
