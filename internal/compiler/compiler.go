// Package compiler derives market analytics (prices, market capitalization,
// OHLC history) for assets traded on a ledger-backed exchange from the raw,
// append-only trade log. Consumers only ever read the derived rows it
// produces; nothing downstream recomputes from trades.
package compiler

import (
	"log/slog"

	"dexmetrics/internal/domain"
)

// DefaultRecentTrades is the fixed number of recent trades attached to
// display-oriented price summaries.
const DefaultRecentTrades = 30

// Options tunes a Compiler.
type Options struct {
	// Pair is the canonical reference pair; everything is denominated in
	// its two legs.
	Pair domain.Pair
	// RecentTrades is the display trade count for summaries (default 30).
	RecentTrades int
	// LegacyInvertVolume preserves the original behavior of running the
	// price-inversion formula over the 7d reverse-direction bucket volume.
	LegacyInvertVolume bool
}

// Compiler runs the compilation cycle. It owns the AssetMarketInfo table,
// the market-cap history and the checkpoint exclusively; all of its inputs
// come through the read-only LedgerReader.
type Compiler struct {
	ledger domain.LedgerReader
	store  domain.MarketStore
	clock  domain.Clock
	log    *slog.Logger

	pair               domain.Pair
	recentTrades       int
	legacyInvertVolume bool
}

// New creates a Compiler.
func New(ledger domain.LedgerReader, store domain.MarketStore, clock domain.Clock, log *slog.Logger, opts Options) *Compiler {
	if opts.RecentTrades <= 0 {
		opts.RecentTrades = DefaultRecentTrades
	}
	return &Compiler{
		ledger:             ledger,
		store:              store,
		clock:              clock,
		log:                log,
		pair:               opts.Pair,
		recentTrades:       opts.RecentTrades,
		legacyInvertVolume: opts.LegacyInvertVolume,
	}
}
