package compiler

import (
	"context"
	"testing"

	"dexmetrics/internal/domain"
)

func historyLedger() *memLedger {
	ledger := newMemLedger()
	ledger.supplies["XCP"] = dec("2600000")
	ledger.supplies["BTC"] = dec("21000000")
	ledger.entries["FOO"] = &domain.AssetEntry{
		Asset:       "FOO",
		TotalIssued: dec("1000"),
		UpdatedAt:   at("2024-05-01T00:00:00Z"),
	}
	// FOO trades twice within block 100
	ledger.addTrade(domain.Trade{
		BlockIndex: 100, TxIndex: 0, BlockTime: at("2024-06-01T10:00:00Z"),
		BaseAsset: "XCP", QuoteAsset: "FOO",
		UnitPrice: dec("2"), BaseQuantity: dec("10"), QuoteQuantity: dec("20"),
	})
	ledger.addTrade(domain.Trade{
		BlockIndex: 100, TxIndex: 1, BlockTime: at("2024-06-01T10:00:00Z"),
		BaseAsset: "XCP", QuoteAsset: "FOO",
		UnitPrice: dec("3"), BaseQuantity: dec("10"), QuoteQuantity: dec("30"),
	})
	return ledger
}

func TestExtendCapHistory(t *testing.T) {
	ctx := context.Background()
	now := at("2024-06-10T00:00:00Z")

	t.Run("One Point Per Asset Per Block", func(t *testing.T) {
		ledger := historyLedger()
		store := newMemStore()
		c := testCompiler(t, ledger, store, now, false)

		if err := c.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}
		points := store.capPoints("FOO", "XCP")
		if len(points) != 1 {
			t.Fatalf("expected a single point for the block, got %d", len(points))
		}
		// price anchored at the block time averages both in-block trades:
		// (2+3)/2 = 2.5, so cap = 1000 / 2.5
		if !points[0].MarketCap.Equal(dec("400")) {
			t.Errorf("expected market cap 400, got %v", points[0].MarketCap)
		}
		if points[0].BlockIndex != 100 {
			t.Errorf("expected point at block 100, got %d", points[0].BlockIndex)
		}
	})

	t.Run("Pair Leg Cap Is Its Supply", func(t *testing.T) {
		ledger := historyLedger()
		store := newMemStore()
		c := testCompiler(t, ledger, store, now, false)

		if err := c.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}
		points := store.capPoints("XCP", "XCP")
		if len(points) != 1 || !points[0].MarketCap.Equal(dec("2600000")) {
			t.Fatalf("expected one XCP point worth its own supply, got %v", points)
		}
		// the pair never traded, so a BTC-denominated cap is unknowable
		if len(store.capPoints("XCP", "BTC")) != 0 {
			t.Error("expected no BTC-denominated points without a pair rate")
		}
	})

	t.Run("Replay Is Idempotent", func(t *testing.T) {
		ledger := historyLedger()
		store := newMemStore()
		c := testCompiler(t, ledger, store, now, false)

		if err := c.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}
		before := len(store.points)
		if err := c.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}
		if len(store.points) != before {
			t.Errorf("replaying the same range grew the series from %d to %d points", before, len(store.points))
		}
	})

	t.Run("Split Replay Matches Single Replay", func(t *testing.T) {
		later := domain.Trade{
			BlockIndex: 102, TxIndex: 0, BlockTime: at("2024-06-03T10:00:00Z"),
			BaseAsset: "XCP", QuoteAsset: "FOO",
			UnitPrice: dec("12.5"), BaseQuantity: dec("4"), QuoteQuantity: dec("50"),
		}

		oneShot := newMemStore()
		full := historyLedger()
		full.addTrade(later)
		c := testCompiler(t, full, oneShot, now, false)
		if err := c.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}

		// replay the same trades across two cycles, the second resuming from
		// a checkpoint in the middle of the range
		split := newMemStore()
		partial := historyLedger()
		c2 := testCompiler(t, partial, split, now, false)
		if err := c2.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("first half: %v", err)
		}
		partial.addTrade(later)
		if err := c2.extendCapHistory(ctx, 100); err != nil {
			t.Fatalf("second half: %v", err)
		}

		a, b := oneShot.capPoints("FOO", "XCP"), split.capPoints("FOO", "XCP")
		if len(a) != len(b) {
			t.Fatalf("split replay produced %d points, single replay %d", len(b), len(a))
		}
		for i := range a {
			if a[i].BlockIndex != b[i].BlockIndex || !a[i].MarketCap.Equal(b[i].MarketCap) {
				t.Errorf("point %d diverged: %v@%d vs %v@%d",
					i, a[i].MarketCap, a[i].BlockIndex, b[i].MarketCap, b[i].BlockIndex)
			}
		}
	})

	t.Run("Only Changes Are Appended", func(t *testing.T) {
		ledger := historyLedger()
		store := newMemStore()
		c := testCompiler(t, ledger, store, now, false)

		if err := c.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}

		// a later trade that leaves the running average at 2.5 must not add
		// a point
		ledger.addTrade(domain.Trade{
			BlockIndex: 101, TxIndex: 0, BlockTime: at("2024-06-02T10:00:00Z"),
			BaseAsset: "XCP", QuoteAsset: "FOO",
			UnitPrice: dec("2.5"), BaseQuantity: dec("4"), QuoteQuantity: dec("10"),
		})
		if err := c.extendCapHistory(ctx, 100); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}
		if got := store.capPoints("FOO", "XCP"); len(got) != 1 {
			t.Fatalf("unchanged cap must not append, got %d points", len(got))
		}

		// a trade that moves the average to 5 halves the supply-per-price
		ledger.addTrade(domain.Trade{
			BlockIndex: 102, TxIndex: 0, BlockTime: at("2024-06-03T10:00:00Z"),
			BaseAsset: "XCP", QuoteAsset: "FOO",
			UnitPrice: dec("12.5"), BaseQuantity: dec("4"), QuoteQuantity: dec("50"),
		})
		if err := c.extendCapHistory(ctx, 101); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}
		points := store.capPoints("FOO", "XCP")
		if len(points) != 2 {
			t.Fatalf("expected a second point after the cap moved, got %d", len(points))
		}
		if !points[1].MarketCap.Equal(dec("200")) || points[1].BlockIndex != 102 {
			t.Errorf("expected cap 200 at block 102, got %v at %d", points[1].MarketCap, points[1].BlockIndex)
		}
	})

	t.Run("Unresolvable Asset Is Skipped", func(t *testing.T) {
		ledger := historyLedger()
		// GHOST has no registry entry, its side of the trade is skipped but
		// the replay still completes
		ledger.addTrade(domain.Trade{
			BlockIndex: 103, TxIndex: 0, BlockTime: at("2024-06-04T10:00:00Z"),
			BaseAsset: "XCP", QuoteAsset: "GHOST",
			UnitPrice: dec("1"), BaseQuantity: dec("1"), QuoteQuantity: dec("1"),
		})
		store := newMemStore()
		c := testCompiler(t, ledger, store, now, false)

		if err := c.extendCapHistory(ctx, 0); err != nil {
			t.Fatalf("extendCapHistory: %v", err)
		}
		if len(store.capPoints("GHOST", "XCP")) != 0 {
			t.Error("expected no points for an unresolvable asset")
		}
		if len(store.capPoints("FOO", "XCP")) == 0 {
			t.Error("other assets must still be recorded")
		}
	})
}
