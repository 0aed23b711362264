package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dexmetrics/internal/domain"
	"dexmetrics/pkg/fixed8"
)

// CaughtUp reports whether the indexed head has reached the network head the
// block feed last announced. Before the feed reports anything, the answer is
// no: the compiler must not derive from a store of unknown freshness.
func (s *Store) CaughtUp(ctx context.Context) (bool, error) {
	networkHead, known, err := s.getState(ctx, stateNetworkHead)
	if err != nil {
		return false, err
	}
	if !known {
		return false, nil
	}
	head, err := s.ChainHead(ctx)
	if err != nil {
		return false, err
	}
	return head >= networkHead, nil
}

// ChainHead returns the highest indexed block, 0 for an empty index.
func (s *Store) ChainHead(ctx context.Context) (int64, error) {
	var block domain.Block
	err := s.db.WithContext(ctx).Order("height DESC").First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return block.Height, err
}

func (s *Store) BlockTime(ctx context.Context, height int64) (time.Time, error) {
	var block domain.Block
	if err := s.db.WithContext(ctx).First(&block, "height = ?", height).Error; err != nil {
		return time.Time{}, fmt.Errorf("block %d: %w", height, err)
	}
	return block.Time, nil
}

func tradeQuery(db *gorm.DB, f domain.TradeFilter) *gorm.DB {
	q := db.Model(&domain.Trade{})
	if f.SinceTime != nil {
		q = q.Where("block_time >= ?", *f.SinceTime)
	}
	if f.UntilTime != nil {
		q = q.Where("block_time <= ?", *f.UntilTime)
	}
	if f.AfterBlock != nil {
		q = q.Where("block_index > ?", *f.AfterBlock)
	}
	if f.BaseAsset != "" {
		q = q.Where("base_asset = ?", f.BaseAsset)
	}
	if f.QuoteAsset != "" {
		q = q.Where("quote_asset = ?", f.QuoteAsset)
	}
	if len(f.BaseIn) > 0 {
		q = q.Where("base_asset IN ?", f.BaseIn)
	}
	return q
}

// TradesInRange scans the trade log in ledger order.
func (s *Store) TradesInRange(ctx context.Context, f domain.TradeFilter) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := tradeQuery(s.db.WithContext(ctx), f).
		Order("block_index, tx_index").
		Find(&trades).Error
	return trades, err
}

func (s *Store) DistinctAssets(ctx context.Context, f domain.TradeFilter, side domain.TradeSide) ([]string, error) {
	col := "base_asset"
	if side == domain.SideQuote {
		col = "quote_asset"
	}
	var assets []string
	err := tradeQuery(s.db.WithContext(ctx), f).
		Distinct().
		Order(col).
		Pluck(col, &assets).Error
	return assets, err
}

// PriceSummary aggregates one market over the option window: the half-even
// average of unit prices plus the newest trades for display. No trades in the
// window yields a nil summary, never a zeroed one.
func (s *Store) PriceSummary(ctx context.Context, base, quote string, opt domain.SummaryOptions) (*domain.PriceSummary, error) {
	trades, err := s.TradesInRange(ctx, domain.TradeFilter{
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
	summary := &domain.PriceSummary{
		BaseAsset:   base,
		QuoteAsset:  quote,
		MarketPrice: fixed8.Quantize(sum.Div(decimal.NewFromInt(int64(len(trades))))),
	}
	for i := len(trades) - 1; i >= 0 && len(summary.LastTrades) < opt.LastTrades; i-- {
		summary.LastTrades = append(summary.LastTrades, trades[i])
	}
	return summary, nil
}

// AssetSupply answers the chain-wide supply of a pair leg, as of at when
// given, from the append-only supply record log.
func (s *Store) AssetSupply(ctx context.Context, asset string, at *time.Time) (decimal.Decimal, error) {
	q := s.db.WithContext(ctx).Where("asset = ?", asset)
	if at != nil {
		q = q.Where("at <= ?", *at)
	}
	var rec domain.SupplyRecord
	err := q.Order("at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, fmt.Errorf("no supply recorded for %s", asset)
	}
	return rec.TotalIssued, err
}

// AssetEntry returns the registry entry, or nil when the asset is unknown.
func (s *Store) AssetEntry(ctx context.Context, asset string) (*domain.AssetEntry, error) {
	var entry domain.AssetEntry
	err := s.db.WithContext(ctx).First(&entry, "asset = ?", asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ======================================================================================
// Ingest side: written by the index follower, read by everything above
// ======================================================================================

// RecordBlock stores (or refreshes) one block header.
func (s *Store) RecordBlock(ctx context.Context, b domain.Block) error {
	return s.db.WithContext(ctx).Save(&b).Error
}

// RecordTrade appends one fill to the trade log.
func (s *Store) RecordTrade(ctx context.Context, t domain.Trade) error {
	return s.db.WithContext(ctx).Create(&t).Error
}

// UpsertAssetEntry writes the registry entry for an asset.
func (s *Store) UpsertAssetEntry(ctx context.Context, e domain.AssetEntry) error {
	return s.db.WithContext(ctx).Save(&e).Error
}

// RecordSupply appends a chain-wide supply reading for a pair leg.
func (s *Store) RecordSupply(ctx context.Context, r domain.SupplyRecord) error {
	return s.db.WithContext(ctx).Create(&r).Error
}
