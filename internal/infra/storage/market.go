package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dexmetrics/internal/domain"
)

// mutateMarketInfo read-modify-writes one asset's market info row, creating
// it when absent. Save writes zero-valued fields too, so a recomputed section
// fully overwrites the previous one.
func (s *Store) mutateMarketInfo(ctx context.Context, asset string, mutate func(*domain.AssetMarketInfo)) error {
	var info domain.AssetMarketInfo
	err := s.db.WithContext(ctx).First(&info, "asset = ?", asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		info = domain.AssetMarketInfo{Asset: asset}
	} else if err != nil {
		return err
	}
	mutate(&info)
	info.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(&info).Error
}

func (s *Store) UpsertSummary(ctx context.Context, asset string, summary domain.MarketSummary) error {
	return s.mutateMarketInfo(ctx, asset, func(info *domain.AssetMarketInfo) {
		info.MarketSummary = summary
	})
}

func (s *Store) UpdateWindow24h(ctx context.Context, asset string, w domain.Window24h) error {
	return s.mutateMarketInfo(ctx, asset, func(info *domain.AssetMarketInfo) {
		info.Window24h = w
	})
}

func (s *Store) UpdateWindow7d(ctx context.Context, asset string, w domain.Window7d) error {
	return s.mutateMarketInfo(ctx, asset, func(info *domain.AssetMarketInfo) {
		info.Window7d = w
	})
}

// ZeroWindow24h writes explicit empty 24h sections; a consumer reading the
// row sees "no activity", not a stale window.
func (s *Store) ZeroWindow24h(ctx context.Context, assets []string) error {
	for _, asset := range assets {
		err := s.mutateMarketInfo(ctx, asset, func(info *domain.AssetMarketInfo) {
			info.Window24h = domain.Window24h{Volume24h: decimal.Zero}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ZeroWindow7d(ctx context.Context, assets []string) error {
	for _, asset := range assets {
		err := s.mutateMarketInfo(ctx, asset, func(info *domain.AssetMarketInfo) {
			info.Window7d = domain.Window7d{}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// MarketInfo reads one asset's derived row, nil when never compiled.
func (s *Store) MarketInfo(ctx context.Context, asset string) (*domain.AssetMarketInfo, error) {
	var info domain.AssetMarketInfo
	err := s.db.WithContext(ctx).First(&info, "asset = ?", asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ======================================================================================
// Market cap history
// ======================================================================================

// LatestCapPoint returns the most recent point for (asset, capAs) at or below
// upToBlock, nil when the series is empty there.
func (s *Store) LatestCapPoint(ctx context.Context, asset, capAs string, upToBlock int64) (*domain.CapPoint, error) {
	var point domain.CapPoint
	err := s.db.WithContext(ctx).
		Where("asset = ? AND cap_as = ? AND block_index <= ?", asset, capAs, upToBlock).
		Order("block_index DESC").
		First(&point).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &point, nil
}

func (s *Store) InsertCapPoint(ctx context.Context, p domain.CapPoint) error {
	return s.db.WithContext(ctx).Create(&p).Error
}

// CapHistory reads the full series for one (asset, capAs) key in block order.
func (s *Store) CapHistory(ctx context.Context, asset, capAs string) ([]domain.CapPoint, error) {
	var points []domain.CapPoint
	err := s.db.WithContext(ctx).
		Where("asset = ? AND cap_as = ?", asset, capAs).
		Order("block_index").
		Find(&points).Error
	return points, err
}

// ======================================================================================
// Extended asset info
// ======================================================================================

// PendingExtendedInfo lists enabled entries that carry a metadata URL.
func (s *Store) PendingExtendedInfo(ctx context.Context) ([]domain.AssetExtendedInfo, error) {
	var entries []domain.AssetExtendedInfo
	err := s.db.WithContext(ctx).
		Where("disabled = ? AND url <> ''", false).
		Find(&entries).Error
	return entries, err
}

func (s *Store) SaveExtendedInfo(ctx context.Context, info domain.AssetExtendedInfo) error {
	return s.db.WithContext(ctx).Save(&info).Error
}
