package compiler

import (
	"context"
	"fmt"
	"time"

	"dexmetrics/internal/domain"
)

// assetInfo resolves an asset's registry entry, optionally as it existed at
// the historical instant at. The canonical pair legs are synthetic entries
// computed from chain-wide supply; every other asset comes from the registry,
// falling back to its snapshot history when the current entry postdates at.
func (c *Compiler) assetInfo(ctx context.Context, asset string, at *time.Time) (*domain.AssetEntry, error) {
	if c.pair.Contains(asset) {
		supply, err := c.ledger.AssetSupply(ctx, asset, at)
		if err != nil {
			return nil, fmt.Errorf("supply of %s: %w", asset, err)
		}
		return &domain.AssetEntry{Asset: asset, TotalIssued: supply}, nil
	}

	entry, err := c.ledger.AssetEntry(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("registry entry of %s: %w", asset, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: %w", asset, domain.ErrInvalidAsset)
	}
	if at != nil {
		resolved, ok := entry.AtTime(*at)
		if !ok {
			return nil, fmt.Errorf("%s at %s: %w", asset, at.UTC().Format(time.RFC3339), domain.ErrAssetNotFoundAt)
		}
		entry = resolved
	}
	return entry, nil
}
