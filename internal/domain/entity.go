package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Block is an indexed block header, the source of block-time lookups and the
// indexed chain head.
type Block struct {
	Height int64     `gorm:"primaryKey" json:"height"`
	Time   time.Time `gorm:"index" json:"time"`
}

// AppState is a single key/value row of compiler state (checkpoint, network
// head reported by the daemon feed).
type AppState struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preference is a per-address wallet preference blob. Rows untouched for
// longer than the janitor retention window are removed.
type Preference struct {
	Address     string    `gorm:"primaryKey" json:"address"`
	Payload     string    `json:"payload"`
	LastTouched time.Time `gorm:"index" json:"last_touched"`
}

// OpenOrder is a pending off-chain order record with a bounded lifetime.
type OpenOrder struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	TxHash    string    `gorm:"index" json:"tx_hash"`
	Address   string    `json:"address"`
	CreatedAt time.Time `gorm:"index" json:"when_created"`
}

// SupplyRecord is an append-only chain-wide supply reading for one of the
// canonical pair legs. Their supply lives outside the asset registry, so
// at-time lookups walk these records instead of registry snapshots.
type SupplyRecord struct {
	ID          uint            `gorm:"primaryKey" json:"-"`
	Asset       string          `gorm:"index:idx_supply_key" json:"asset"`
	At          time.Time       `gorm:"index:idx_supply_key" json:"at_block_time"`
	TotalIssued decimal.Decimal `gorm:"type:numeric" json:"total_issued_normalized"`
}

func (SupplyRecord) TableName() string { return "chain_supply" }

// AssetExtendedInfo is owner-published metadata for an asset, refreshed
// periodically from the URL embedded in the asset description.
type AssetExtendedInfo struct {
	Asset       string    `gorm:"primaryKey" json:"asset"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Website     string    `json:"website"`
	ImagePath   string    `json:"image_path"`
	Disabled    bool      `json:"disabled"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func (AssetExtendedInfo) TableName() string { return "asset_extended_info" }
