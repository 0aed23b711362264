package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AssetSnapshot is the state of a registry entry at a past mutation.
type AssetSnapshot struct {
	At          time.Time       `json:"at_block_time"`
	TotalIssued decimal.Decimal `json:"total_issued_normalized"`
}

// AssetEntry is a registry entry for a tracked asset. Every mutation appends
// a snapshot, so History is ordered oldest to newest. The two canonical pair
// legs are synthetic entries computed on demand from chain-wide supply and
// never live in the registry table.
type AssetEntry struct {
	Asset       string          `gorm:"primaryKey" json:"asset"`
	TotalIssued decimal.Decimal `gorm:"type:numeric" json:"total_issued_normalized"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime:false" json:"at_block_time"` // block time of the last mutation, not a row timestamp
	History     []AssetSnapshot `gorm:"serializer:json" json:"history"`
}

func (AssetEntry) TableName() string { return "asset_registry" }

// SnapshotAt returns the latest snapshot whose timestamp is <= at, or false
// when the asset did not exist yet. History is time-ordered, so this is a
// binary search rather than a newest-to-oldest scan.
func (e *AssetEntry) SnapshotAt(at time.Time) (AssetSnapshot, bool) {
	// first index with History[i].At > at
	i := sort.Search(len(e.History), func(i int) bool {
		return e.History[i].At.After(at)
	})
	if i == 0 {
		return AssetSnapshot{}, false
	}
	return e.History[i-1], true
}

// AtTime resolves the entry as it existed at the given instant. The current
// state answers unless the last mutation happened after at; otherwise the
// snapshot history is consulted.
func (e *AssetEntry) AtTime(at time.Time) (*AssetEntry, bool) {
	if !e.UpdatedAt.After(at) {
		return e, true
	}
	snap, ok := e.SnapshotAt(at)
	if !ok {
		return nil, false
	}
	return &AssetEntry{
		Asset:       e.Asset,
		TotalIssued: snap.TotalIssued,
		UpdatedAt:   snap.At,
	}, true
}
