package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dexmetrics/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AppState keys owned by this process.
const (
	stateCheckpoint  = "last_block_assets_compiled"
	stateNetworkHead = "network_head"
)

// Store is the SQLite-backed persistence layer. It implements both sides the
// compiler depends on: the read-only ledger view and the derived market info
// store.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the database at path and migrates the schema.
func NewStore(path string) (*Store, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.Block{},
		&domain.Trade{},
		&domain.AssetEntry{},
		&domain.SupplyRecord{},
		&domain.AssetMarketInfo{},
		&domain.CapPoint{},
		&domain.AppState{},
		&domain.Preference{},
		&domain.OpenOrder{},
		&domain.AssetExtendedInfo{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// ======================================================================================
// App state (KV)
// ======================================================================================

func (s *Store) getState(ctx context.Context, key string) (int64, bool, error) {
	var state domain.AppState
	err := s.db.WithContext(ctx).First(&state, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return state.Value, true, nil
}

func (s *Store) saveState(ctx context.Context, key string, value int64) error {
	state := domain.AppState{Key: key, Value: value}
	return s.db.WithContext(ctx).Save(&state).Error
}

// Checkpoint is the last fully compiled block index, 0 before the first run.
func (s *Store) Checkpoint(ctx context.Context) (int64, error) {
	v, _, err := s.getState(ctx, stateCheckpoint)
	return v, err
}

func (s *Store) SetCheckpoint(ctx context.Context, block int64) error {
	return s.saveState(ctx, stateCheckpoint, block)
}

// SetNetworkHead records the chain head as reported by the daemon's block
// feed. The caught-up check compares the indexed head against it.
func (s *Store) SetNetworkHead(ctx context.Context, block int64) error {
	return s.saveState(ctx, stateNetworkHead, block)
}
