package storage

import (
	"context"
	"log/slog"
	"time"

	"dexmetrics/internal/domain"
)

// Janitor removes stale wallet-facing records on a schedule: preferences
// untouched beyond their retention window and long-dead open order records.
type Janitor struct {
	store          *Store
	prefRetention  time.Duration
	orderRetention time.Duration
	log            *slog.Logger
}

func NewJanitor(store *Store, prefRetentionDays, orderRetentionDays int, log *slog.Logger) *Janitor {
	return &Janitor{
		store:          store,
		prefRetention:  time.Duration(prefRetentionDays) * 24 * time.Hour,
		orderRetention: time.Duration(orderRetentionDays) * 24 * time.Hour,
		log:            log,
	}
}

// RunOnce deletes everything past retention.
func (j *Janitor) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	res := j.store.db.WithContext(ctx).
		Where("last_touched < ?", now.Add(-j.prefRetention)).
		Delete(&domain.Preference{})
	if res.Error != nil {
		return res.Error
	}
	prefs := res.RowsAffected

	res = j.store.db.WithContext(ctx).
		Where("created_at < ?", now.Add(-j.orderRetention)).
		Delete(&domain.OpenOrder{})
	if res.Error != nil {
		return res.Error
	}

	j.log.Info("expired stale records",
		slog.Int64("preferences", prefs),
		slog.Int64("open_orders", res.RowsAffected))
	return nil
}
