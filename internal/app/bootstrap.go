package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dexmetrics/internal/compiler"
	"dexmetrics/internal/domain"
	"dexmetrics/internal/infra"
	"dexmetrics/internal/infra/extinfo"
	"dexmetrics/internal/infra/headfeed"
	"dexmetrics/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Store    *storage.Store
	Compiler *compiler.Compiler
	Janitor  *storage.Janitor
	Fetcher  *extinfo.Fetcher // nil when extinfo is disabled
	Feed     *headfeed.Feed
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, wiring)
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping dexmetrics...")

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	store, err := storage.NewStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Database.Path))

	b.Compiler = compiler.New(store, store, infra.SystemClock{}, logger, compiler.Options{
		Pair: domain.Pair{
			Base:  cfg.Ledger.BaseAsset,
			Quote: cfg.Ledger.QuoteAsset,
		},
		RecentTrades:       cfg.Compiler.RecentTrades,
		LegacyInvertVolume: *cfg.Compiler.LegacyVolumeInversion,
	})

	b.Janitor = storage.NewJanitor(store,
		cfg.Janitor.PrefRetentionDays,
		cfg.Janitor.OrderRetentionDays,
		logger)

	if cfg.ExtInfo.Enabled {
		fetcher, err := extinfo.New(store, cfg.ExtInfo.ImageDir, logger)
		if err != nil {
			return err
		}
		b.Fetcher = fetcher
		slog.Info("✅ Extended info fetcher ready")
	}

	b.Feed = headfeed.New(cfg.Ledger.WSURL, store, logger)

	return nil
}

// Run starts the block feed and the scheduled loops, then blocks until the
// context is cancelled.
func (b *Bootstrap) Run(ctx context.Context) {
	if err := b.Feed.Connect(ctx); err != nil {
		slog.Error("failed to start block feed", slog.Any("error", err))
	}
	defer b.Feed.Disconnect()

	clock := infra.SystemClock{}
	log := slog.Default()
	loops := []*infra.Loop{
		{
			Name:     "market-compile",
			Interval: time.Duration(b.Config.Compiler.IntervalMin) * time.Minute,
			Clock:    clock,
			Task:     b.Compiler.RunCycle,
			Log:      log,
		},
		{
			Name:     "janitor",
			Interval: time.Duration(b.Config.Janitor.IntervalHours) * time.Hour,
			Clock:    clock,
			Task:     b.Janitor.RunOnce,
			Log:      log,
		},
	}
	if b.Fetcher != nil {
		loops = append(loops, &infra.Loop{
			Name:     "extinfo",
			Interval: time.Duration(b.Config.ExtInfo.IntervalMin) * time.Minute,
			Clock:    clock,
			Task:     b.Fetcher.RunOnce,
			Log:      log,
		})
	}

	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func(l *infra.Loop) {
			defer wg.Done()
			l.Run(ctx)
		}(loop)
		slog.InfoContext(ctx, "✅ Loop started",
			slog.String("loop", loop.Name),
			slog.Duration("interval", loop.Interval))
	}
	wg.Wait()
}
