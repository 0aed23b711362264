package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dexmetrics/internal/app"
)

func main() {
	configPath := "configs/config.yaml"
	if p := os.Getenv("DEXMETRICS_CONFIG"); p != "" {
		configPath = p
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "✨ Market data compiler operational. Press Ctrl+C to exit.")
	bootstrap.Run(ctx)

	slog.Info("👋 Shutting down gracefully...")
}
