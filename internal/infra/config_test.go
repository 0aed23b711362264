package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dexmetrics/internal/domain"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults Applied", func(t *testing.T) {
		path := writeConfigFile(t, "ledger:\n  ws_url: ws://localhost:4100/events\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Ledger.BaseAsset != "XCP" || cfg.Ledger.QuoteAsset != "BTC" {
			t.Errorf("unexpected default pair %s/%s", cfg.Ledger.BaseAsset, cfg.Ledger.QuoteAsset)
		}
		if cfg.Compiler.IntervalMin != 30 || cfg.Compiler.RecentTrades != 30 {
			t.Errorf("unexpected compiler defaults: %+v", cfg.Compiler)
		}
		if cfg.Compiler.LegacyVolumeInversion == nil || !*cfg.Compiler.LegacyVolumeInversion {
			t.Error("legacy volume inversion must default on")
		}
		if cfg.Database.Path != "dexmetrics.db" {
			t.Errorf("unexpected default db path %s", cfg.Database.Path)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, domain.ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("Secure Websocket Accepted", func(t *testing.T) {
		path := writeConfigFile(t, "ledger:\n  ws_url: wss://ledger.example:4100/events\n")
		if _, err := LoadConfig(path); err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
	})

	t.Run("Non-Websocket URL Rejected", func(t *testing.T) {
		path := writeConfigFile(t, "ledger:\n  ws_url: http://localhost:4100/events\n")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("an http:// feed URL must fail validation")
		}
	})

	t.Run("Identical Pair Legs Rejected", func(t *testing.T) {
		path := writeConfigFile(t, "ledger:\n  ws_url: ws://localhost:4100/events\n  base_asset: XCP\n  quote_asset: XCP\n")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("a degenerate pair must fail validation")
		}
	})

	t.Run("Environment Override", func(t *testing.T) {
		path := writeConfigFile(t, "ledger:\n  ws_url: ws://localhost:4100/events\n")
		t.Setenv("DEXMETRICS_DB_PATH", "/var/lib/dexmetrics/override.db")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Database.Path != "/var/lib/dexmetrics/override.db" {
			t.Errorf("env override ignored, got %s", cfg.Database.Path)
		}
	})
}
