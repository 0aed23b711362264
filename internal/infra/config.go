package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"dexmetrics/internal/domain"
)

// DefaultUserAgent identifies outbound metadata fetches.
const DefaultUserAgent = "dexmetrics/1.0"

// Config holds every application setting. Values are loaded from YAML and
// then selectively overridden from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Ledger struct {
		// WSURL is the ledger daemon's block event stream.
		WSURL      string `yaml:"ws_url"`
		BaseAsset  string `yaml:"base_asset"`
		QuoteAsset string `yaml:"quote_asset"`
	} `yaml:"ledger"`

	Compiler struct {
		IntervalMin  int `yaml:"interval_min"`
		RecentTrades int `yaml:"recent_trades"`
		// LegacyVolumeInversion keeps the historical reverse-series volume
		// formula. Defaults to true so existing consumers see unchanged
		// numbers; set false for the corrected quantity.
		LegacyVolumeInversion *bool `yaml:"legacy_volume_inversion"`
	} `yaml:"compiler"`

	ExtInfo struct {
		Enabled     bool   `yaml:"enabled"`
		URL         string `yaml:"url"`
		IntervalMin int    `yaml:"interval_min"`
		ImageDir    string `yaml:"image_dir"`
	} `yaml:"extinfo"`

	Janitor struct {
		IntervalHours      int `yaml:"interval_hours"`
		PrefRetentionDays  int `yaml:"pref_retention_days"`
		OrderRetentionDays int `yaml:"order_retention_days"`
	} `yaml:"janitor"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ledger.BaseAsset == "" {
		c.Ledger.BaseAsset = "XCP"
	}
	if c.Ledger.QuoteAsset == "" {
		c.Ledger.QuoteAsset = "BTC"
	}
	if c.Compiler.IntervalMin <= 0 {
		c.Compiler.IntervalMin = 30
	}
	if c.Compiler.RecentTrades <= 0 {
		c.Compiler.RecentTrades = 30
	}
	if c.Compiler.LegacyVolumeInversion == nil {
		legacy := true
		c.Compiler.LegacyVolumeInversion = &legacy
	}
	if c.ExtInfo.IntervalMin <= 0 {
		c.ExtInfo.IntervalMin = 60
	}
	if c.ExtInfo.ImageDir == "" {
		c.ExtInfo.ImageDir = "images"
	}
	if c.Janitor.IntervalHours <= 0 {
		c.Janitor.IntervalHours = 24
	}
	if c.Janitor.PrefRetentionDays <= 0 {
		c.Janitor.PrefRetentionDays = 30
	}
	if c.Janitor.OrderRetentionDays <= 0 {
		c.Janitor.OrderRetentionDays = 15
	}
	if c.Database.Path == "" {
		c.Database.Path = "dexmetrics.db"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Ledger.WSURL == "" || (!strings.HasPrefix(c.Ledger.WSURL, "ws://") && !strings.HasPrefix(c.Ledger.WSURL, "wss://")) {
		return fmt.Errorf("invalid ledger WS URL: %s", c.Ledger.WSURL)
	}
	if c.Ledger.BaseAsset == c.Ledger.QuoteAsset {
		return fmt.Errorf("pair legs must differ: %s", c.Ledger.BaseAsset)
	}
	if c.ExtInfo.Enabled && c.ExtInfo.URL == "" {
		return fmt.Errorf("extinfo enabled without a source URL")
	}
	return nil
}

// overrideWithEnv replaces settings from the environment when present, so
// deployment targets never need to edit the YAML.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("DEXMETRICS_LEDGER_WS"); url != "" {
		cfg.Ledger.WSURL = url
	}
	if path := os.Getenv("DEXMETRICS_DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if url := os.Getenv("DEXMETRICS_EXTINFO_URL"); url != "" {
		cfg.ExtInfo.URL = url
	}
	if level := os.Getenv("DEXMETRICS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
