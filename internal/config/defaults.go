package config

import "github.com/bobmcallan/marketfeed/internal/common"

// NewDefaultConfig creates a new configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			DocsDir:   "docs",
			ChartsDir: "charts",
		},
		Mirrors: []MirrorConfig{
			{Name: "pages", BaseURL: "https://bobmcallan.github.io/market-daily"},
			{Name: "raw", BaseURL: "https://raw.githubusercontent.com/bobmcallan/market-daily/gh-pages"},
			{Name: "jsdelivr", BaseURL: "https://cdn.jsdelivr.net/gh/bobmcallan/market-daily@gh-pages"},
		},
		HTTP: HTTPConfig{
			Timeout:        "5s",
			MaxRetries:     3,
			BackoffInitial: "500ms",
			BackoffMax:     "5s",
			ProbeRate:      5,
		},
		News: NewsConfig{
			MaxItems: 20,
		},
		Feed: FeedConfig{
			ExtremeTolerance: 0.001,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/marketfeed",
			},
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/marketfeed.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}
