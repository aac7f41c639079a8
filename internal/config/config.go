package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/marketfeed/internal/common"
	"github.com/bobmcallan/marketfeed/internal/models"
)

// Config represents the application configuration.
type Config struct {
	Site    SiteConfig           `toml:"site"`
	Mirrors []MirrorConfig       `toml:"mirrors"`
	HTTP    HTTPConfig           `toml:"http"`
	News    NewsConfig           `toml:"news"`
	Feed    FeedConfig           `toml:"feed"`
	Storage StorageConfig        `toml:"storage"`
	Logging common.LoggingConfig `toml:"logging"`
}

// SiteConfig locates the published artifact tree on disk.
type SiteConfig struct {
	DocsDir   string `toml:"docs_dir"`   // root of the hosted tree (inputs and outputs)
	ChartsDir string `toml:"charts_dir"` // chart subdirectory, relative to docs_dir
}

// MirrorConfig is one entry of the ordered mirror set.
// Order in the config file defines probe priority.
type MirrorConfig struct {
	Name    string `toml:"name"`
	BaseURL string `toml:"base_url"`
}

// HTTPConfig contains transport settings for mirror probing and recovery.
type HTTPConfig struct {
	Timeout        string  `toml:"timeout"`         // per-request timeout, e.g. "5s"
	MaxRetries     int     `toml:"max_retries"`     // retries per mirror attempt, retriable outcomes only
	BackoffInitial string  `toml:"backoff_initial"` // first retry delay, e.g. "500ms"
	BackoffMax     string  `toml:"backoff_max"`     // backoff ceiling, e.g. "5s"
	ProbeRate      float64 `toml:"probe_rate"`      // probe requests per second
}

// GetTimeout parses and returns the request timeout duration.
func (c *HTTPConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetBackoffInitial parses and returns the initial backoff delay.
func (c *HTTPConfig) GetBackoffInitial() time.Duration {
	d, err := time.ParseDuration(c.BackoffInitial)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetBackoffMax parses and returns the backoff ceiling.
func (c *HTTPConfig) GetBackoffMax() time.Duration {
	d, err := time.ParseDuration(c.BackoffMax)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// NewsConfig bounds the rolling news window.
type NewsConfig struct {
	MaxItems int `toml:"max_items"`
}

// FeedConfig governs feed assembly behavior.
type FeedConfig struct {
	// RunID is the cache-busting identifier appended to generated chart URLs.
	// A fresh UUID is generated per run when empty.
	RunID string `toml:"run_id"`
	// Strict aborts the run when no catalog is available from any source,
	// instead of publishing a placeholder document.
	Strict bool `toml:"strict"`
	// ExtremeTolerance is the 52-week extreme tolerance band
	// (0.001 = within 0.1% of the extreme counts as "at" the extreme).
	ExtremeTolerance float64 `toml:"extreme_tolerance"`
	// Symbols optionally pins the instrument universe. When empty the
	// universe is discovered from the catalog and chart listing.
	Symbols []string `toml:"symbols"`
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// MirrorSet returns the configured mirrors as model records, in priority order.
func (c *Config) MirrorSet() []models.Mirror {
	mirrors := make([]models.Mirror, 0, len(c.Mirrors))
	for _, m := range c.Mirrors {
		if m.BaseURL == "" {
			continue
		}
		mirrors = append(mirrors, models.Mirror{Name: m.Name, BaseURL: strings.TrimRight(m.BaseURL, "/")})
	}
	return mirrors
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Missing files are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies MARKETFEED_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if dir := os.Getenv("MARKETFEED_DOCS_DIR"); dir != "" {
		config.Site.DocsDir = dir
	}
	if mirrors := os.Getenv("MARKETFEED_MIRRORS"); mirrors != "" {
		config.Mirrors = parseMirrorList(mirrors)
	}
	if retries := os.Getenv("MARKETFEED_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			config.HTTP.MaxRetries = n
		}
	}
	if backoff := os.Getenv("MARKETFEED_BACKOFF_INITIAL"); backoff != "" {
		config.HTTP.BackoffInitial = backoff
	}
	if runID := os.Getenv("MARKETFEED_RUN_ID"); runID != "" {
		config.Feed.RunID = runID
	}
	if strict := os.Getenv("MARKETFEED_STRICT"); strict != "" {
		config.Feed.Strict = strict == "true" || strict == "1"
	}
	if maxItems := os.Getenv("MARKETFEED_NEWS_MAX"); maxItems != "" {
		if n, err := strconv.Atoi(maxItems); err == nil && n > 0 {
			config.News.MaxItems = n
		}
	}
	if path := os.Getenv("MARKETFEED_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("MARKETFEED_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// parseMirrorList parses "name=url,name=url" (or bare "url,url") into mirror
// entries, preserving order.
func parseMirrorList(s string) []MirrorConfig {
	var mirrors []MirrorConfig
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, found := strings.Cut(part, "=")
		// A bare URL can carry "=" in its query string; only treat the
		// prefix as a name when it looks like one.
		if !found || strings.ContainsAny(name, "/:") {
			url = part
			name = fmt.Sprintf("mirror%d", i+1)
		}
		mirrors = append(mirrors, MirrorConfig{Name: name, BaseURL: url})
	}
	return mirrors
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, docsDir string, strict bool) {
	if docsDir != "" {
		config.Site.DocsDir = docsDir
	}
	if strict {
		config.Feed.Strict = true
	}
}
