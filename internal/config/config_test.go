package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Site.DocsDir != "docs" {
		t.Errorf("expected docs dir 'docs', got %q", cfg.Site.DocsDir)
	}
	if len(cfg.Mirrors) != 3 {
		t.Fatalf("expected 3 default mirrors, got %d", len(cfg.Mirrors))
	}
	if cfg.Mirrors[0].Name != "pages" {
		t.Errorf("expected first mirror 'pages', got %q", cfg.Mirrors[0].Name)
	}
	if cfg.News.MaxItems != 20 {
		t.Errorf("expected news max 20, got %d", cfg.News.MaxItems)
	}
	if cfg.Feed.ExtremeTolerance != 0.001 {
		t.Errorf("expected tolerance 0.001, got %v", cfg.Feed.ExtremeTolerance)
	}
	if cfg.HTTP.GetTimeout() != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.HTTP.GetTimeout())
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marketfeed.toml")

	content := `
[site]
docs_dir = "/srv/site/docs"

[[mirrors]]
name = "primary"
base_url = "https://example.com/daily/"

[news]
max_items = 5

[feed]
strict = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Site.DocsDir != "/srv/site/docs" {
		t.Errorf("expected docs dir override, got %q", cfg.Site.DocsDir)
	}
	if len(cfg.Mirrors) != 1 || cfg.Mirrors[0].Name != "primary" {
		t.Errorf("expected single 'primary' mirror, got %+v", cfg.Mirrors)
	}
	if cfg.News.MaxItems != 5 {
		t.Errorf("expected news max 5, got %d", cfg.News.MaxItems)
	}
	if !cfg.Feed.Strict {
		t.Error("expected strict mode enabled")
	}
	// Untouched sections keep defaults.
	if cfg.HTTP.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", cfg.HTTP.MaxRetries)
	}
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	cfg, err := LoadFromFiles("/nonexistent/marketfeed.toml")
	if err != nil {
		t.Fatalf("missing file should be skipped, got error: %v", err)
	}
	if cfg.Site.DocsDir != "docs" {
		t.Errorf("expected defaults, got docs dir %q", cfg.Site.DocsDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETFEED_DOCS_DIR", "/tmp/docs")
	t.Setenv("MARKETFEED_MIRRORS", "alpha=https://a.example.com,https://b.example.com")
	t.Setenv("MARKETFEED_STRICT", "1")
	t.Setenv("MARKETFEED_NEWS_MAX", "7")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Site.DocsDir != "/tmp/docs" {
		t.Errorf("expected env docs dir, got %q", cfg.Site.DocsDir)
	}
	if len(cfg.Mirrors) != 2 {
		t.Fatalf("expected 2 mirrors from env, got %d", len(cfg.Mirrors))
	}
	if cfg.Mirrors[0].Name != "alpha" {
		t.Errorf("expected named mirror 'alpha', got %q", cfg.Mirrors[0].Name)
	}
	if cfg.Mirrors[1].Name != "mirror2" {
		t.Errorf("expected generated name 'mirror2', got %q", cfg.Mirrors[1].Name)
	}
	if !cfg.Feed.Strict {
		t.Error("expected strict from env")
	}
	if cfg.News.MaxItems != 7 {
		t.Errorf("expected news max 7, got %d", cfg.News.MaxItems)
	}
}

func TestMirrorSet(t *testing.T) {
	cfg := &Config{
		Mirrors: []MirrorConfig{
			{Name: "pages", BaseURL: "https://example.com/site/"},
			{Name: "empty", BaseURL: ""},
			{Name: "raw", BaseURL: "https://raw.example.com"},
		},
	}

	set := cfg.MirrorSet()
	if len(set) != 2 {
		t.Fatalf("expected 2 mirrors, got %d", len(set))
	}
	if set[0].BaseURL != "https://example.com/site" {
		t.Errorf("expected trailing slash trimmed, got %q", set[0].BaseURL)
	}
	if set[1].Name != "raw" {
		t.Errorf("expected order preserved, got %q", set[1].Name)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, "/opt/docs", true)

	if cfg.Site.DocsDir != "/opt/docs" {
		t.Errorf("expected flag docs dir, got %q", cfg.Site.DocsDir)
	}
	if !cfg.Feed.Strict {
		t.Error("expected strict from flag")
	}

	// Empty flag values leave config untouched.
	ApplyFlagOverrides(cfg, "", false)
	if cfg.Site.DocsDir != "/opt/docs" {
		t.Errorf("expected docs dir unchanged, got %q", cfg.Site.DocsDir)
	}
}
