package magzfeed

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/magzfeed/fetch"
)

// SiteConfig holds all configuration for a magzfeed site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Magz")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags

	// DataOrigin is the scheme and host the JSON data files are fetched
	// from. It defaults to the server's own address.
	DataOrigin string `yaml:"data_origin"`
	BasePath   string `yaml:"base_path"` // Deployment sub-path, "" for the root
	DataDir    string `yaml:"data_dir"`  // Directory served at /data (default "data")

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "var/magzfeed.db")

	SessionSecret string `yaml:"session_secret"` // Required: cookie session secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	DefaultCategory string        `yaml:"default_category"` // Category "/" redirects to (default "news")
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`    // Per-request data timeout (default 15s)
	DocCacheTTL     time.Duration `yaml:"doc_cache_ttl"`    // Manifest/taxonomy/index TTL (default 5min)
	SessionTTL      time.Duration `yaml:"session_ttl"`      // Idle page session lifetime (default 30min)
	PageSize        int           `yaml:"page_size"`        // Legacy page size (default 12)
	SidebarSize     int           `yaml:"sidebar_size"`     // Recent posts in the sidebar (default 3)
	FeedSize        int           `yaml:"feed_size"`        // Items per RSS feed (default 20)
	MoreRPS         float64       `yaml:"more_rps"`         // Load-more requests per second per client (default 4)
	MoreBurst       int           `yaml:"more_burst"`       // Load-more burst per client (default 8)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Magz"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.DataOrigin == "" {
		c.DataOrigin = c.URL
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "var/magzfeed.db"
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = "news"
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.DocCacheTTL == 0 {
		c.DocCacheTTL = 5 * time.Minute
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.PageSize == 0 {
		c.PageSize = 12
	}
	if c.SidebarSize == 0 {
		c.SidebarSize = 3
	}
	if c.FeedSize == 0 {
		c.FeedSize = 20
	}
	if c.MoreRPS == 0 {
		c.MoreRPS = 4
	}
	if c.MoreBurst == 0 {
		c.MoreBurst = 8
	}
}

// Base returns the normalized deployment sub-path.
func (c SiteConfig) Base() fetch.BasePath {
	return fetch.NewBasePath(c.BasePath)
}

// LoadConfigFile reads a YAML config file. Durations use Go syntax ("15s").
func LoadConfigFile(path string) (SiteConfig, error) {
	var cfg SiteConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("magzfeed: read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("magzfeed: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithFetcher replaces the HTTP data client, for example with one reading
// from another origin or a test double.
func WithFetcher(f fetch.Fetcher) Option {
	return func(a *App) {
		a.fetcher = f
	}
}

// WithLogger sets the logger handed to the feed libraries.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}
