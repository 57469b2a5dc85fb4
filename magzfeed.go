// Package magzfeed serves a magazine site whose category pages load posts
// incrementally from partitioned JSON data files. It is built with Go, Echo,
// and templ.
//
// Category pages render their first batch on the server; the embedded
// feed.js script asks the load-more endpoint for the rest as the reader
// scrolls or clicks. Users can swap the page templates via ViewFuncs.
package magzfeed

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/partition"
	"github.com/eringen/magzfeed/views"
)

// ViewFuncs holds the templ components the handlers render. Any nil field
// falls back to the views package default.
type ViewFuncs struct {
	CategoryPage func(site views.SiteConfig, page views.CategoryPage) templ.Component
	ArchivePage  func(site views.SiteConfig, page views.ArchivePage) templ.Component
	NotFound     func(site views.SiteConfig) templ.Component
	ServerError  func(site views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		CategoryPage: views.CategoryPageView,
		ArchivePage:  views.ArchivePageView,
		NotFound:     views.NotFound,
		ServerError:  views.ServerError,
	}
}

func (v *ViewFuncs) fill() {
	d := DefaultViews()
	if v.CategoryPage == nil {
		v.CategoryPage = d.CategoryPage
	}
	if v.ArchivePage == nil {
		v.ArchivePage = d.ArchivePage
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
}

// App is the central magzfeed application. It wires together the data
// client, caches, page sessions, handlers, middleware, and templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Docs     *DocCache
	Sessions *PageSessions
	Views    ViewFuncs

	fetcher      fetch.Fetcher
	logger       *slog.Logger
	months       *partition.MonthCache
	archive      *archive.Cache
	builder      *partition.Builder
	moreLimiter  *MoreLimiter
	restores     singleflight.Group
	customRoutes []func(*App)
	staticDir    string
	stop         []func()
}

// New creates a new magzfeed App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	views.fill()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		logger:    slog.Default(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and builds the caches, middleware, and routes without
// starting the listener. Start calls it; tests call it directly and drive
// a.Echo through httptest.
func (a *App) Init() error {
	// Validate required config
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("magzfeed: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("magzfeed: init store: %w", err)
	}
	a.Store = store

	base := a.Config.Base()
	if a.fetcher == nil {
		client, err := fetch.New(a.Config.DataOrigin, base,
			fetch.WithTimeout(a.Config.FetchTimeout),
			fetch.WithLogger(a.logger),
		)
		if err != nil {
			return fmt.Errorf("magzfeed: init data client: %w", err)
		}
		a.fetcher = client
	}

	a.Docs = NewDocCache(a.fetcher, base, a.Config.DocCacheTTL, a.logger)
	a.months = partition.NewMonthCache(a.fetcher, base, a.Config.DocCacheTTL)
	a.archive = archive.NewCache(a.fetcher, base, a.logger)
	a.builder = partition.NewBuilder(a.fetcher, base, a.months,
		partition.WithBuilderLogger(a.logger),
		partition.WithPageSize(a.Config.PageSize),
	)
	a.Sessions = NewPageSessions(a.Config.SessionTTL)
	a.moreLimiter = NewMoreLimiter(a.Config.MoreRPS, a.Config.MoreBurst, 10*time.Minute)
	a.stop = append(a.stop, a.moreLimiter.Stop, a.startSessionSweeper(time.Minute))

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// The feed script ships with the binary and falls through to the
	// user's static dir for everything else under /public/.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/feed.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.Static("/data", a.Config.DataDir)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/category/", a.handleCategory)
	e.GET("/category/:cat/", a.handleCategory)
	e.GET("/category/:cat/:sub/", a.handleCategory)
	e.GET("/category/more/", a.handleMore)
	e.GET("/archive/", a.handleArchive)
}

// site returns the view-facing site settings.
func (a *App) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Base:        a.Config.Base(),
	}
}

// Reload drops the cached data documents and month partitions, so the next
// page reads the data files as they are now. Open page sessions keep the
// loaders they were built with.
func (a *App) Reload() {
	docs := a.Docs.Invalidate()
	months := a.months.Purge()
	archived := a.archive.Purge()
	a.logger.Info("data caches reloaded", "documents", docs, "months", months, "archive_months", archived)
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	for _, stop := range a.stop {
		stop()
	}
	a.stop = nil
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("magzfeed: required environment variable %s is not set", key)
	}
	return v
}
