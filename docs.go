package magzfeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/manifest"
	"github.com/eringen/magzfeed/taxonomy"
)

// DocCache holds the site-wide data documents (manifest, taxonomy, archive
// index) with a TTL. Concurrent misses share one fetch. A document that fails
// to load is cached as absent for the TTL too, so a site without a manifest
// does not refetch it on every page view.
type DocCache struct {
	fetcher fetch.Fetcher
	base    fetch.BasePath
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]docEntry
}

type docEntry struct {
	value   any
	fetched time.Time
}

// NewDocCache creates a DocCache reading through f.
func NewDocCache(f fetch.Fetcher, base fetch.BasePath, ttl time.Duration, logger *slog.Logger) *DocCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocCache{
		fetcher: f,
		base:    base,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]docEntry),
	}
}

func (d *DocCache) get(ctx context.Context, key string, load func(context.Context) (any, error)) any {
	d.mu.RLock()
	e, ok := d.entries[key]
	d.mu.RUnlock()
	if ok && time.Since(e.fetched) < d.ttl {
		return e.value
	}

	ch := d.group.DoChan(key, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			d.logger.Info("data document unavailable", "document", key, "error", err)
			v = nil
		}
		d.mu.Lock()
		d.entries[key] = docEntry{value: v, fetched: time.Now()}
		d.mu.Unlock()
		return v, nil
	})
	select {
	case res := <-ch:
		return res.Val
	case <-ctx.Done():
		return nil
	}
}

// Manifest returns the category manifest, or nil when the site has none.
func (d *DocCache) Manifest(ctx context.Context) *manifest.Manifest {
	m, _ := d.get(ctx, "manifest", func(ctx context.Context) (any, error) {
		return manifest.Load(ctx, d.fetcher, d.base)
	}).(*manifest.Manifest)
	return m
}

// Taxonomy returns the category taxonomy. It never returns nil.
func (d *DocCache) Taxonomy(ctx context.Context) *taxonomy.Lookup {
	t, _ := d.get(ctx, "taxonomy", func(ctx context.Context) (any, error) {
		return taxonomy.Load(ctx, d.fetcher, d.base)
	}).(*taxonomy.Lookup)
	if t == nil {
		return taxonomy.New()
	}
	return t
}

// ArchiveIndex returns the archive index, or nil when it is unavailable.
func (d *DocCache) ArchiveIndex(ctx context.Context) *archive.Index {
	idx, _ := d.get(ctx, "archive", func(ctx context.Context) (any, error) {
		return archive.LoadIndex(ctx, d.fetcher, d.base)
	}).(*archive.Index)
	return idx
}

// Invalidate drops every cached document and returns how many were held.
func (d *DocCache) Invalidate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.entries)
	d.entries = make(map[string]docEntry)
	return n
}
