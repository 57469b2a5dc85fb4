package archive

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/slug"
)

// Cache holds archived months by key. Concurrent loads of one month share a
// fetch. A month that cannot be fetched is kept as empty until Purge.
type Cache struct {
	fetcher fetch.Fetcher
	base    fetch.BasePath
	logger  *slog.Logger

	mu     sync.RWMutex
	months map[string][]post.Post
	group  singleflight.Group
}

// NewCache returns an empty Cache. A nil logger uses slog.Default.
func NewCache(f fetch.Fetcher, base fetch.BasePath, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		fetcher: f,
		base:    base,
		logger:  logger,
		months:  make(map[string][]post.Post),
	}
}

// Month returns the posts archived under key. An invalid key or a month that
// cannot be fetched yields no posts; the error is only ever ctx's.
func (c *Cache) Month(ctx context.Context, key string) ([]post.Post, error) {
	m := slug.SanitizeMonthKey(key)
	if m == "" {
		return nil, nil
	}
	c.mu.RLock()
	items, ok := c.months[m]
	c.mu.RUnlock()
	if ok {
		return items, nil
	}

	ch := c.group.DoChan(m, func() (any, error) {
		var items []post.Post
		raw, err := c.fetcher.FetchSequential(context.WithoutCancel(ctx), MonthSources(c.base, m))
		if err != nil {
			c.logger.Warn("archive month unavailable", "month", m, "error", err)
		} else {
			items = post.DecodeList(raw)
		}
		c.mu.Lock()
		c.months[m] = items
		c.mu.Unlock()
		return items, nil
	})
	select {
	case res := <-ch:
		return res.Val.([]post.Post), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Purge drops every cached month and returns how many were held.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.months)
	c.months = make(map[string][]post.Post)
	return n
}
