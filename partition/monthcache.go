package partition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/post"
)

// DefaultMonthTTL is how long a fetched month stays cached.
const DefaultMonthTTL = 5 * time.Minute

type monthEntry struct {
	items     []post.Post
	expiresAt time.Time
}

// MonthCache holds fetched month partitions keyed by "slug|month". Concurrent
// requests for the same key share one fetch; failures are not cached.
type MonthCache struct {
	fetcher fetch.Fetcher
	base    fetch.BasePath
	ttl     time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]monthEntry
	group   singleflight.Group
}

// NewMonthCache creates a cache. A ttl of 0 uses DefaultMonthTTL.
func NewMonthCache(f fetch.Fetcher, base fetch.BasePath, ttl time.Duration) *MonthCache {
	if ttl <= 0 {
		ttl = DefaultMonthTTL
	}
	return &MonthCache{
		fetcher: f,
		base:    base,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]monthEntry),
	}
}

// MonthURLs returns the candidates for a month partition.
func MonthURLs(base fetch.BasePath, categorySlug, month string) []string {
	return base.Candidates(fmt.Sprintf("/data/posts/%s/%s.json", categorySlug, month))
}

// Get returns the posts of one month, fetching them on a miss.
func (c *MonthCache) Get(ctx context.Context, categorySlug, month string) ([]post.Post, error) {
	key := categorySlug + "|" + month

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.items, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		raw, err := c.fetcher.FetchSequential(context.WithoutCancel(ctx), MonthURLs(c.base, categorySlug, month))
		if err != nil {
			return nil, err
		}
		items := post.DecodeList(raw)
		c.mu.Lock()
		c.entries[key] = monthEntry{items: items, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return items, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]post.Post), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Purge drops every cached month and returns how many were held.
func (c *MonthCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]monthEntry)
	return n
}
