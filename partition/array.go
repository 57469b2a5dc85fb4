package partition

import (
	"context"
	"sync"

	"github.com/eringen/magzfeed/post"
)

// DefaultPageSize is the legacy page size.
const DefaultPageSize = 12

// ArrayLoader pages through posts already held in memory. It serves the
// legacy whole-file path.
type ArrayLoader struct {
	items    []post.Post
	pageSize int

	mu    sync.Mutex
	pages int
}

// NewArrayLoader returns a loader over items. A pageSize below 1 uses
// DefaultPageSize.
func NewArrayLoader(items []post.Post, pageSize int) *ArrayLoader {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &ArrayLoader{items: items, pageSize: pageSize}
}

// LoadNext returns the next page.
func (a *ArrayLoader) LoadNext(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	start := a.pages * a.pageSize
	if start >= len(a.items) {
		return Batch{Done: true}, nil
	}
	end := min(start+a.pageSize, len(a.items))
	a.pages++
	return Batch{Items: a.items[start:end], Done: end >= len(a.items)}, nil
}

// EnsureCount returns the first n posts.
func (a *ArrayLoader) EnsureCount(_ context.Context, n int) ([]post.Post, error) {
	if n <= 0 {
		return nil, nil
	}
	return capItems(a.items, n), nil
}

// HasMore reports whether a page remains.
func (a *ArrayLoader) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pages*a.pageSize < len(a.items)
}

// Total returns the number of posts.
func (a *ArrayLoader) Total() int { return len(a.items) }

// Cursor returns the number of pages delivered.
func (a *ArrayLoader) Cursor() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pages
}

// Seek moves forward to page n. It never moves back.
func (a *ArrayLoader) Seek(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	last := (len(a.items) + a.pageSize - 1) / a.pageSize
	if n > last {
		n = last
	}
	if n > a.pages {
		a.pages = n
	}
}

var (
	_ Loader = (*Partitioned)(nil)
	_ Loader = (*ArrayLoader)(nil)
)
