// Package partition turns a category's chunk descriptors into a cursor that
// hands out one chunk per request, fetching each chunk at most once.
package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eringen/magzfeed/post"
)

// ErrNoChunks is returned by New when no usable chunk loader remains.
var ErrNoChunks = errors.New("partition: no chunks")

// ChunkLoadError reports a chunk whose fetch failed. The chunk is treated as
// empty and the cursor moves past it.
type ChunkLoadError struct {
	Index int
	Key   string
	Err   error
}

func (e *ChunkLoadError) Error() string {
	return fmt.Sprintf("partition: chunk %d (%s): %v", e.Index, e.Key, e.Err)
}

func (e *ChunkLoadError) Unwrap() error { return e.Err }

// Batch is the result of one LoadNext call. Done is true once no chunk
// follows the one just delivered.
type Batch struct {
	Items []post.Post
	Done  bool
}

// Loader is the pagination cursor shared by the partitioned and legacy paths.
type Loader interface {
	LoadNext(ctx context.Context) (Batch, error)
	EnsureCount(ctx context.Context, n int) ([]post.Post, error)
	HasMore() bool
	Total() int
	Cursor() int
	Seek(n int)
}

// FetchFunc produces the posts of one chunk.
type FetchFunc func(ctx context.Context) ([]post.Post, error)

// ChunkLoader is one lazily fetched chunk.
type ChunkLoader struct {
	key   string
	count int
	fetch FetchFunc
}

// NewChunkLoader returns a loader for one chunk. count is the declared item
// count, 0 when unknown.
func NewChunkLoader(key string, count int, fetch FetchFunc) ChunkLoader {
	return ChunkLoader{key: key, count: count, fetch: fetch}
}

// Key identifies the chunk.
func (c ChunkLoader) Key() string { return c.key }

// Count is the declared item count, 0 when unknown.
func (c ChunkLoader) Count() int { return c.count }

type promise struct {
	done chan struct{}
	// abandoned is set when the owning fetch was cancelled; waiters retry.
	abandoned bool
	items     []post.Post
}

// Partitioned walks a list of chunk loaders in order.
type Partitioned struct {
	logger  *slog.Logger
	loaders []ChunkLoader
	total   int

	mu        sync.Mutex
	promises  []*promise
	loaded    [][]post.Post
	resolved  []bool
	delivered int
}

// Option configures a Partitioned loader.
type Option func(*Partitioned)

// WithTotal sets the authoritative item count.
func WithTotal(n int) Option {
	return func(p *Partitioned) {
		if n > 0 {
			p.total = n
		}
	}
}

// WithLogger sets the logger used for chunk failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Partitioned) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds a Partitioned loader. Loaders without a fetch function are
// dropped; if none remain it returns ErrNoChunks.
func New(loaders []ChunkLoader, opts ...Option) (*Partitioned, error) {
	usable := make([]ChunkLoader, 0, len(loaders))
	for _, l := range loaders {
		if l.fetch != nil {
			usable = append(usable, l)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoChunks
	}
	p := &Partitioned{
		logger:   slog.Default(),
		loaders:  usable,
		promises: make([]*promise, len(usable)),
		loaded:   make([][]post.Post, len(usable)),
		resolved: make([]bool, len(usable)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Len returns the number of chunks.
func (p *Partitioned) Len() int { return len(p.loaders) }

// LoadNext delivers the chunk at the cursor and advances past it. Empty
// chunks are skipped until a non-empty one is found or the list ends.
// Concurrent calls for the same index share one fetch and receive the same
// batch; the cursor advances once.
func (p *Partitioned) LoadNext(ctx context.Context) (Batch, error) {
	p.mu.Lock()
	i := p.delivered
	p.mu.Unlock()

	for {
		if i >= len(p.loaders) {
			return Batch{Done: true}, nil
		}
		items, err := p.chunk(ctx, i)
		if err != nil {
			return Batch{}, err
		}

		p.mu.Lock()
		if p.delivered == i {
			p.delivered = i + 1
		}
		next := p.delivered
		p.mu.Unlock()

		done := next >= len(p.loaders)
		if len(items) > 0 || done {
			return Batch{Items: items, Done: done}, nil
		}
		i = next
	}
}

// EnsureCount loads chunks in order until at least n posts are available or
// every chunk is loaded, and returns at most n posts. The cursor is not moved.
func (p *Partitioned) EnsureCount(ctx context.Context, n int) ([]post.Post, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []post.Post
	for i := 0; i < len(p.loaders) && len(out) < n; i++ {
		items, err := p.chunk(ctx, i)
		if err != nil {
			return capItems(out, n), err
		}
		out = append(out, items...)
	}
	return capItems(out, n), nil
}

// HasMore reports whether the cursor has not passed the last chunk.
func (p *Partitioned) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered < len(p.loaders)
}

// Total returns the best known item count: the authoritative total, else the
// sum of declared chunk counts when every chunk declares one, else the loaded
// count once every chunk is resolved, else 0.
func (p *Partitioned) Total() int {
	if p.total > 0 {
		return p.total
	}
	sum, known := 0, true
	for _, l := range p.loaders {
		if l.count <= 0 {
			known = false
			break
		}
		sum += l.count
	}
	if known {
		return sum
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i, ok := range p.resolved {
		if !ok {
			return 0
		}
		n += len(p.loaded[i])
	}
	return n
}

// Cursor returns the number of chunks delivered so far.
func (p *Partitioned) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered
}

// Seek moves the cursor forward to n, clamped to the chunk count. It never
// moves the cursor back.
func (p *Partitioned) Seek(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > len(p.loaders) {
		n = len(p.loaders)
	}
	if n > p.delivered {
		p.delivered = n
	}
}

// chunk returns the posts of chunk i, fetching it on first use. A failed
// fetch resolves to an empty chunk. A cancelled fetch is not memoized.
func (p *Partitioned) chunk(ctx context.Context, i int) ([]post.Post, error) {
	for {
		p.mu.Lock()
		pr := p.promises[i]
		owner := pr == nil
		if owner {
			pr = &promise{done: make(chan struct{})}
			p.promises[i] = pr
		}
		p.mu.Unlock()

		if owner {
			return p.resolve(ctx, i, pr)
		}

		select {
		case <-pr.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if pr.abandoned {
			continue
		}
		return pr.items, nil
	}
}

func (p *Partitioned) resolve(ctx context.Context, i int, pr *promise) ([]post.Post, error) {
	l := p.loaders[i]
	items, err := l.fetch(ctx)

	p.mu.Lock()
	defer close(pr.done)
	defer p.mu.Unlock()

	if err != nil && ctx.Err() != nil {
		pr.abandoned = true
		p.promises[i] = nil
		return nil, ctx.Err()
	}
	if err != nil {
		p.logger.Warn("chunk load failed", "error", &ChunkLoadError{Index: i, Key: l.key, Err: err})
		items = nil
	}
	pr.items = items
	p.loaded[i] = items
	p.resolved[i] = true
	return items, nil
}

func capItems(items []post.Post, n int) []post.Post {
	if len(items) > n {
		return items[:n]
	}
	return items
}
