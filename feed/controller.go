// Package feed drives an incremental category feed: it pulls batches from a
// partition.Loader on demand, renders them, and decides when the feed is done.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eringen/magzfeed/partition"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/slug"
)

// MaxEmptyBatches bounds how many consecutive empty batches one request may
// pull before it gives up and waits for the next trigger.
const MaxEmptyBatches = 8

const (
	EmptyMessage     = "No posts found for this category yet."
	AllLoadedMessage = "All posts loaded"
)

// Renderer receives the controller's output.
type Renderer interface {
	// Reset clears the list and shows the sentinel and load-more control.
	Reset()
	// AppendPosts adds cards before the sentinel.
	AppendPosts(posts []post.Post)
	SetProgress(label string)
	SetLoading(loading bool)
	SetTitle(title string)
	// Finish removes the sentinel. With empty set the list is replaced by
	// message and the control is removed; otherwise the control is disabled
	// and labelled with message.
	Finish(empty bool, message string)
}

// Config configures a Controller.
type Config struct {
	ID           string
	Loader       partition.Loader
	Renderer     Renderer
	Schedulers   []Scheduler
	CategorySlug string
	// SourceSlug names the manifest entry the loader reads, "" on the
	// legacy path.
	SourceSlug string
	// FilterSlug restricts rendered posts to one category.
	FilterSlug string
	Label      string
	Titles     slug.TitleLookup
	Logger     *slog.Logger
	Now        func() time.Time
}

// Result describes one RequestMore call.
type Result struct {
	// Skipped is set when the call was a no-op because a load was in flight
	// or the feed had finished.
	Skipped  bool
	Appended int
	Done     bool
}

// Controller is the feed state machine.
type Controller struct {
	id           string
	loader       partition.Loader
	renderer     Renderer
	schedulers   []Scheduler
	categorySlug string
	sourceSlug   string
	filterSlug   string
	logger       *slog.Logger
	now          func() time.Time

	mu          sync.Mutex
	label       string
	labelLocked bool
	loading     bool
	finished    bool
	rendered    int
	updatedAt   time.Time
}

// New creates a Controller. The label starts locked when the taxonomy has a
// title for the category or the supplied label is operator text.
func New(cfg Config) *Controller {
	c := &Controller{
		id:           cfg.ID,
		loader:       cfg.Loader,
		renderer:     cfg.Renderer,
		schedulers:   cfg.Schedulers,
		categorySlug: cfg.CategorySlug,
		sourceSlug:   cfg.SourceSlug,
		filterSlug:   cfg.FilterSlug,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.label = slug.ResolveLabel(cfg.Titles, c.categorySlug, cfg.Label)
	if cfg.Titles != nil {
		if _, ok := cfg.Titles.Title(c.categorySlug); ok {
			c.labelLocked = true
		}
	}
	if l := strings.TrimSpace(cfg.Label); l != "" && slug.Slugify(l) != c.categorySlug {
		c.labelLocked = true
	}
	c.updatedAt = c.now()
	return c
}

// ID returns the page session id.
func (c *Controller) ID() string { return c.id }

// Label returns the current category label.
func (c *Controller) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

// Finished reports whether the feed has terminated.
func (c *Controller) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Rendered returns the number of posts rendered so far.
func (c *Controller) Rendered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rendered
}

// HasMore reports whether the loader has undelivered chunks.
func (c *Controller) HasMore() bool {
	return !c.Finished() && c.loader.HasMore()
}

// Start resets the renderer and attaches the schedulers.
func (c *Controller) Start() {
	c.renderer.Reset()
	c.renderer.SetTitle(c.Label())
	for _, s := range c.schedulers {
		s.Attach(c.fire)
	}
}

func (c *Controller) fire(ctx context.Context, t Trigger) error {
	_, err := c.RequestMore(ctx, t)
	return err
}

// RequestMore loads and renders the next batch. It is a no-op while a load is
// in flight or after the feed finished. Empty batches with chunks remaining
// are followed by another load, up to MaxEmptyBatches.
func (c *Controller) RequestMore(ctx context.Context, t Trigger) (Result, error) {
	c.mu.Lock()
	if c.loading || c.finished {
		c.mu.Unlock()
		return Result{Skipped: true}, nil
	}
	c.loading = true
	c.mu.Unlock()
	c.renderer.SetLoading(true)

	var res Result
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.updatedAt = c.now()
		c.mu.Unlock()
		if !res.Done {
			c.renderer.SetLoading(false)
		}
	}()

	for empties := 0; ; {
		batch, err := c.loader.LoadNext(ctx)
		if err != nil {
			return res, fmt.Errorf("feed: load next (%s): %w", t, err)
		}

		items := post.FilterCategory(batch.Items, c.filterSlug)
		if len(items) > 0 {
			c.reconcileLabel(items)
			c.renderer.AppendPosts(items)
			c.mu.Lock()
			c.rendered += len(items)
			c.mu.Unlock()
			res.Appended += len(items)
		}
		c.renderer.SetProgress(c.progress())

		if batch.Done || !c.loader.HasMore() {
			c.Finish()
			res.Done = true
			return res, nil
		}
		if len(items) > 0 {
			return res, nil
		}
		empties++
		if empties >= MaxEmptyBatches {
			c.logger.Debug("empty batch limit reached", "session", c.id, "category", c.categorySlug)
			return res, nil
		}
	}
}

// Finish terminates the feed: schedulers are detached and the renderer shows
// either the empty state or the all-loaded control. It is idempotent.
func (c *Controller) Finish() {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}
	c.finished = true
	empty := c.rendered == 0
	c.mu.Unlock()

	for _, s := range c.schedulers {
		s.Detach()
	}
	if empty {
		c.renderer.Finish(true, EmptyMessage)
		return
	}
	c.renderer.Finish(false, AllLoadedMessage)
}

func (c *Controller) progress() string {
	c.mu.Lock()
	n := c.rendered
	c.mu.Unlock()
	total := 0
	if c.filterSlug == "" {
		total = c.loader.Total()
	}
	if total > 0 {
		return fmt.Sprintf("Showing %d of %d results.", n, total)
	}
	return fmt.Sprintf("Showing %d results.", n)
}

// reconcileLabel upgrades the label once from the most specific category
// name found in items.
func (c *Controller) reconcileLabel(items []post.Post) {
	c.mu.Lock()
	if c.labelLocked {
		c.mu.Unlock()
		return
	}
	var upgraded string
	for _, p := range items {
		if l := c.candidateLabel(p); l != "" {
			upgraded = l
			break
		}
	}
	if upgraded == "" {
		c.mu.Unlock()
		return
	}
	c.labelLocked = true
	changed := upgraded != c.label
	c.label = upgraded
	c.mu.Unlock()

	if changed {
		c.renderer.SetTitle(upgraded)
	}
}

func (c *Controller) candidateLabel(p post.Post) string {
	candidates := []struct{ value, label string }{
		{p.Subcategory, strings.TrimSpace(p.Subcategory)},
		{p.CategorySlug, slug.Titleize(slug.Slugify(p.CategorySlug))},
		{p.Category, strings.TrimSpace(p.Category)},
	}
	for _, cand := range candidates {
		s := slug.Slugify(cand.value)
		if s == "" || cand.label == "" {
			continue
		}
		if s == c.categorySlug || strings.HasSuffix(c.categorySlug, "-"+s) {
			return cand.label
		}
	}
	return ""
}
