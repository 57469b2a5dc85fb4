package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/slug"
)

var (
	// ErrStale is returned by SelectMonth when a later selection superseded it.
	ErrStale = errors.New("archive: load superseded")
	// ErrInvalidMonth is returned for keys that are not "YYYY-MM".
	ErrInvalidMonth = errors.New("archive: invalid month")
)

const (
	StatusLoadingArchive = "Loading archive…"
	StatusUnavailable    = "Archive data is not available yet."
	StatusMonthFailed    = "Unable to load this archive month."
	DefaultSummary       = "Browse past months of coverage."
)

// Renderer receives the archive view's output.
type Renderer interface {
	// SetStatus shows message, or hides the status line when it is empty.
	SetStatus(message string, isError bool)
	SetHeading(text string)
	SetSummary(text string)
	RenderMonths(months []Month, active string)
	// RenderPosts replaces the list; with no posts it shows emptyText.
	RenderPosts(posts []post.Post, emptyText string)
}

// Heading returns the page heading for a month key.
func Heading(key string) string {
	if l := slug.FormatMonthLabel(key); l != "" {
		return "Archive — " + l
	}
	return "Archive"
}

// Summary returns the summary line for an index.
func Summary(idx *Index) string {
	if idx == nil || idx.TotalEntries <= 0 {
		return DefaultSummary
	}
	return fmt.Sprintf("Browse %s archived stories from previous months.", humanize.Comma(int64(idx.TotalEntries)))
}

// EmptyText returns the empty-list text for a month key.
func EmptyText(key string) string {
	label := slug.FormatMonthLabel(key)
	if label == "" {
		label = "this month"
	}
	return "No archived posts for " + label + " yet."
}

// LoadingText returns the status shown while a month loads.
func LoadingText(key string) string {
	label := slug.FormatMonthLabel(key)
	if label == "" {
		label = key
	}
	return "Loading " + label + "…"
}

// View is the archive page state. Each SelectMonth takes a new load token;
// only the latest selection may render.
type View struct {
	cache    *Cache
	renderer Renderer
	logger   *slog.Logger

	mu     sync.Mutex
	index  *Index
	active string
	token  uint64
}

// NewView returns a View rendering into r.
func NewView(cache *Cache, r Renderer, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{cache: cache, renderer: r, logger: logger}
}

// Active returns the selected month key.
func (v *View) Active() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// Index returns the index the view was initialized with.
func (v *View) Index() *Index {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index
}

// InitialMonth picks the month to open: preferred when it is indexed, else
// the newest month.
func InitialMonth(idx *Index, preferred ...string) string {
	for _, p := range preferred {
		if m := slug.SanitizeMonthKey(p); m != "" && idx.Has(m) {
			return m
		}
	}
	if idx == nil || len(idx.Months) == 0 {
		return ""
	}
	return idx.Months[0].Key
}

// Init renders the month list and selects the initial month. A nil or empty
// index renders the unavailable state.
func (v *View) Init(ctx context.Context, idx *Index, preferred ...string) error {
	v.renderer.SetStatus(StatusLoadingArchive, false)
	v.renderer.SetSummary(Summary(idx))

	v.mu.Lock()
	v.index = idx
	v.mu.Unlock()

	if idx == nil || len(idx.Months) == 0 {
		v.renderer.SetStatus(StatusUnavailable, true)
		v.renderer.SetHeading(Heading(""))
		v.renderer.RenderMonths(nil, "")
		v.renderer.RenderPosts(nil, EmptyText(""))
		return nil
	}

	month := InitialMonth(idx, preferred...)
	v.mu.Lock()
	v.active = month
	v.mu.Unlock()
	v.renderer.RenderMonths(idx.Months, month)
	v.renderer.SetStatus("", false)
	return v.SelectMonth(ctx, month)
}

// SelectMonth loads and renders one month. If another selection starts
// before this one finishes, the result is dropped and ErrStale returned.
func (v *View) SelectMonth(ctx context.Context, key string) error {
	m := slug.SanitizeMonthKey(key)
	if m == "" {
		return ErrInvalidMonth
	}

	v.mu.Lock()
	v.token++
	id := v.token
	changed := v.active != m
	v.active = m
	idx := v.index
	v.mu.Unlock()

	if changed && idx != nil {
		v.renderer.RenderMonths(idx.Months, m)
	}
	v.renderer.SetHeading(Heading(m))
	v.renderer.SetStatus(LoadingText(m), false)

	items, err := v.cache.Month(ctx, m)

	v.mu.Lock()
	defer v.mu.Unlock()
	if id != v.token {
		return ErrStale
	}
	if err != nil {
		v.logger.Warn("archive month load failed", "month", m, "error", err)
		v.renderer.SetStatus(StatusMonthFailed, true)
		v.renderer.RenderPosts(nil, EmptyText(m))
		return fmt.Errorf("archive: month %s: %w", m, err)
	}
	v.renderer.SetStatus("", false)
	v.renderer.RenderPosts(items, EmptyText(m))
	return nil
}
