package partition

import (
	"context"
	"log/slog"
	"strings"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/manifest"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/slug"
	"github.com/eringen/magzfeed/taxonomy"
)

// LegacySources lists the whole-file posts document locations.
var LegacySources = []string{"/data/posts.json"}

// PageOptions selects the category a page shows.
type PageOptions struct {
	Category string
	Sub      string
	// Source names a manifest entry to try before the other fallbacks, so a
	// restored page reads the entry it was first built from.
	Source string
	// Label is the operator's heading text, if any.
	Label    string
	Taxonomy *taxonomy.Lookup
}

// heading returns the raw label for the page: the operator's label, else the
// taxonomy title, else "Category — Sub" for a subcategory page.
func (o PageOptions) heading(requested string) string {
	if l := strings.TrimSpace(o.Label); l != "" {
		return l
	}
	if t, ok := o.Taxonomy.Title(requested); ok {
		return t
	}
	cat, sub := slug.Slugify(o.Category), slug.Slugify(o.Sub)
	if cat == "" || sub == "" || sub == cat {
		return ""
	}
	return o.title(cat) + " — " + o.title(sub)
}

func (o PageOptions) title(categorySlug string) string {
	if t, ok := o.Taxonomy.Title(categorySlug); ok {
		return t
	}
	return slug.Titleize(categorySlug)
}

// fallbacks lists the entries tried after the requested slug's own parent
// chain: the source entry, the subcategory's parents, then the category.
func (o PageOptions) fallbacks(requested string) []string {
	cat, sub := slug.Slugify(o.Category), slug.Slugify(o.Sub)
	var out []string
	if o.Source != "" {
		out = append(out, o.Source)
	}
	if sub != "" && sub != requested {
		out = append(out, o.Taxonomy.Ancestors(sub)...)
	}
	if cat != "" && cat != requested {
		out = append(out, cat)
	}
	return out
}

// RequestedSlug returns the normalized slug the options ask for:
// "category-sub" when a subcategory is given.
func (o PageOptions) RequestedSlug() string {
	cat, sub := slug.Slugify(o.Category), slug.Slugify(o.Sub)
	switch {
	case cat == "":
		return sub
	case sub == "" || sub == cat:
		return cat
	default:
		return cat + "-" + sub
	}
}

// Page is the data a category page is driven from.
type Page struct {
	Loader Loader
	// Slug is the manifest key the loader reads, "" on the legacy path.
	Slug          string
	RequestedSlug string
	// FilterSlug, when set, restricts delivered posts to that category. It is
	// set when the loader reads an ancestor's chunks.
	FilterSlug string
	Label      string
	Legacy     bool
}

// Builder assembles loaders for category pages.
type Builder struct {
	fetcher  fetch.Fetcher
	base     fetch.BasePath
	months   *MonthCache
	logger   *slog.Logger
	pageSize int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the Builder's logger.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPageSize sets the legacy page size.
func WithPageSize(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

// NewBuilder returns a Builder. months may be shared between builders; nil
// creates a private cache.
func NewBuilder(f fetch.Fetcher, base fetch.BasePath, months *MonthCache, opts ...BuilderOption) *Builder {
	if months == nil {
		months = NewMonthCache(f, base, 0)
	}
	b := &Builder{
		fetcher:  f,
		base:     base,
		months:   months,
		logger:   slog.Default(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// InitializePageData picks the data source for a category page. With a
// manifest entry for the category (or an ancestor) it returns a partitioned
// loader; otherwise it reads the legacy posts file. A failing legacy fetch
// yields an empty loader, not an error.
func (b *Builder) InitializePageData(ctx context.Context, m *manifest.Manifest, opts PageOptions) (*Page, error) {
	requested := opts.RequestedSlug()
	page := &Page{
		RequestedSlug: requested,
		Label:         slug.ResolveLabel(opts.Taxonomy, requested, opts.heading(requested)),
	}

	if key := manifest.ResolveCategorySlug(m, requested, opts.Taxonomy, opts.fallbacks(requested)...); key != "" {
		entry, _ := m.Entry(key)
		loader, err := New(b.Loaders(entry), WithTotal(entry.Count), WithLogger(b.logger))
		if err == nil {
			page.Loader = loader
			page.Slug = entry.Slug
			if entry.Slug != requested {
				page.FilterSlug = requested
			}
			return page, nil
		}
		b.logger.Info("manifest entry unusable, using legacy posts", "category", requested, "error", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page.Legacy = true
	page.Loader = NewArrayLoader(b.legacyPosts(ctx, requested), b.pageSize)
	return page, nil
}

// Loaders maps an entry's descriptors onto chunk loaders.
func (b *Builder) Loaders(e manifest.Entry) []ChunkLoader {
	descs := e.Descriptors()
	out := make([]ChunkLoader, 0, len(descs))
	seen := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if _, dup := seen[d.Key()]; dup {
			continue
		}
		seen[d.Key()] = struct{}{}
		switch d.Kind {
		case manifest.KindMonth:
			categorySlug, month := e.Slug, d.Month
			out = append(out, NewChunkLoader(d.Key(), d.Count, func(ctx context.Context) ([]post.Post, error) {
				return b.months.Get(ctx, categorySlug, month)
			}))
		case manifest.KindInline:
			items := d.Items
			out = append(out, NewChunkLoader(d.Key(), d.Count, func(context.Context) ([]post.Post, error) {
				return items, nil
			}))
		case manifest.KindSources:
			urls := b.base.Candidates(d.URLs...)
			if len(urls) == 0 {
				continue
			}
			out = append(out, NewChunkLoader(d.Key(), d.Count, func(ctx context.Context) ([]post.Post, error) {
				raw, err := b.fetcher.FetchSequential(ctx, urls)
				if err != nil {
					return nil, err
				}
				return post.DecodeList(raw), nil
			}))
		}
	}
	return out
}

func (b *Builder) legacyPosts(ctx context.Context, categorySlug string) []post.Post {
	raw, err := b.fetcher.FetchSequential(ctx, b.base.Candidates(LegacySources...))
	if err != nil {
		b.logger.Warn("legacy posts unavailable", "category", categorySlug, "error", err)
		return nil
	}
	posts := post.DecodeList(raw)
	if categorySlug != "" {
		posts = keepMatching(posts, categorySlug)
	}
	post.SortNewest(posts)
	return posts
}

func keepMatching(posts []post.Post, categorySlug string) []post.Post {
	out := posts[:0]
	for _, p := range posts {
		if p.MatchesCategory(categorySlug) {
			out = append(out, p)
		}
	}
	return out
}
