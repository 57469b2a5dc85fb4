package manifest

import (
	"strings"

	"github.com/eringen/magzfeed/post"
)

// Kind tags the variant held by a ChunkDescriptor.
type Kind int

const (
	// KindMonth is a month partition served at data/posts/{slug}/{month}.json.
	KindMonth Kind = iota + 1
	// KindInline carries its posts inside the manifest.
	KindInline
	// KindSources is an ordered list of candidate URLs for one chunk.
	KindSources
)

func (k Kind) String() string {
	switch k {
	case KindMonth:
		return "month"
	case KindInline:
		return "inline"
	case KindSources:
		return "sources"
	default:
		return "unknown"
	}
}

// ChunkDescriptor describes one fetchable unit of a category feed.
type ChunkDescriptor struct {
	Kind  Kind
	Month string      // KindMonth, or the month a template expanded into URLs
	Items []post.Post // KindInline
	URLs  []string    // KindSources
	Count int         // declared item count, 0 when unknown
}

// MonthChunk returns a month partition descriptor.
func MonthChunk(month string, count int) ChunkDescriptor {
	return ChunkDescriptor{Kind: KindMonth, Month: month, Count: count}
}

// InlineChunk returns a descriptor for posts embedded in the manifest.
func InlineChunk(items []post.Post) ChunkDescriptor {
	return ChunkDescriptor{Kind: KindInline, Items: items, Count: len(items)}
}

// SourcesChunk returns a descriptor for an explicit candidate URL list.
func SourcesChunk(urls []string, count int) ChunkDescriptor {
	return ChunkDescriptor{Kind: KindSources, URLs: urls, Count: count}
}

// Key identifies the descriptor within its category.
func (d ChunkDescriptor) Key() string {
	switch d.Kind {
	case KindMonth:
		return "month:" + d.Month
	case KindSources:
		return "sources:" + strings.Join(d.URLs, ",")
	case KindInline:
		if len(d.Items) > 0 {
			return "inline:" + d.Items[0].Slug
		}
		return "inline:"
	default:
		return ""
	}
}

// Entry is the canonical shape of one category in the manifest.
type Entry struct {
	// Slug is the manifest key the entry was decoded under.
	Slug string
	// Months are "YYYY-MM" keys, newest first, unique.
	Months []string
	// MonthCounts holds declared per-month counts when the manifest lists them.
	MonthCounts map[string]int
	// Template, when set, replaces the default month URL. It may use the
	// {slug}, {category} and {month} placeholders.
	Template string
	Chunks   []ChunkDescriptor
	// Count is the authoritative item total, 0 when unknown.
	Count int
}

// HasData reports whether the entry can produce any chunk.
func (e Entry) HasData() bool {
	return len(e.Months) > 0 || len(e.Chunks) > 0
}

// Descriptors returns the entry's chunks in delivery order: explicit chunks
// first, then month partitions not already covered by an explicit month chunk.
// Descriptors sharing a Key are listed once.
func (e Entry) Descriptors() []ChunkDescriptor {
	out := make([]ChunkDescriptor, 0, len(e.Chunks)+len(e.Months))
	covered := make(map[string]struct{})
	seen := make(map[string]struct{})
	add := func(c ChunkDescriptor) {
		k := c.Key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	for _, c := range e.Chunks {
		if c.Month != "" {
			covered[c.Month] = struct{}{}
		}
		add(c)
	}
	for _, m := range e.Months {
		if _, ok := covered[m]; ok {
			continue
		}
		count := e.MonthCounts[m]
		if e.Template != "" {
			add(templateChunk(e.Template, e.Slug, m, count))
			continue
		}
		add(MonthChunk(m, count))
	}
	return out
}

func templateChunk(template, categorySlug, month string, count int) ChunkDescriptor {
	c := SourcesChunk([]string{expand(template, categorySlug, month)}, count)
	c.Month = month
	return c
}

func expand(template, categorySlug, month string) string {
	return strings.NewReplacer(
		"{slug}", categorySlug,
		"{category}", categorySlug,
		"{month}", month,
	).Replace(template)
}
