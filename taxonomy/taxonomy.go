// Package taxonomy indexes the site's category taxonomy: display titles and
// the parent each category falls back to.
package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/slug"
)

// Sources lists the taxonomy document locations, in the order they are tried.
// The misspelled file name is still published by older builds.
var Sources = []string{"/data/taxonomy.json", "/data/toxanomi.json"}

type document struct {
	Categories []category `json:"categories"`
}

type category struct {
	Slug   string     `json:"slug"`
	Title  string     `json:"title"`
	Group  string     `json:"group"`
	Parent string     `json:"parent"`
	Subs   []category `json:"subs"`
}

// Lookup maps normalized category slugs to titles and parents. It is built
// once and read-only afterwards.
type Lookup struct {
	titles  map[string]string
	parents map[string]string
}

// New returns an empty Lookup.
func New() *Lookup {
	return &Lookup{
		titles:  make(map[string]string),
		parents: make(map[string]string),
	}
}

// Parse builds a Lookup from a taxonomy document.
func Parse(raw json.RawMessage) (*Lookup, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("taxonomy: decode: %w", err)
	}
	l := New()
	for _, c := range doc.Categories {
		s := slug.Slugify(c.Slug)
		if s == "" {
			s = slug.Slugify(c.Title)
		}
		if s == "" {
			continue
		}
		parent := slug.Slugify(c.Parent)
		if parent == "" {
			parent = slug.Slugify(c.Group)
		}
		l.Register(s, c.Title, parent)
		for _, sub := range c.Subs {
			ss := slug.Slugify(sub.Slug)
			if ss == "" {
				ss = slug.Slugify(sub.Title)
			}
			if ss == "" {
				continue
			}
			l.Register(s+"-"+ss, sub.Title, s)
			if _, exists := l.titles[ss]; !exists {
				l.Register(ss, sub.Title, s)
			}
		}
	}
	return l, nil
}

// Load fetches and parses the taxonomy document. On failure it returns an
// empty Lookup together with the error, so callers can keep going.
func Load(ctx context.Context, f fetch.Fetcher, base fetch.BasePath) (*Lookup, error) {
	raw, err := f.FetchSequential(ctx, base.Candidates(Sources...))
	if err != nil {
		return New(), err
	}
	l, err := Parse(raw)
	if err != nil {
		return New(), err
	}
	return l, nil
}

// Register records a category. A parent equal to the slug itself is ignored.
func (l *Lookup) Register(categorySlug, title, parent string) {
	l.titles[categorySlug] = title
	if parent != "" && parent != categorySlug {
		l.parents[categorySlug] = parent
	} else {
		delete(l.parents, categorySlug)
	}
}

// Title returns the display title registered for categorySlug.
func (l *Lookup) Title(categorySlug string) (string, bool) {
	if l == nil {
		return "", false
	}
	t, ok := l.titles[categorySlug]
	return t, ok && t != ""
}

// Parent returns the parent registered for categorySlug.
func (l *Lookup) Parent(categorySlug string) (string, bool) {
	if l == nil {
		return "", false
	}
	p, ok := l.parents[categorySlug]
	return p, ok
}

// Ancestors walks the parent chain from categorySlug upwards, nearest first.
// Cycles in the data end the walk.
func (l *Lookup) Ancestors(categorySlug string) []string {
	var out []string
	seen := map[string]struct{}{categorySlug: {}}
	cur := categorySlug
	for {
		p, ok := l.Parent(cur)
		if !ok {
			return out
		}
		if _, dup := seen[p]; dup {
			return out
		}
		seen[p] = struct{}{}
		out = append(out, p)
		cur = p
	}
}

// Slugs returns every registered slug, sorted.
func (l *Lookup) Slugs() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.titles))
	for s := range l.titles {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
