// Package post defines the feed's post record and the helpers that classify
// and order posts fetched from static JSON.
package post

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/eringen/magzfeed/slug"
)

// Post is one feed entry as published in the JSON data files.
type Post struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Date         string `json:"date,omitempty"`
	Excerpt      string `json:"excerpt,omitempty"`
	Cover        string `json:"cover,omitempty"`
	Category     string `json:"category,omitempty"`
	CategorySlug string `json:"category_slug,omitempty"`
	Subcategory  string `json:"subcategory,omitempty"`
	Author       string `json:"author,omitempty"`
	Source       string `json:"source,omitempty"`
	Body         string `json:"body,omitempty"`
	ArchivedAt   string `json:"archived_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	PublishedAt  string `json:"published_at,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// UnmarshalJSON accepts "sub" as an alias for "subcategory".
func (p *Post) UnmarshalJSON(b []byte) error {
	type plain Post
	var aux struct {
		plain
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Post(aux.plain)
	if p.Subcategory == "" {
		p.Subcategory = aux.Sub
	}
	return nil
}

// DecodeList decodes a JSON array of posts, or an object wrapping one under
// "posts" or "items". Elements that are not post objects are skipped, and a
// post without a slug gets one derived from its title.
func DecodeList(raw json.RawMessage) []Post {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		var wrapped struct {
			Posts []json.RawMessage `json:"posts"`
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		elems = wrapped.Posts
		if len(elems) == 0 {
			elems = wrapped.Items
		}
	}
	posts := make([]Post, 0, len(elems))
	for _, e := range elems {
		var p Post
		if err := json.Unmarshal(e, &p); err != nil {
			continue
		}
		if p.Slug == "" {
			p.Slug = slug.Slugify(p.Title)
		}
		if p.Slug == "" {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

// CategorySlugs returns every normalized slug the post can be filed under:
// its explicit category slug, its category, its subcategory, and the
// category-subcategory pair.
func (p Post) CategorySlugs() []string {
	cat := slug.Slugify(p.Category)
	sub := slug.Slugify(p.Subcategory)
	candidates := []string{slug.Slugify(p.CategorySlug), cat, sub}
	if cat != "" && sub != "" {
		candidates = append(candidates, cat+"-"+sub)
	}
	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// MatchesCategory reports whether the post is filed under categorySlug.
func (p Post) MatchesCategory(categorySlug string) bool {
	for _, s := range p.CategorySlugs() {
		if s == categorySlug {
			return true
		}
	}
	return false
}

// FilterCategory keeps posts filed under categorySlug. Posts that carry no
// category information at all are kept, since they cannot be ruled out.
func FilterCategory(posts []Post, categorySlug string) []Post {
	if categorySlug == "" {
		return posts
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if len(p.CategorySlugs()) == 0 || p.MatchesCategory(categorySlug) {
			out = append(out, p)
		}
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Timestamp returns the first parseable of date, updated_at, published_at
// and created_at, or the zero time.
func (p Post) Timestamp() time.Time {
	for _, v := range []string{p.Date, p.UpdatedAt, p.PublishedAt, p.CreatedAt} {
		if t, ok := parseTime(v); ok {
			return t
		}
	}
	return time.Time{}
}

func parseTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOnly returns the calendar part of Date ("2024-02-03T10:00:00Z" -> "2024-02-03").
func (p Post) DateOnly() string {
	d, _, _ := strings.Cut(p.Date, "T")
	return d
}

// SortNewest orders posts newest first, keeping the input order for ties.
func SortNewest(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp().After(posts[j].Timestamp())
	})
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
