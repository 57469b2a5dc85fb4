// Package manifest decodes the partitioned-posts manifest into a typed form
// and resolves which category entry a page should read from.
//
// The manifest is produced by several generations of the site build and uses
// many shapes for the same thing. All of them are decoded once, here, into
// Entry and the ChunkDescriptor tagged union; nothing downstream re-inspects
// raw JSON.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/slug"
)

// Sources lists the manifest document locations.
var Sources = []string{"/data/posts/manifest.json"}

const maxAliasDepth = 4

// ErrMalformed is returned by Parse for documents without a categories table.
var ErrMalformed = errors.New("manifest: malformed document")

// Manifest is a decoded manifest document.
type Manifest struct {
	entries map[string]Entry
	aliases map[string]string
}

// Load fetches and decodes the manifest. A missing or malformed manifest is
// reported as an error; callers fall back to the legacy posts file.
func Load(ctx context.Context, f fetch.Fetcher, base fetch.BasePath) (*Manifest, error) {
	raw, err := f.FetchSequential(ctx, base.Candidates(Sources...))
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a manifest document of the form {"categories": {...}}. The
// categories table may also be an array of objects carrying a "slug".
func Parse(raw json.RawMessage) (*Manifest, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cats, ok := top["categories"]
	if !ok {
		return nil, ErrMalformed
	}

	m := &Manifest{
		entries: make(map[string]Entry),
		aliases: make(map[string]string),
	}
	var table map[string]json.RawMessage
	if err := json.Unmarshal(cats, &table); err != nil {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(cats, &list); err != nil {
			return nil, fmt.Errorf("%w: categories: %v", ErrMalformed, err)
		}
		table = make(map[string]json.RawMessage, len(list))
		for _, obj := range list {
			key, _ := asString(obj["slug"])
			b, err := json.Marshal(obj)
			if key == "" || err != nil {
				continue
			}
			table[key] = b
		}
	}

	for rawKey, v := range table {
		key := slug.Slugify(rawKey)
		if key == "" {
			continue
		}
		e, alias := decodeEntry(key, v)
		if alias != "" && alias != key {
			m.aliases[key] = alias
		}
		if e.HasData() {
			m.entries[key] = e
		}
	}
	return m, nil
}

// Entry returns the entry for categorySlug, following aliases. The returned
// entry's Slug names the key actually used.
func (m *Manifest) Entry(categorySlug string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	key := slug.Slugify(categorySlug)
	for i := 0; i <= maxAliasDepth && key != ""; i++ {
		if e, ok := m.entries[key]; ok {
			return e, true
		}
		next, ok := m.aliases[key]
		if !ok {
			break
		}
		key = next
	}
	return Entry{}, false
}

// Len returns the number of categories with data.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Ancestry yields the parent chain of a category, nearest first.
type Ancestry interface {
	Ancestors(categorySlug string) []string
}

// ResolveCategorySlug returns the manifest key a page for categorySlug should
// read: the category's own entry, else the nearest ancestor that has one, else
// the first of fallbacks that has one. It returns "" when none exists and the
// caller must use the legacy file.
func ResolveCategorySlug(m *Manifest, categorySlug string, tax Ancestry, fallbacks ...string) string {
	s := slug.Slugify(categorySlug)
	if s == "" {
		return ""
	}
	candidates := []string{s}
	if tax != nil {
		candidates = append(candidates, tax.Ancestors(s)...)
	}
	candidates = append(candidates, fallbacks...)
	for _, c := range candidates {
		if e, ok := m.Entry(slug.Slugify(c)); ok {
			return e.Slug
		}
	}
	return ""
}

var (
	chunkListKeys  = []string{"chunks", "partitions", "files"}
	monthListKeys  = []string{"months", "archives"}
	itemKeys       = []string{"items", "posts"}
	singleURLKeys  = []string{"file", "url", "path", "src", "href"}
	urlListKeys    = []string{"files", "urls", "sources", "candidates"}
	templateKeys   = []string{"template", "pattern"}
	aliasKeys      = []string{"alias", "alias_of", "aliasOf", "same_as"}
	entryCountKeys = []string{"count", "total", "total_entries"}
	chunkCountKeys = []string{"count", "total", "length"}
	monthKeyKeys   = []string{"key", "month", "id", "value"}
)

func decodeEntry(key string, raw json.RawMessage) (Entry, string) {
	e := Entry{Slug: key, MonthCounts: make(map[string]int)}
	var alias string

	switch firstByte(raw) {
	case '"':
		s, _ := asString(raw)
		switch {
		case slug.SanitizeMonthKey(s) == strings.TrimSpace(s) && s != "":
			addMonth(&e, s, 0)
		case looksLikePath(s):
			e.Chunks = append(e.Chunks, SourcesChunk([]string{s}, 0))
		default:
			alias = slug.Slugify(s)
		}
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err == nil {
			decodeList(&e, elems, true)
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			break
		}
		if v, ok := first(obj, aliasKeys...); ok {
			if s, ok := asString(v); ok {
				alias = slug.Slugify(s)
			}
		}
		if v, ok := first(obj, templateKeys...); ok {
			e.Template, _ = asString(v)
		}
		if v, ok := first(obj, monthListKeys...); ok {
			decodeMonths(&e, v)
		}
		if v, ok := first(obj, "month", "key"); ok {
			if s, ok := asString(v); ok {
				addMonth(&e, s, 0)
			}
		}
		if v, ok := first(obj, chunkListKeys...); ok {
			if s, ok := asString(v); ok && s != "" {
				e.Chunks = append(e.Chunks, SourcesChunk([]string{s}, 0))
			} else if elems, ok := asArray(v); ok {
				decodeList(&e, elems, false)
			}
		}
		if v, ok := first(obj, singleURLKeys...); ok {
			if urls := asStrings(v); len(urls) > 0 {
				e.Chunks = append(e.Chunks, SourcesChunk(urls, 0))
			}
		}
		var inline int
		if v, ok := first(obj, itemKeys...); ok {
			if items := post.DecodeList(v); len(items) > 0 {
				e.Chunks = append(e.Chunks, InlineChunk(items))
				inline = len(items)
			}
		}
		e.Count = firstPositive(countOf(obj, entryCountKeys...), inline)
	}

	sortMonths(&e)
	return e, alias
}

// decodeList decodes an array of chunk shapes. With bareMonths, month
// strings become entry months rather than ordered month chunks.
func decodeList(e *Entry, elems []json.RawMessage, bareMonths bool) {
	var pending []post.Post
	flush := func() {
		if len(pending) > 0 {
			e.Chunks = append(e.Chunks, InlineChunk(pending))
			pending = nil
		}
	}
	for _, el := range elems {
		switch firstByte(el) {
		case '"':
			flush()
			s, _ := asString(el)
			if m := slug.SanitizeMonthKey(s); m != "" && m == strings.TrimSpace(s) {
				if bareMonths {
					addMonth(e, m, 0)
				} else {
					e.Chunks = append(e.Chunks, MonthChunk(m, 0))
				}
			} else if looksLikePath(s) {
				e.Chunks = append(e.Chunks, SourcesChunk([]string{s}, 0))
			}
		case '[':
			flush()
			if items := post.DecodeList(el); len(items) > 0 {
				e.Chunks = append(e.Chunks, InlineChunk(items))
			}
		case '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(el, &obj); err != nil {
				continue
			}
			if isPostObject(obj) {
				if items := post.DecodeList(json.RawMessage("[" + string(el) + "]")); len(items) > 0 {
					pending = append(pending, items...)
				}
				continue
			}
			flush()
			if c, ok := decodeChunk(e, obj); ok {
				e.Chunks = append(e.Chunks, c)
			}
		}
	}
	flush()
}

func decodeChunk(e *Entry, obj map[string]json.RawMessage) (ChunkDescriptor, bool) {
	count := countOf(obj, chunkCountKeys...)
	template := e.Template
	if v, ok := first(obj, templateKeys...); ok {
		if s, ok := asString(v); ok && s != "" {
			template = s
		}
	}
	if v, ok := first(obj, itemKeys...); ok {
		items := post.DecodeList(v)
		if len(items) == 0 {
			return ChunkDescriptor{}, false
		}
		c := InlineChunk(items)
		c.Count = firstPositive(count, len(items))
		return c, true
	}
	if v, ok := first(obj, urlListKeys...); ok {
		if urls := asStrings(v); len(urls) > 0 {
			return SourcesChunk(urls, count), true
		}
	}
	if v, ok := first(obj, singleURLKeys...); ok {
		if urls := asStrings(v); len(urls) > 0 {
			return SourcesChunk(urls, count), true
		}
	}
	if v, ok := first(obj, monthKeyKeys...); ok {
		s, _ := asString(v)
		if m := slug.SanitizeMonthKey(s); m != "" {
			if template != "" {
				return templateChunk(template, e.Slug, m, count), true
			}
			return MonthChunk(m, count), true
		}
	}
	return ChunkDescriptor{}, false
}

func decodeMonths(e *Entry, raw json.RawMessage) {
	if s, ok := asString(raw); ok {
		addMonth(e, s, 0)
		return
	}
	elems, ok := asArray(raw)
	if !ok {
		return
	}
	for _, el := range elems {
		if s, ok := asString(el); ok {
			addMonth(e, s, 0)
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(el, &obj); err != nil {
			continue
		}
		v, _ := first(obj, monthKeyKeys...)
		s, _ := asString(v)
		addMonth(e, s, countOf(obj, "count", "total_entries", "total", "length"))
	}
}

func addMonth(e *Entry, value string, count int) {
	m := slug.SanitizeMonthKey(value)
	if m == "" {
		return
	}
	if _, dup := e.MonthCounts[m]; !dup {
		e.Months = append(e.Months, m)
	}
	if count > 0 || e.MonthCounts[m] == 0 {
		e.MonthCounts[m] = count
	}
}

func sortMonths(e *Entry) {
	sort.Sort(sort.Reverse(sort.StringSlice(e.Months)))
}

func isPostObject(obj map[string]json.RawMessage) bool {
	_, hasTitle := obj["title"]
	_, hasSlug := obj["slug"]
	if !hasTitle && !hasSlug {
		return false
	}
	for _, group := range [][]string{itemKeys, urlListKeys, singleURLKeys, templateKeys, {"month", "key"}} {
		if _, ok := first(obj, group...); ok {
			return false
		}
	}
	return true
}

func looksLikePath(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, "/") || strings.HasSuffix(strings.ToLower(s), ".json")
}

func first(obj map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && len(v) > 0 && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

func firstByte(raw json.RawMessage) byte {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func asString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

// asStrings accepts a string or an array of strings.
func asStrings(raw json.RawMessage) []string {
	if s, ok := asString(raw); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	elems, ok := asArray(raw)
	if !ok {
		return nil
	}
	var out []string
	for _, el := range elems {
		if s, ok := asString(el); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// countOf returns the first positive integer among keys; numeric strings count.
func countOf(obj map[string]json.RawMessage, keys ...string) int {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil && f > 0 {
			return int(f)
		}
		if s, ok := asString(v); ok {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
