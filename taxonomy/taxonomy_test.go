package taxonomy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/magzfeed/fetch"
)

const doc = `{
  "categories": [
    {"slug": "news", "title": "News", "subs": [{"slug": "politics", "title": "Politics"}]},
    {"slug": "news/world", "title": "World", "parent": "news"},
    {"slug": "travel", "title": "Travel", "group": "Lifestyle"},
    {"slug": "lifestyle", "title": "Lifestyle"},
    {"title": "Food & Drink"},
    {"slug": "", "title": ""}
  ]
}`

func TestParse(t *testing.T) {
	l, err := Parse(json.RawMessage(doc))
	require.NoError(t, err)

	title, ok := l.Title("news-politics")
	assert.True(t, ok)
	assert.Equal(t, "Politics", title)

	parent, ok := l.Parent("news-politics")
	assert.True(t, ok)
	assert.Equal(t, "news", parent)

	parent, ok = l.Parent("politics")
	assert.True(t, ok)
	assert.Equal(t, "news", parent)

	parent, ok = l.Parent("news-world")
	assert.True(t, ok)
	assert.Equal(t, "news", parent)

	parent, _ = l.Parent("travel")
	assert.Equal(t, "lifestyle", parent)

	_, ok = l.Title("food-and-drink")
	assert.True(t, ok)

	_, ok = l.Parent("news")
	assert.False(t, ok)

	assert.Equal(t, []string{"food-and-drink", "lifestyle", "news", "news-politics", "news-world", "politics", "travel"}, l.Slugs())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse(json.RawMessage(`[1,2`))
	assert.Error(t, err)
}

func TestAncestorsStopsOnCycle(t *testing.T) {
	l := New()
	l.Register("a", "A", "b")
	l.Register("b", "B", "c")
	l.Register("c", "C", "a")
	assert.Equal(t, []string{"b", "c"}, l.Ancestors("a"))

	l.Register("self", "Self", "self")
	assert.Empty(t, l.Ancestors("self"))
}

func TestNilLookup(t *testing.T) {
	var l *Lookup
	_, ok := l.Title("x")
	assert.False(t, ok)
	assert.Empty(t, l.Ancestors("x"))
	assert.Nil(t, l.Slugs())
}

type stubFetcher struct {
	raw  json.RawMessage
	err  error
	urls []string
}

func (s *stubFetcher) FetchSequential(_ context.Context, urls []string) (json.RawMessage, error) {
	s.urls = urls
	return s.raw, s.err
}

func TestLoad(t *testing.T) {
	f := &stubFetcher{raw: json.RawMessage(doc)}
	l, err := Load(context.Background(), f, fetch.BasePath{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/taxonomy.json", "/data/toxanomi.json"}, f.urls)
	_, ok := l.Title("news")
	assert.True(t, ok)

	failing := &stubFetcher{err: errors.New("offline")}
	l, err = Load(context.Background(), failing, fetch.BasePath{})
	assert.Error(t, err)
	require.NotNil(t, l)
	assert.Empty(t, l.Slugs())
}
