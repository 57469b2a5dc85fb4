package archive

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/post"
)

type stubFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	gates map[string]chan struct{}
	calls map[string]int
}

func newStub(docs map[string]string) *stubFetcher {
	return &stubFetcher{docs: docs, gates: map[string]chan struct{}{}, calls: map[string]int{}}
}

func (s *stubFetcher) FetchSequential(ctx context.Context, urls []string) (json.RawMessage, error) {
	for _, u := range urls {
		s.mu.Lock()
		s.calls[u]++
		gate := s.gates[u]
		doc, ok := s.docs[u]
		s.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if ok {
			return json.RawMessage(doc), nil
		}
	}
	return nil, fetch.ErrNoResource
}

type recorder struct {
	mu      sync.Mutex
	status  string
	isError bool
	heading string
	summary string
	months  []Month
	active  string
	posts   []post.Post
	empty   string
	renders int
}

func (r *recorder) SetStatus(m string, e bool) { r.mu.Lock(); r.status, r.isError = m, e; r.mu.Unlock() }
func (r *recorder) SetHeading(t string)        { r.mu.Lock(); r.heading = t; r.mu.Unlock() }
func (r *recorder) SetSummary(t string)        { r.mu.Lock(); r.summary = t; r.mu.Unlock() }
func (r *recorder) RenderMonths(m []Month, active string) {
	r.mu.Lock()
	r.months, r.active = m, active
	r.mu.Unlock()
}
func (r *recorder) RenderPosts(p []post.Post, empty string) {
	r.mu.Lock()
	r.posts, r.empty = p, empty
	r.renders++
	r.mu.Unlock()
}

const indexDoc = `{
  "generated_at": "2024-04-01T00:00:00Z",
  "total_entries": 1234,
  "months": [
    "2024-01",
    {"key": "2024-03", "count": 2},
    {"month": "2024-02", "total_entries": "5"},
    {"value": "2024-13"},
    "2024-01",
    "garbage"
  ]
}`

func TestParseIndex(t *testing.T) {
	idx, err := ParseIndex(json.RawMessage(indexDoc))
	require.NoError(t, err)
	assert.Equal(t, []Month{{Key: "2024-03", Count: 2}, {Key: "2024-02", Count: 5}, {Key: "2024-01"}}, idx.Months)
	assert.Equal(t, 1234, idx.TotalEntries)
	assert.Equal(t, "2024-04-01T00:00:00Z", idx.GeneratedAt)
	assert.True(t, idx.Has("2024-02"))
	assert.False(t, idx.Has("2023-12"))
	assert.Equal(t, "March 2024", idx.Months[0].Label())

	_, err = ParseIndex(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestTexts(t *testing.T) {
	assert.Equal(t, "Archive — February 2024", Heading("2024-02"))
	assert.Equal(t, "Archive", Heading(""))
	assert.Equal(t, "Browse 1,234 archived stories from previous months.", Summary(&Index{TotalEntries: 1234}))
	assert.Equal(t, DefaultSummary, Summary(nil))
	assert.Equal(t, "No archived posts for this month yet.", EmptyText(""))
	assert.Equal(t, "No archived posts for May 2023 yet.", EmptyText("2023-05"))
	assert.Equal(t, "Loading May 2023…", LoadingText("2023-05"))
}

func TestInitialMonth(t *testing.T) {
	idx, err := ParseIndex(json.RawMessage(indexDoc))
	require.NoError(t, err)

	assert.Equal(t, "2024-02", InitialMonth(idx, "2024-02"))
	assert.Equal(t, "2024-01", InitialMonth(idx, "", "2024-01x"))
	assert.Equal(t, "2024-03", InitialMonth(idx, "1999-01"))
	assert.Equal(t, "", InitialMonth(nil, "2024-01"))
}

func TestInitUnavailable(t *testing.T) {
	r := &recorder{}
	v := NewView(NewCache(newStub(nil), fetch.BasePath{}, nil), r, nil)
	require.NoError(t, v.Init(context.Background(), nil, "2024-01"))

	assert.Equal(t, StatusUnavailable, r.status)
	assert.True(t, r.isError)
	assert.Equal(t, DefaultSummary, r.summary)
	assert.Empty(t, r.months)
	assert.Equal(t, "No archived posts for this month yet.", r.empty)
}

func TestInitSelectsPreferredMonth(t *testing.T) {
	f := newStub(map[string]string{
		"/data/archive/2024-02.json": `[{"slug":"a","title":"A"}]`,
	})
	idx, err := ParseIndex(json.RawMessage(indexDoc))
	require.NoError(t, err)

	r := &recorder{}
	v := NewView(NewCache(f, fetch.BasePath{}, nil), r, nil)
	require.NoError(t, v.Init(context.Background(), idx, "2024-02"))

	assert.Equal(t, "2024-02", v.Active())
	assert.Equal(t, "2024-02", r.active)
	assert.Equal(t, "Archive — February 2024", r.heading)
	assert.Equal(t, "", r.status)
	require.Len(t, r.posts, 1)
	assert.Equal(t, "Browse 1,234 archived stories from previous months.", r.summary)
}

func TestSelectMonthUnavailableShowsEmpty(t *testing.T) {
	r := &recorder{}
	v := NewView(NewCache(newStub(nil), fetch.BasePath{}, nil), r, nil)

	require.NoError(t, v.SelectMonth(context.Background(), "2024-01"))
	assert.Equal(t, "", r.status)
	assert.False(t, r.isError)
	assert.Empty(t, r.posts)
	assert.Equal(t, "No archived posts for January 2024 yet.", r.empty)

	assert.ErrorIs(t, v.SelectMonth(context.Background(), "nope"), ErrInvalidMonth)
}

func TestSelectMonthCanceled(t *testing.T) {
	f := newStub(map[string]string{"/data/archive/2024-01.json": `[]`})
	gate := make(chan struct{})
	defer close(gate)
	f.gates["/data/archive/2024-01.json"] = gate

	r := &recorder{}
	v := NewView(NewCache(f, fetch.BasePath{}, nil), r, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := v.SelectMonth(ctx, "2024-01")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusMonthFailed, r.status)
	assert.True(t, r.isError)
}

func TestSelectMonthStale(t *testing.T) {
	f := newStub(map[string]string{
		"/data/archive/2024-01.json": `[{"slug":"old","title":"Old"}]`,
		"/data/archive/2024-02.json": `[{"slug":"new","title":"New"}]`,
	})
	gate := make(chan struct{})
	f.gates["/data/archive/2024-01.json"] = gate

	r := &recorder{}
	v := NewView(NewCache(f, fetch.BasePath{}, nil), r, nil)

	slow := make(chan error, 1)
	go func() { slow <- v.SelectMonth(context.Background(), "2024-01") }()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.calls["/data/archive/2024-01.json"] == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, v.SelectMonth(context.Background(), "2024-02"))
	close(gate)
	assert.ErrorIs(t, <-slow, ErrStale)

	require.Len(t, r.posts, 1)
	assert.Equal(t, "new", r.posts[0].Slug)
	assert.Equal(t, 1, r.renders)
	assert.Equal(t, "2024-02", v.Active())
}

func TestCacheKeepsMonths(t *testing.T) {
	f := newStub(map[string]string{
		"/magz/data/archive/2024-01.json": `{"posts":[{"slug":"a","title":"A"}]}`,
	})
	c := NewCache(f, fetch.NewBasePath("magz"), nil)

	for range 3 {
		items, err := c.Month(context.Background(), "2024-01")
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
	assert.Equal(t, 1, f.calls["/magz/data/archive/2024-01.json"])

	items, err := c.Month(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestCacheKeepsUnavailableMonthEmpty(t *testing.T) {
	f := newStub(map[string]string{})
	c := NewCache(f, fetch.BasePath{}, nil)

	for range 2 {
		items, err := c.Month(context.Background(), "2024-03")
		require.NoError(t, err)
		assert.Empty(t, items)
	}
	assert.Equal(t, 1, f.calls["/data/archive/2024-03.json"])

	f.mu.Lock()
	f.docs["/data/archive/2024-03.json"] = `[{"slug":"late","title":"Late"}]`
	f.mu.Unlock()
	assert.Equal(t, 1, c.Purge())

	items, err := c.Month(context.Background(), "2024-03")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "late", items[0].Slug)
}
