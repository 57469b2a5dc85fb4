package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/magzfeed/partition"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/taxonomy"
)

type recorder struct {
	resets   int
	posts    []post.Post
	progress []string
	loading  []bool
	titles   []string
	finished bool
	empty    bool
	message  string
}

func (r *recorder) Reset()                      { r.resets++; r.posts = nil }
func (r *recorder) AppendPosts(p []post.Post)   { r.posts = append(r.posts, p...) }
func (r *recorder) SetProgress(label string)    { r.progress = append(r.progress, label) }
func (r *recorder) SetLoading(loading bool)     { r.loading = append(r.loading, loading) }
func (r *recorder) SetTitle(title string)       { r.titles = append(r.titles, title) }
func (r *recorder) Finish(empty bool, m string) { r.finished, r.empty, r.message = true, empty, m }

func (r *recorder) lastProgress() string {
	if len(r.progress) == 0 {
		return ""
	}
	return r.progress[len(r.progress)-1]
}

func mkPosts(category string, slugs ...string) []post.Post {
	out := make([]post.Post, len(slugs))
	for i, s := range slugs {
		out[i] = post.Post{Slug: s, Title: s, Category: category}
	}
	return out
}

func chunk(key string, count int, items []post.Post) partition.ChunkLoader {
	return partition.NewChunkLoader(key, count, func(context.Context) ([]post.Post, error) {
		return items, nil
	})
}

func newLoader(t *testing.T, total int, chunks ...partition.ChunkLoader) *partition.Partitioned {
	t.Helper()
	p, err := partition.New(chunks, partition.WithTotal(total))
	require.NoError(t, err)
	return p
}

func TestExhaustionProgress(t *testing.T) {
	r := &recorder{}
	c := New(Config{
		ID:           "s1",
		CategorySlug: "news",
		Renderer:     r,
		Loader: newLoader(t, 8,
			chunk("m1", 5, mkPosts("News", "a", "b", "c", "d", "e")),
			chunk("m2", 3, mkPosts("News", "f", "g", "h")),
		),
	})
	c.Start()
	assert.Equal(t, 1, r.resets)

	res, err := c.RequestMore(context.Background(), TriggerClick)
	require.NoError(t, err)
	assert.Equal(t, Result{Appended: 5}, res)
	assert.Equal(t, "Showing 5 of 8 results.", r.lastProgress())
	assert.True(t, c.HasMore())

	res, err = c.RequestMore(context.Background(), TriggerIntersect)
	require.NoError(t, err)
	assert.Equal(t, Result{Appended: 3, Done: true}, res)
	assert.Equal(t, "Showing 8 of 8 results.", r.lastProgress())
	assert.False(t, c.HasMore())
	assert.Len(t, r.posts, 8)

	assert.True(t, r.finished)
	assert.False(t, r.empty)
	assert.Equal(t, AllLoadedMessage, r.message)

	res, err = c.RequestMore(context.Background(), TriggerClick)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestUnknownTotalProgress(t *testing.T) {
	r := &recorder{}
	c := New(Config{
		CategorySlug: "news",
		Renderer:     r,
		Loader: newLoader(t, 0,
			chunk("m1", 0, mkPosts("News", "a", "b")),
			chunk("m2", 0, mkPosts("News", "c")),
		),
	})
	c.Start()
	_, err := c.RequestMore(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "Showing 2 results.", r.lastProgress())
}

func TestEmptyFeed(t *testing.T) {
	r := &recorder{}
	c := New(Config{
		CategorySlug: "news",
		Renderer:     r,
		Loader:       partition.NewArrayLoader(nil, 12),
	})
	c.Start()

	res, err := c.RequestMore(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.True(t, r.finished)
	assert.True(t, r.empty)
	assert.Equal(t, EmptyMessage, r.message)
	assert.Equal(t, "Showing 0 results.", r.lastProgress())
}

func TestFilteredEmptyBatchRequestsAgain(t *testing.T) {
	r := &recorder{}
	c := New(Config{
		CategorySlug: "news-politics",
		FilterSlug:   "news-politics",
		Renderer:     r,
		Loader: newLoader(t, 0,
			chunk("m1", 0, mkPosts("Sports", "s1", "s2")),
			chunk("m2", 0, []post.Post{{Slug: "p1", Title: "P1", Category: "News", Subcategory: "Politics"}}),
			chunk("m3", 0, mkPosts("News", "n1")),
		),
	})
	c.Start()

	res, err := c.RequestMore(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.False(t, res.Done)
	require.Len(t, r.posts, 1)
	assert.Equal(t, "p1", r.posts[0].Slug)
	assert.Equal(t, "Showing 1 results.", r.lastProgress())
}

func TestEmptyBatchLimit(t *testing.T) {
	var chunks []partition.ChunkLoader
	for i := range MaxEmptyBatches + 2 {
		chunks = append(chunks, chunk(string(rune('a'+i)), 0, mkPosts("Sports", "x")))
	}
	r := &recorder{}
	c := New(Config{
		CategorySlug: "news",
		FilterSlug:   "news",
		Renderer:     r,
		Loader:       newLoader(t, 0, chunks...),
	})
	c.Start()

	res, err := c.RequestMore(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.False(t, r.finished)

	res, err = c.RequestMore(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.True(t, r.empty)
}

func TestLoadErrorKeepsFeedOpen(t *testing.T) {
	r := &recorder{}
	c := New(Config{
		CategorySlug: "news",
		Renderer:     r,
		Loader: newLoader(t, 0, partition.NewChunkLoader("m1", 0, func(ctx context.Context) ([]post.Post, error) {
			return nil, ctx.Err()
		})),
	})
	c.Start()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.RequestMore(ctx, TriggerClick)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Finished())
	assert.Equal(t, []bool{true, false}, r.loading)
}

func TestLabelUpgrade(t *testing.T) {
	r := &recorder{}
	c := New(Config{
		CategorySlug: "news-politics",
		Renderer:     r,
		Loader: newLoader(t, 0,
			chunk("m1", 0, []post.Post{
				{Slug: "a", Title: "A", Category: "News"},
				{Slug: "b", Title: "B", Category: "News", Subcategory: "Politics"},
			}),
			chunk("m2", 0, []post.Post{{Slug: "c", Title: "C", CategorySlug: "news-politics"}}),
		),
	})
	c.Start()
	assert.Equal(t, "News Politics", c.Label())

	_, err := c.RequestMore(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "Politics", c.Label())

	_, err = c.RequestMore(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "Politics", c.Label())
	assert.Equal(t, []string{"News Politics", "Politics"}, r.titles)
}

func TestLabelLocked(t *testing.T) {
	tax := taxonomy.New()
	tax.Register("news", "Latest News", "")
	items := []post.Post{{Slug: "a", Title: "A", Category: "News"}}

	tests := []struct {
		name   string
		label  string
		titles *taxonomy.Lookup
		want   string
	}{
		{name: "taxonomy title", titles: tax, want: "Latest News"},
		{name: "operator label", label: "Breaking Stories", want: "Breaking Stories"},
		{name: "trivial label upgrades", label: "news", want: "News"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{
				CategorySlug: "news",
				Label:        tt.label,
				Titles:       tt.titles,
				Renderer:     &recorder{},
				Loader:       newLoader(t, 0, chunk("m1", 0, items)),
			})
			c.Start()
			_, err := c.RequestMore(context.Background(), TriggerManual)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Label())
			assert.True(t, c.State().LabelLocked)
		})
	}
}

func TestManualScheduler(t *testing.T) {
	sched := &ManualScheduler{}
	r := &recorder{}
	c := New(Config{
		CategorySlug: "news",
		Renderer:     r,
		Schedulers:   []Scheduler{sched},
		Loader:       newLoader(t, 0, chunk("m1", 0, mkPosts("News", "a"))),
	})

	assert.ErrorIs(t, sched.Fire(context.Background(), TriggerClick), ErrDetached)

	c.Start()
	require.NoError(t, sched.Fire(context.Background(), TriggerIntersect))
	assert.True(t, c.Finished())

	err := sched.Fire(context.Background(), TriggerClick)
	assert.True(t, errors.Is(err, ErrDetached))
}

func TestParseTrigger(t *testing.T) {
	assert.Equal(t, TriggerClick, ParseTrigger(" Click "))
	assert.Equal(t, TriggerIntersect, ParseTrigger("intersect"))
	assert.Equal(t, TriggerManual, ParseTrigger("whatever"))
	assert.Equal(t, "intersect", TriggerIntersect.String())
}

func TestStateRestore(t *testing.T) {
	build := func() (*Controller, *recorder) {
		r := &recorder{}
		return New(Config{
			ID:           "sess",
			CategorySlug: "news",
			Renderer:     r,
			Now:          func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) },
			Loader: newLoader(t, 0,
				chunk("m1", 0, mkPosts("News", "a")),
				chunk("m2", 0, mkPosts("News", "b")),
				chunk("m3", 0, mkPosts("News", "c")),
			),
		}), r
	}

	first, _ := build()
	first.Start()
	for range 2 {
		_, err := first.RequestMore(context.Background(), TriggerClick)
		require.NoError(t, err)
	}
	state := first.State()
	assert.Equal(t, SessionState{
		ID:           "sess",
		CategorySlug: "news",
		Label:        "News",
		LabelLocked:  true,
		Cursor:       2,
		Rendered:     2,
		UpdatedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}, state)

	second, r := build()
	second.Restore(state)
	res, err := second.RequestMore(context.Background(), TriggerClick)
	require.NoError(t, err)
	assert.True(t, res.Done)
	require.Len(t, r.posts, 1)
	assert.Equal(t, "c", r.posts[0].Slug)
	assert.Equal(t, "Showing 3 results.", r.lastProgress())

	third, r := build()
	state.Finished = true
	third.Restore(state)
	res, err = third.RequestMore(context.Background(), TriggerClick)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, r.posts)
}
