package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/post"
)

var testSite = SiteConfig{Name: "Magz", URL: "https://magz.example", Base: fetch.NewBasePath("/magz")}

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func labels(items []PageItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestPages(t *testing.T) {
	assert.Nil(t, Pages(12, 12, 1, "/category/?cat=news"))
	assert.Nil(t, Pages(0, 12, 1, ""))

	items := Pages(30, 12, 2, "/category/?cat=news&page=9")
	assert.Equal(t, []string{"Previous", "1", "2", "3", "Next"}, labels(items))
	assert.True(t, items[2].Active)
	assert.Equal(t, "/category/?cat=news&page=1", items[0].URL)
	assert.Equal(t, "/category/?cat=news&page=3", items[4].URL)

	items = Pages(20*12, 12, 10, "/category/?cat=news")
	assert.Equal(t, []string{"Previous", "1", "…", "9", "10", "11", "…", "20", "Next"}, labels(items))

	items = Pages(20*12, 12, 1, "?")
	assert.Equal(t, []string{"Previous", "1", "2", "…", "20", "Next"}, labels(items))
	assert.True(t, items[0].Disabled)

	items = Pages(13*12, 12, 13, "")
	assert.Len(t, items, 15)
	assert.True(t, items[len(items)-1].Disabled)
}

func TestCardEscapesAndLinks(t *testing.T) {
	p := post.Post{
		Slug:     "a b",
		Title:    `<b>Hello</b> & "friends"`,
		Category: "Food & Drink",
		Date:     "2024-02-03T10:00:00Z",
		Excerpt:  "<p>Short <em>story</em></p>",
	}
	doc := render(t, Card(testSite, p))

	assert.Equal(t, `Hello & "friends"`, doc.Find("h1 a").Text())
	href, _ := doc.Find("h1 a").Attr("href")
	assert.Equal(t, "/magz/article.html?slug=a+b", href)
	cat, _ := doc.Find(".category a").Attr("href")
	assert.Equal(t, "/magz/category/?cat=food-and-drink", cat)
	assert.Equal(t, "February 3, 2024", doc.Find("time").Text())
	assert.Equal(t, "Short story", doc.Find(".details > p").Text())
	src, _ := doc.Find("img").Attr("src")
	assert.Equal(t, "/magz/images/logo.png", src)
}

func TestCategoryBodyStates(t *testing.T) {
	open := render(t, CategoryBody(testSite, CategoryPage{
		Title:      "News",
		MoreURL:    "/magz/category/more/?sid=x",
		Posts:      []post.Post{{Slug: "a", Title: "A"}, {Slug: "untitled"}},
		Progress:   "Showing 1 of 5 results.",
		Pagination: Pages(5, 1, 1, "?cat=news"),
	}))
	assert.Equal(t, 1, open.Find("article").Length())
	assert.Equal(t, 1, open.Find("[data-feed-sentinel]").Length())
	more, _ := open.Find("[data-feed-more]").Attr("data-more-url")
	assert.Equal(t, "/magz/category/more/?sid=x", more)
	assert.Equal(t, "Showing 1 of 5 results.", open.Find("[data-feed-progress]").Text())

	done := render(t, CategoryBody(testSite, CategoryPage{
		Posts:    []post.Post{{Slug: "a", Title: "A"}},
		Finished: true,
		Message:  "All posts loaded",
	}))
	assert.Equal(t, 0, done.Find("[data-feed-sentinel]").Length())
	btn := done.Find("[data-feed-more]")
	_, disabled := btn.Attr("disabled")
	assert.True(t, disabled)
	assert.Equal(t, "All posts loaded", btn.Text())

	empty := render(t, CategoryBody(testSite, CategoryPage{
		Finished: true,
		Empty:    true,
		Message:  "No posts found for this category yet.",
	}))
	assert.Equal(t, 0, empty.Find("[data-feed-more]").Length())
	assert.Equal(t, "No posts found for this category yet.", empty.Find("#post-list .lead").Text())
}

func TestArchiveBody(t *testing.T) {
	doc := render(t, ArchivePageView(testSite, ArchivePage{
		Meta:        PageMeta{Title: "Archive"},
		Status:      "Unable to load this archive month.",
		StatusError: true,
		Heading:     "Archive — January 2024",
		Months:      []archive.Month{{Key: "2024-02", Count: 3}, {Key: "2024-01"}},
		Active:      "2024-01",
		EmptyText:   "No archived posts for January 2024 yet.",
	}))
	assert.Equal(t, "Archive | Magz", doc.Find("title").Text())
	assert.True(t, doc.Find("[data-archive-status]").HasClass("text-danger"))
	assert.Equal(t, 2, doc.Find("[data-archive-month]").Length())
	assert.True(t, doc.Find(`[data-archive-month="2024-01"]`).HasClass("btn-primary"))
	assert.Equal(t, "3", doc.Find(".badge").Text())
	assert.Equal(t, "No archived posts for January 2024 yet.", strings.TrimSpace(doc.Find("[data-archive-posts]").Text()))
}

func TestFeedBufferUpdate(t *testing.T) {
	b := &FeedBuffer{}
	b.Reset()
	b.AppendPosts([]post.Post{{Slug: "a", Title: "A"}})
	b.SetProgress("Showing 1 results.")
	b.SetTitle("Politics")

	u, err := b.Update(context.Background(), testSite, true)
	require.NoError(t, err)
	assert.Contains(t, u.HTML, `data-slug="a"`)
	assert.Equal(t, "Showing 1 results.", u.Progress)
	assert.Equal(t, "Politics", u.Title)
	assert.True(t, u.HasMore)
	assert.False(t, u.Done)

	b.Finish(false, "All posts loaded")
	u, err = b.Update(context.Background(), testSite, true)
	require.NoError(t, err)
	assert.Empty(t, u.HTML)
	assert.Empty(t, u.Title)
	assert.True(t, u.Done)
	assert.False(t, u.HasMore)
	assert.Equal(t, "All posts loaded", u.Message)
}
