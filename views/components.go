package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/post"
)

// htmlWriter writes markup and remembers the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
}

// Layout wraps body in the site chrome.
func Layout(site SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		title := site.Name
		if meta.Title != "" {
			title = meta.Title + " | " + site.Name
		}
		description := meta.Description
		if description == "" {
			description = site.Description
		}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		h.text(title)
		h.raw("</title>")
		if description != "" {
			h.raw(`<meta name="description"`)
			h.attr("content", description)
			h.raw(">")
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.attr("href", meta.URL)
			h.raw(">")
		}
		h.raw(`<link rel="alternate" type="application/rss+xml"`)
		h.attr("title", site.Name)
		h.attr("href", site.Base.Resolve("/feed.xml"))
		h.raw(`></head><body><header class="primary"><a class="brand"`)
		h.attr("href", site.Base.Resolve("/"))
		h.raw(">")
		h.text(site.Name)
		h.raw(`</a><nav><a`)
		h.attr("href", site.Base.Resolve("/archive/"))
		h.raw(`>Archive</a></nav></header><main class="container">`)
		h.component(ctx, body)
		h.raw(`</main><script defer`)
		h.attr("src", site.Base.Resolve("/public/feed.js"))
		h.raw("></script></body></html>")
		return h.err
	})
}

// Card renders one feed card.
func Card(site SiteConfig, p post.Post) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		link := site.Base.ArticleURL(p.Slug)
		title := post.PlainText(p.Title)

		h.raw(`<article class="col-md-12 article-list"`)
		h.attr("data-slug", p.Slug)
		h.raw(`><div class="inner"><figure><a`)
		h.attr("href", link)
		h.raw("><img")
		h.attr("src", CoverURL(site.Base, p))
		h.attr("alt", title)
		h.raw(` loading="lazy"></a></figure><div class="details"><div class="detail">`)
		if p.Category != "" {
			h.raw(`<div class="category"><a`)
			h.attr("href", CategoryLink(site.Base, p))
			h.raw(">")
			h.text(p.Category)
			h.raw("</a></div>")
		}
		if p.Date != "" {
			h.raw("<time")
			if iso := ISODate(p.Date); iso != "" {
				h.attr("datetime", iso)
			}
			h.raw(">")
			h.text(FormatDate(p.Date))
			h.raw("</time>")
		}
		h.raw("</div><h1><a")
		h.attr("href", link)
		h.raw(">")
		h.text(title)
		h.raw("</a></h1>")
		if excerpt := post.PlainText(p.Excerpt); excerpt != "" {
			h.raw("<p>")
			h.text(excerpt)
			h.raw("</p>")
		}
		if p.ArchivedAt != "" {
			h.raw(`<div class="archive-meta text-muted">Archived on `)
			h.text(FormatDate(p.ArchivedAt))
			h.raw("</div>")
		}
		h.raw(`<footer><a class="btn btn-primary more"`)
		h.attr("href", link)
		h.raw(`>Read</a></footer></div></div></article>`)
		return h.err
	})
}

// Cards renders cards for posts in order. Posts without a title are skipped.
func Cards(site SiteConfig, posts []post.Post) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		for _, p := range posts {
			if p.Title == "" {
				continue
			}
			h.component(ctx, Card(site, p))
		}
		return h.err
	})
}

// Pagination renders the numbered page list.
func Pagination(items []PageItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(items) == 0 {
			return nil
		}
		h := &htmlWriter{w: w}
		h.raw(`<ul id="pagination" class="pagination">`)
		for _, it := range items {
			class := it.Class
			if it.Active {
				class = joinClass(class, "active")
			}
			if it.Disabled {
				class = joinClass(class, "disabled")
			}
			h.raw("<li")
			if class != "" {
				h.attr("class", class)
			}
			h.raw(">")
			if it.Disabled {
				h.raw("<span>")
				h.text(it.Label)
				h.raw("</span>")
			} else {
				h.raw("<a")
				h.attr("href", it.URL)
				h.raw(">")
				h.text(it.Label)
				h.raw("</a>")
			}
			h.raw("</li>")
		}
		h.raw("</ul>")
		return h.err
	})
}

func joinClass(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

// CategoryBody renders the feed list, its controls and the sidebar.
func CategoryBody(site SiteConfig, page CategoryPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="category-feed"`)
		h.attr("data-feed", page.CategorySlug)
		h.attr("data-session", page.SessionID)
		h.raw(`><h1 data-category-title>`)
		h.text(page.Title)
		h.raw(`</h1><p class="feed-progress" data-feed-progress>`)
		h.text(page.Progress)
		h.raw(`</p><div id="post-list" class="row" data-feed-list>`)
		if page.Empty {
			h.raw(`<p class="lead">`)
			h.text(page.Message)
			h.raw("</p>")
		} else {
			h.component(ctx, Cards(site, page.Posts))
		}
		if !page.Finished {
			h.raw(`<div class="feed-sentinel" data-feed-sentinel aria-hidden="true"></div>`)
		}
		h.raw("</div>")
		switch {
		case !page.Finished:
			h.raw(`<button type="button" class="btn btn-primary" data-feed-more`)
			h.attr("data-more-url", page.MoreURL)
			h.raw(">Load more</button>")
			h.raw("<noscript>")
			h.component(ctx, Pagination(page.Pagination))
			h.raw("</noscript>")
		case !page.Empty:
			h.raw(`<button type="button" class="btn btn-default" data-feed-more disabled>`)
			h.text(page.Message)
			h.raw("</button>")
		}
		h.raw("</section>")
		if len(page.Sidebar) > 0 {
			h.raw(`<aside class="sidebar"><h2>Recent</h2><ul>`)
			for _, p := range page.Sidebar {
				h.raw("<li><a")
				h.attr("href", site.Base.ArticleURL(p.Slug))
				h.raw(">")
				h.text(post.PlainText(p.Title))
				h.raw("</a></li>")
			}
			h.raw("</ul></aside>")
		}
		return h.err
	})
}

// CategoryPageView renders a full category page.
func CategoryPageView(site SiteConfig, page CategoryPage) templ.Component {
	return Layout(site, page.Meta, CategoryBody(site, page))
}

// MonthList renders the archive month buttons.
func MonthList(site SiteConfig, months []archive.Month, active string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<ul class="archive-months" data-archive-months>`)
		if len(months) == 0 {
			h.raw(`<li class="archive-month-item text-muted">No archive months available yet.</li>`)
		}
		for _, m := range months {
			class := "btn btn-default btn-sm"
			if m.Key == active {
				class = "btn btn-primary btn-sm"
			}
			h.raw(`<li class="archive-month-item"><a`)
			h.attr("class", class)
			h.attr("data-archive-month", m.Key)
			h.attr("href", site.Base.Resolve("/archive/?month="+m.Key))
			h.raw(">")
			h.text(m.Label())
			h.raw("</a>")
			if m.Count > 0 {
				h.raw(`<span class="badge">`)
				h.text(strconv.Itoa(m.Count))
				h.raw("</span>")
			}
			h.raw("</li>")
		}
		h.raw("</ul>")
		return h.err
	})
}

// ArchiveBody renders the archive page content.
func ArchiveBody(site SiteConfig, page ArchivePage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="archive"><h1 data-archive-heading>`)
		h.text(page.Heading)
		h.raw(`</h1><p data-archive-summary>`)
		h.text(page.Summary)
		h.raw("</p><p data-archive-status")
		switch {
		case page.Status == "":
			h.raw(" hidden")
		case page.StatusError:
			h.raw(` class="text-danger"`)
		}
		h.raw(">")
		h.text(page.Status)
		h.raw("</p>")
		h.component(ctx, MonthList(site, page.Months, page.Active))
		h.raw(`<div class="row" data-archive-posts>`)
		if len(page.Posts) == 0 {
			h.raw(`<div class="col-xs-12"><p class="text-muted">`)
			h.text(page.EmptyText)
			h.raw("</p></div>")
		} else {
			h.component(ctx, Cards(site, page.Posts))
		}
		h.raw("</div></section>")
		return h.err
	})
}

// ArchivePageView renders a full archive page.
func ArchivePageView(site SiteConfig, page ArchivePage) templ.Component {
	return Layout(site, page.Meta, ArchiveBody(site, page))
}

// NotFound renders the 404 page.
func NotFound(site SiteConfig) templ.Component {
	return Layout(site, PageMeta{Title: "Not found"}, message("Page not found", "The page you are looking for does not exist."))
}

// ServerError renders the 500 page.
func ServerError(site SiteConfig) templ.Component {
	return Layout(site, PageMeta{Title: "Error"}, message("Something went wrong", "Please try again in a moment."))
}

func message(heading, body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="message"><h1>`)
		h.text(heading)
		h.raw("</h1><p>")
		h.text(body)
		h.raw("</p></section>")
		return h.err
	})
}
