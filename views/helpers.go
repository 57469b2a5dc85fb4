package views

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/slug"
)

// maxPlainPages is the page count up to which every page number is listed.
const maxPlainPages = 13

// CanonicalURL joins a site URL and a request path with its query.
func CanonicalURL(siteURL, requestURI string) string {
	return strings.TrimRight(siteURL, "/") + "/" + strings.TrimLeft(requestURI, "/")
}

// PageItem is one entry of the numbered pagination list.
type PageItem struct {
	Label    string
	URL      string
	Class    string
	Active   bool
	Disabled bool
	Ellipsis bool
}

// Pages builds the pagination list for totalItems split into perPage pages.
// Up to 13 pages are listed in full; beyond that the first and last page and
// the current page's neighbours are shown with ellipses between. It returns
// nil when there is at most one page.
func Pages(totalItems, perPage, current int, base string) []PageItem {
	if perPage < 1 {
		perPage = 1
	}
	totalPages := (totalItems + perPage - 1) / perPage
	if totalPages <= 1 {
		return nil
	}
	current = max(1, min(current, totalPages))

	page := func(n int) PageItem {
		return PageItem{Label: strconv.Itoa(n), URL: PageURL(base, n), Active: n == current}
	}
	ellipsis := PageItem{Label: "…", Class: "ellipsis", Disabled: true, Ellipsis: true}

	items := []PageItem{{
		Label:    "Previous",
		URL:      PageURL(base, max(1, current-1)),
		Class:    "prev",
		Disabled: current == 1,
	}}
	if totalPages <= maxPlainPages {
		for n := 1; n <= totalPages; n++ {
			items = append(items, page(n))
		}
	} else {
		items = append(items, page(1))
		start, end := max(2, current-1), min(totalPages-1, current+1)
		if start > 2 {
			items = append(items, ellipsis)
		}
		for n := start; n <= end; n++ {
			items = append(items, page(n))
		}
		if end < totalPages-1 {
			items = append(items, ellipsis)
		}
		items = append(items, page(totalPages))
	}
	return append(items, PageItem{
		Label:    "Next",
		URL:      PageURL(base, min(totalPages, current+1)),
		Class:    "next",
		Disabled: current == totalPages,
	})
}

// PageURL sets the page query parameter on base, replacing any existing one.
func PageURL(base string, n int) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "?page=" + strconv.Itoa(n)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}

// CategoryLink returns the category page link for a post.
func CategoryLink(base fetch.BasePath, p post.Post) string {
	s := strings.Trim(strings.TrimSpace(p.CategorySlug), "/")
	if s == "" {
		s = slug.Slugify(p.Category)
	}
	return base.CategoryURL(s)
}

// CoverURL returns the post's cover image or the site logo.
func CoverURL(base fetch.BasePath, p post.Post) string {
	if p.Cover != "" {
		return base.Resolve(p.Cover)
	}
	return base.Resolve("/images/logo.png")
}

// FormatDate renders a timestamp as "January 2, 2006", or returns raw
// unchanged when it cannot be parsed.
func FormatDate(raw string) string {
	if raw == "" {
		return ""
	}
	t := post.Post{Date: raw}.Timestamp()
	if t.IsZero() {
		return raw
	}
	return t.Format("January 2, 2006")
}

// ISODate renders a timestamp for a <time datetime> attribute.
func ISODate(raw string) string {
	t := post.Post{Date: raw}.Timestamp()
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
