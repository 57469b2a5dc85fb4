package magzfeed

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/magzfeed/slug"
)

// absURL resolves a site-relative link against the site URL.
func (a *App) absURL(link string) string {
	base, err := url.Parse(a.Config.URL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// pageParam returns the 1-based ?page= value, defaulting to 1.
func pageParam(c echo.Context) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam("page")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// firstParam returns the first non-empty query or path parameter of names.
// Path parameters are looked up with the same names.
func firstParam(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.QueryParam(n)); v != "" {
			return v
		}
	}
	for _, n := range names {
		if v := strings.TrimSpace(c.Param(n)); v != "" {
			return v
		}
	}
	return ""
}

// categoryParam reads ?cat= falling back to the path and then def.
func categoryParam(c echo.Context, def string) string {
	if v := slug.Slugify(firstParam(c, "cat")); v != "" {
		return v
	}
	return slug.Slugify(def)
}
