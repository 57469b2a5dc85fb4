package magzfeed

import (
	"encoding/xml"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/magzfeed/archive"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// buildSitemap lists the category pages and every archived month.
func (a *App) buildSitemap(categories []string, idx *archive.Index) sitemapURLSet {
	base := a.Config.Base()
	urls := []sitemapURL{
		{Loc: a.absURL(base.Resolve("/"))},
	}
	for _, cat := range categories {
		urls = append(urls, sitemapURL{Loc: a.absURL(base.CategoryURL(cat))})
	}
	if idx != nil && len(idx.Months) > 0 {
		urls = append(urls, sitemapURL{Loc: a.absURL(base.Resolve("/archive/"))})
		for _, m := range idx.Months {
			urls = append(urls, sitemapURL{
				Loc: a.absURL(base.Resolve("/archive/?month=" + url.QueryEscape(m.Key))),
			})
		}
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func (a *App) renderSitemap(c echo.Context, categories []string, idx *archive.Index) error {
	return renderXML(c, "application/xml; charset=utf-8", a.buildSitemap(categories, idx))
}
