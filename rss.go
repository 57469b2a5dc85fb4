package magzfeed

import (
	"encoding/xml"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/magzfeed/partition"
	"github.com/eringen/magzfeed/post"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

// buildRSS renders a category's newest posts as an RSS channel.
func (a *App) buildRSS(page *partition.Page, posts []post.Post) rssXML {
	base := a.Config.Base()
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		pubDate := ""
		if t := p.Timestamp(); !t.IsZero() {
			pubDate = t.Format(time.RFC1123Z)
		}
		description := p.Excerpt
		if description == "" {
			description = p.Body
		}
		postURL := a.absURL(base.ArticleURL(p.Slug))
		items = append(items, rssItem{
			Title:       post.PlainText(p.Title),
			Link:        postURL,
			Description: post.PlainText(description),
			Category:    p.Category,
			PubDate:     pubDate,
			GUID:        postURL,
		})
	}
	return rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       page.Label + " | " + a.Config.Name,
			Link:        a.absURL(base.CategoryURL(page.RequestedSlug)),
			Description: a.Config.Description,
			Items:       items,
		},
	}
}

func (a *App) renderRSS(c echo.Context, page *partition.Page, posts []post.Post) error {
	return renderXML(c, "application/rss+xml; charset=utf-8", a.buildRSS(page, posts))
}
