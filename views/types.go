package views

import (
	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/post"
)

// SiteConfig holds site-wide settings every page template needs.
type SiteConfig struct {
	Name        string         // SITE_NAME  (default "Magz")
	URL         string         // SITE_URL   (default "http://localhost:3000")
	Description string         // SITE_DESCRIPTION
	Base        fetch.BasePath // deployment sub-path for links
}

// PageMeta carries per-page title and canonical URL into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical
}

// CategoryPage is the data behind a category feed page.
type CategoryPage struct {
	Meta         PageMeta
	Title        string
	CategorySlug string
	SessionID    string
	MoreURL      string
	Posts        []post.Post
	Sidebar      []post.Post
	Progress     string
	Finished     bool
	Empty        bool
	Message      string
	Pagination   []PageItem
}

// ArchivePage is the data behind the archive page.
type ArchivePage struct {
	Meta        PageMeta
	Status      string
	StatusError bool
	Heading     string
	Summary     string
	Months      []archive.Month
	Active      string
	Posts       []post.Post
	EmptyText   string
}

// FeedUpdate is one load-more response.
type FeedUpdate struct {
	HTML     string `json:"html"`
	Progress string `json:"progress"`
	Done     bool   `json:"done"`
	Empty    bool   `json:"empty"`
	Message  string `json:"message,omitempty"`
	Title    string `json:"title,omitempty"`
	HasMore  bool   `json:"has_more"`
}
