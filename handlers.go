package magzfeed

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/feed"
	"github.com/eringen/magzfeed/partition"
	"github.com/eringen/magzfeed/post"
	"github.com/eringen/magzfeed/views"
)

func (a *App) handleHome(c echo.Context) error {
	cat := Pref(c, prefCategory)
	if cat == "" {
		cat = a.Config.DefaultCategory
	}
	return c.Redirect(http.StatusSeeOther, a.Config.Base().CategoryURL(cat))
}

func (a *App) handleCategory(c echo.Context) error {
	ctx := c.Request().Context()
	tax := a.Docs.Taxonomy(ctx)
	opts := partition.PageOptions{
		Category: firstParam(c, "cat"),
		Sub:      firstParam(c, "sub"),
		Label:    c.QueryParam("label"),
		Taxonomy: tax,
	}
	if opts.RequestedSlug() == "" {
		opts.Category = a.Config.DefaultCategory
	}
	page, err := a.builder.InitializePageData(ctx, a.Docs.Manifest(ctx), opts)
	if err != nil {
		return err
	}

	current := pageParam(c)
	if current > 1 {
		page.Loader.Seek(current - 1)
	}

	id := uuid.NewString()
	s := a.newPageSession(id, page, tax)
	s.Controller.Start()
	if err := s.Trigger.Fire(ctx, feed.TriggerManual); err != nil {
		return err
	}
	a.Sessions.Put(id, s)
	a.saveSession(ctx, s)

	sidebar, err := page.Loader.EnsureCount(ctx, a.Config.SidebarSize)
	if err != nil {
		return err
	}
	if err := setPref(c, prefCategory, page.RequestedSlug); err != nil {
		c.Logger().Warnf("save category preference: %v", err)
	}

	site := a.site()
	label := s.Controller.Label()
	data := s.Buffer.Page(views.CategoryPage{
		Meta: views.PageMeta{
			Title: label,
			URL:   views.CanonicalURL(a.Config.URL, site.Base.CategoryURL(page.RequestedSlug)),
		},
		Title:        label,
		CategorySlug: page.RequestedSlug,
		SessionID:    id,
		MoreURL:      site.Base.Resolve("/category/more/?sid=" + url.QueryEscape(id)),
		Sidebar:      sidebar,
		Pagination:   a.pagination(page, current, site.Base.Resolve(c.Request().URL.RequestURI())),
	})
	return Render(c, a.Views.CategoryPage(site, data))
}

// pagination builds the numbered links shown when scripts are off: legacy
// pages of PageSize posts, or one page per chunk.
func (a *App) pagination(page *partition.Page, current int, base string) []views.PageItem {
	switch l := page.Loader.(type) {
	case *partition.ArrayLoader:
		return views.Pages(l.Total(), a.Config.PageSize, current, base)
	case *partition.Partitioned:
		return views.Pages(l.Len(), 1, current, base)
	}
	return nil
}

func (a *App) handleMore(c echo.Context) error {
	if !a.moreLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
	}
	ctx := c.Request().Context()
	s, err := a.session(ctx, c.QueryParam("sid"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "unknown page session"})
	}
	if err != nil {
		return err
	}

	err = s.Trigger.Fire(ctx, feed.ParseTrigger(c.QueryParam("trigger")))
	if err != nil && !errors.Is(err, feed.ErrDetached) {
		return err
	}
	a.saveSession(ctx, s)

	update, err := s.Buffer.Update(ctx, a.site(), s.Controller.HasMore())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, update)
}

func (a *App) handleArchive(c echo.Context) error {
	ctx := c.Request().Context()
	state := &views.ArchiveState{}
	view := archive.NewView(a.archive, state, a.logger)
	err := view.Init(ctx, a.Docs.ArchiveIndex(ctx),
		c.QueryParam("month"), c.QueryParam("m"), Pref(c, prefMonth))
	if err != nil && !errors.Is(err, archive.ErrStale) {
		c.Logger().Warnf("archive: %v", err)
	}
	if m := view.Active(); m != "" {
		if err := setPref(c, prefMonth, m); err != nil {
			c.Logger().Warnf("save archive preference: %v", err)
		}
	}

	site := a.site()
	heading := archive.Heading(view.Active())
	page := state.Page(views.PageMeta{
		Title:       heading,
		Description: archive.Summary(view.Index()),
		URL:         views.CanonicalURL(a.Config.URL, site.Base.Resolve(c.Request().URL.RequestURI())),
	})
	return Render(c, a.Views.ArchivePage(site, page))
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	tax := a.Docs.Taxonomy(ctx)
	page, err := a.builder.InitializePageData(ctx, a.Docs.Manifest(ctx), partition.PageOptions{
		Category: categoryParam(c, a.Config.DefaultCategory),
		Taxonomy: tax,
	})
	if err != nil {
		return err
	}
	posts, err := page.Loader.EnsureCount(ctx, a.Config.FeedSize)
	if err != nil {
		return err
	}
	return a.renderRSS(c, page, post.FilterCategory(posts, page.FilterSlug))
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	return a.renderSitemap(c, a.Docs.Taxonomy(ctx).Slugs(), a.Docs.ArchiveIndex(ctx))
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	site := a.site()
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
