package magzfeed

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/magzfeed/feed"
	"github.com/eringen/magzfeed/partition"
	"github.com/eringen/magzfeed/taxonomy"
	"github.com/eringen/magzfeed/views"
)

// storedSessionTTL is how long persisted page sessions are kept, so a
// reader returning after a restart resumes where they stopped.
const storedSessionTTL = 24 * time.Hour

func (a *App) newPageSession(id string, page *partition.Page, tax *taxonomy.Lookup) *PageSession {
	s := &PageSession{
		Buffer:  &views.FeedBuffer{},
		Trigger: &feed.ManualScheduler{},
	}
	s.Controller = feed.New(feed.Config{
		ID:           id,
		Loader:       page.Loader,
		Renderer:     s.Buffer,
		Schedulers:   []feed.Scheduler{s.Trigger},
		CategorySlug: page.RequestedSlug,
		SourceSlug:   page.Slug,
		FilterSlug:   page.FilterSlug,
		Label:        page.Label,
		Titles:       tax,
		Logger:       a.logger,
	})
	return s
}

// session returns the open page session for id, rebuilding it from the
// store when it is no longer in memory.
func (a *App) session(ctx context.Context, id string) (*PageSession, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	if s, err := a.Sessions.Get(id); err == nil {
		return s, nil
	}
	v, err, _ := a.restores.Do(id, func() (any, error) {
		if s, err := a.Sessions.Get(id); err == nil {
			return s, nil
		}
		st, err := a.Store.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		tax := a.Docs.Taxonomy(ctx)
		page, err := a.builder.InitializePageData(ctx, a.Docs.Manifest(ctx), partition.PageOptions{
			Category: st.CategorySlug,
			Source:   st.SourceSlug,
			Label:    st.Label,
			Taxonomy: tax,
		})
		if err != nil {
			return nil, err
		}
		s := a.newPageSession(id, page, tax)
		s.Controller.Start()
		s.Controller.Restore(st)
		s.Buffer.SetTitle(s.Controller.Label())
		a.Sessions.Put(id, s)
		a.logger.Debug("page session restored", "session", id, "category", st.CategorySlug, "cursor", st.Cursor)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PageSession), nil
}

// saveSession persists the session state. Failures are logged; the page
// keeps working from memory.
func (a *App) saveSession(ctx context.Context, s *PageSession) {
	if err := a.Store.SaveSession(ctx, s.Controller.State()); err != nil {
		a.logger.Warn("page session not saved", "session", s.Controller.ID(), "error", err)
	}
}

// startSessionSweeper evicts idle sessions every interval and purges old
// persisted ones. The returned func stops it.
func (a *App) startSessionSweeper(interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				evicted := a.Sessions.Sweep()
				purged, err := a.Store.PurgeSessions(context.Background(), time.Now().Add(-storedSessionTTL))
				if err != nil {
					a.logger.Warn("purge page sessions", "error", err)
				}
				if evicted > 0 || purged > 0 {
					a.logger.Debug("page sessions swept", "evicted", evicted, "purged", purged)
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
