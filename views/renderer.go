package views

import (
	"bytes"
	"context"
	"sync"

	"github.com/eringen/magzfeed/archive"
	"github.com/eringen/magzfeed/feed"
	"github.com/eringen/magzfeed/post"
)

// FeedBuffer collects a feed controller's output between requests. The page
// handler renders its first batch into the page; the load-more handler drains
// it into a FeedUpdate.
type FeedBuffer struct {
	mu       sync.Mutex
	posts    []post.Post
	progress string
	title    string
	titleSet bool
	finished bool
	empty    bool
	message  string
}

// Reset implements feed.Renderer.
func (b *FeedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = nil
	b.finished, b.empty, b.message = false, false, ""
}

// AppendPosts implements feed.Renderer.
func (b *FeedBuffer) AppendPosts(posts []post.Post) {
	b.mu.Lock()
	b.posts = append(b.posts, posts...)
	b.mu.Unlock()
}

// SetProgress implements feed.Renderer.
func (b *FeedBuffer) SetProgress(label string) {
	b.mu.Lock()
	b.progress = label
	b.mu.Unlock()
}

// SetLoading implements feed.Renderer. In-flight state lives in the page
// script.
func (b *FeedBuffer) SetLoading(bool) {}

// SetTitle implements feed.Renderer.
func (b *FeedBuffer) SetTitle(title string) {
	b.mu.Lock()
	b.title, b.titleSet = title, true
	b.mu.Unlock()
}

// Finish implements feed.Renderer.
func (b *FeedBuffer) Finish(empty bool, message string) {
	b.mu.Lock()
	b.finished, b.empty, b.message = true, empty, message
	b.mu.Unlock()
}

// Page fills the feed fields of a category page and clears the pending posts.
func (b *FeedBuffer) Page(page CategoryPage) CategoryPage {
	b.mu.Lock()
	defer b.mu.Unlock()
	page.Posts = b.posts
	page.Progress = b.progress
	if b.titleSet {
		page.Title = b.title
	}
	page.Finished = b.finished
	page.Empty = b.empty
	page.Message = b.message
	b.posts = nil
	b.titleSet = false
	return page
}

// Update drains pending posts into a load-more response.
func (b *FeedBuffer) Update(ctx context.Context, site SiteConfig, hasMore bool) (FeedUpdate, error) {
	b.mu.Lock()
	posts := b.posts
	u := FeedUpdate{
		Progress: b.progress,
		Done:     b.finished,
		Empty:    b.empty,
		Message:  b.message,
		HasMore:  hasMore && !b.finished,
	}
	if b.titleSet {
		u.Title = b.title
	}
	b.posts = nil
	b.titleSet = false
	b.mu.Unlock()

	var buf bytes.Buffer
	if err := Cards(site, posts).Render(ctx, &buf); err != nil {
		return FeedUpdate{}, err
	}
	u.HTML = buf.String()
	return u, nil
}

// ArchiveState records an archive view's output for one page render.
type ArchiveState struct {
	mu   sync.Mutex
	page ArchivePage
}

// SetStatus implements archive.Renderer.
func (s *ArchiveState) SetStatus(message string, isError bool) {
	s.mu.Lock()
	s.page.Status, s.page.StatusError = message, isError && message != ""
	s.mu.Unlock()
}

// SetHeading implements archive.Renderer.
func (s *ArchiveState) SetHeading(text string) {
	s.mu.Lock()
	s.page.Heading = text
	s.mu.Unlock()
}

// SetSummary implements archive.Renderer.
func (s *ArchiveState) SetSummary(text string) {
	s.mu.Lock()
	s.page.Summary = text
	s.mu.Unlock()
}

// RenderMonths implements archive.Renderer.
func (s *ArchiveState) RenderMonths(months []archive.Month, active string) {
	s.mu.Lock()
	s.page.Months, s.page.Active = months, active
	s.mu.Unlock()
}

// RenderPosts implements archive.Renderer.
func (s *ArchiveState) RenderPosts(posts []post.Post, emptyText string) {
	s.mu.Lock()
	s.page.Posts, s.page.EmptyText = posts, emptyText
	s.mu.Unlock()
}

// Page returns the recorded page with meta applied.
func (s *ArchiveState) Page(meta PageMeta) ArchivePage {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.page
	p.Meta = meta
	return p
}

var (
	_ feed.Renderer    = (*FeedBuffer)(nil)
	_ archive.Renderer = (*ArchiveState)(nil)
)
