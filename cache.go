package magzfeed

import (
	"errors"
	"sync"
	"time"

	"github.com/eringen/magzfeed/feed"
	"github.com/eringen/magzfeed/views"
)

// ErrNotFound is returned when a requested page session does not exist.
var ErrNotFound = errors.New("magzfeed: not found")

// PageSession is one open category page: its feed controller, the buffer
// the controller renders into, and the scheduler the load-more endpoint
// fires.
type PageSession struct {
	Controller *feed.Controller
	Buffer     *views.FeedBuffer
	Trigger    *feed.ManualScheduler

	touched time.Time
}

// PageSessions is an in-memory table of open page sessions with an idle TTL.
type PageSessions struct {
	mu       sync.RWMutex
	sessions map[string]*PageSession
	ttl      time.Duration
	now      func() time.Time
}

// NewPageSessions creates a PageSessions evicting sessions idle for ttl.
func NewPageSessions(ttl time.Duration) *PageSessions {
	return &PageSessions{
		sessions: make(map[string]*PageSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (p *PageSessions) expired(s *PageSession, now time.Time) bool {
	return p.ttl > 0 && now.Sub(s.touched) >= p.ttl
}

// Put stores s under id.
func (p *PageSessions) Put(id string, s *PageSession) {
	p.mu.Lock()
	s.touched = p.now()
	p.sessions[id] = s
	p.mu.Unlock()
}

// Get returns the session for id and marks it used, or ErrNotFound.
func (p *PageSessions) Get(id string) (*PageSession, error) {
	now := p.now()
	p.mu.RLock()
	s, ok := p.sessions[id]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expired(s, now) {
		delete(p.sessions, id)
		return nil, ErrNotFound
	}
	s.touched = now
	return s, nil
}

// Delete removes the session for id.
func (p *PageSessions) Delete(id string) {
	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()
}

// Sweep evicts idle sessions and returns how many were removed. Evicted
// sessions detach their schedulers so a late trigger is ignored.
func (p *PageSessions) Sweep() int {
	now := p.now()
	var evicted []*PageSession
	p.mu.Lock()
	for id, s := range p.sessions {
		if p.expired(s, now) {
			evicted = append(evicted, s)
			delete(p.sessions, id)
		}
	}
	p.mu.Unlock()

	for _, s := range evicted {
		if s.Trigger != nil {
			s.Trigger.Detach()
		}
	}
	return len(evicted)
}

// Len returns the number of open sessions.
func (p *PageSessions) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}
