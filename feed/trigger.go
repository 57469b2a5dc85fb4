package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Trigger names what asked for more posts.
type Trigger int

const (
	TriggerManual Trigger = iota
	TriggerClick
	TriggerIntersect
)

func (t Trigger) String() string {
	switch t {
	case TriggerClick:
		return "click"
	case TriggerIntersect:
		return "intersect"
	default:
		return "manual"
	}
}

// ParseTrigger maps a request value onto a Trigger. Unknown values are manual.
func ParseTrigger(s string) Trigger {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "click":
		return TriggerClick
	case "intersect", "intersection", "scroll":
		return TriggerIntersect
	default:
		return TriggerManual
	}
}

// ErrDetached is returned when a trigger fires after the feed finished.
var ErrDetached = errors.New("feed: scheduler detached")

// FireFunc asks the controller for the next batch.
type FireFunc func(ctx context.Context, t Trigger) error

// Scheduler delivers triggers to a controller between Attach and Detach.
type Scheduler interface {
	Attach(fire FireFunc)
	Detach()
}

// ManualScheduler fires only when told to. It backs the HTTP load-more
// endpoint and tests.
type ManualScheduler struct {
	mu   sync.Mutex
	fire FireFunc
}

// Attach implements Scheduler.
func (s *ManualScheduler) Attach(fire FireFunc) {
	s.mu.Lock()
	s.fire = fire
	s.mu.Unlock()
}

// Detach implements Scheduler.
func (s *ManualScheduler) Detach() {
	s.mu.Lock()
	s.fire = nil
	s.mu.Unlock()
}

// Fire delivers t. It returns ErrDetached when nothing is attached.
func (s *ManualScheduler) Fire(ctx context.Context, t Trigger) error {
	s.mu.Lock()
	fire := s.fire
	s.mu.Unlock()
	if fire == nil {
		return ErrDetached
	}
	return fire(ctx, t)
}
