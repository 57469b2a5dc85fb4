package magzfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eringen/magzfeed/feed"
)

func TestPageSessionsGetPut(t *testing.T) {
	p := NewPageSessions(time.Minute)
	s := &PageSession{Trigger: &feed.ManualScheduler{}}
	p.Put("a", s)

	got, err := p.Get("a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != s {
		t.Fatalf("expected stored session back")
	}
	if _, err := p.Get("b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPageSessionsExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPageSessions(time.Minute)
	p.now = func() time.Time { return now }

	p.Put("a", &PageSession{})
	now = now.Add(2 * time.Minute)
	if _, err := p.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("expected expired session to be evicted on read")
	}
}

func TestPageSessionsSweepDetaches(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPageSessions(time.Minute)
	p.now = func() time.Time { return now }

	trigger := &feed.ManualScheduler{}
	trigger.Attach(func(context.Context, feed.Trigger) error { return nil })
	p.Put("idle", &PageSession{Trigger: trigger})
	now = now.Add(30 * time.Second)
	p.Put("busy", &PageSession{})
	now = now.Add(45 * time.Second)

	if n := p.Sweep(); n != 1 {
		t.Fatalf("expected 1 evicted session, got %d", n)
	}
	if err := trigger.Fire(context.Background(), feed.TriggerClick); !errors.Is(err, feed.ErrDetached) {
		t.Fatalf("expected evicted session's trigger to be detached, got %v", err)
	}
	if _, err := p.Get("busy"); err != nil {
		t.Fatalf("expected busy session to survive, got %v", err)
	}
}
