package magzfeed

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MoreLimiter rate-limits load-more requests per IP address.
type MoreLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	idle    time.Duration
	done    chan struct{}
	once    sync.Once
}

type client struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewMoreLimiter creates a MoreLimiter allowing rps requests per second with
// the given burst. Clients unseen for idle are forgotten.
func NewMoreLimiter(rps float64, burst int, idle time.Duration) *MoreLimiter {
	l := &MoreLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		done:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *MoreLimiter) cleanup() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.forget(time.Now().Add(-l.idle))
		}
	}
}

func (l *MoreLimiter) forget(cutoff time.Time) {
	l.mu.Lock()
	for ip, c := range l.clients {
		if c.seen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
	l.mu.Unlock()
}

// Allow reports whether ip may make another request now and records it.
func (l *MoreLimiter) Allow(ip string) bool {
	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.seen = time.Now()
	l.mu.Unlock()
	return c.limiter.Allow()
}

// Stop ends the cleanup goroutine.
func (l *MoreLimiter) Stop() {
	l.once.Do(func() { close(l.done) })
}
