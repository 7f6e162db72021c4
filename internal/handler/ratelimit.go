package handler

import (
	"sync"
	"time"
)

// RateLimiter is a per-key sliding-window counter. State lives in memory:
// the daemon is a single process, so there is no shared store to coordinate
// with, and a restart resetting the windows is acceptable.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	now    func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = 3
	}
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{
		window: window,
		max:    max,
		hits:   map[string][]time.Time{},
		now:    time.Now,
	}
}

// Allow records an attempt for key and reports whether it fits the window.
// Denied attempts are not recorded.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}
