// Package ratelimit throttles repeated actions per key.
package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter reports whether an action for key may run now.
type RateLimiter interface {
	Allow(key string) bool
}

// Limiter enforces a minimum interval between actions for the same key.
// Keys whose window has passed are swept at most once per interval.
type Limiter struct {
	mu          sync.Mutex
	keys        map[string]time.Time
	minInterval time.Duration
	lastSweep   time.Time
	now         func() time.Time
}

func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		keys:        make(map[string]time.Time),
		minInterval: minInterval,
		now:         time.Now,
	}
}

// Allow records the action and returns true when minInterval has passed
// since the last allowed one. A denied call does not move the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.minInterval {
		l.sweep(now)
	}

	if last, ok := l.keys[key]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.keys[key] = now
	return true
}

// sweep drops keys that would be allowed again anyway.
func (l *Limiter) sweep(now time.Time) {
	for key, last := range l.keys {
		if now.Sub(last) >= l.minInterval {
			delete(l.keys, key)
		}
	}
	l.lastSweep = now
}
