package sessions

import (
	"math"
	"sync"
	"time"
)

const pollLimitWindow = 1 * time.Second

// pollLimiter allows one snapshot poll per client and session per window.
type pollLimiter struct {
	mu      sync.Mutex
	lastHit map[string]time.Time
	now     func() time.Time
	window  time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit: make(map[string]time.Time),
		now:     now,
		window:  window,
	}
}

func (l *pollLimiter) Allow(sessionID, client string) bool {
	if l == nil {
		return true
	}
	key := sessionID + "|" + client
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastHit[key]; ok && now.Sub(last) < l.window {
		return false
	}
	l.lastHit[key] = now
	return true
}

// Forget drops every entry of a deleted session.
func (l *pollLimiter) Forget(sessionID string) {
	if l == nil {
		return
	}
	prefix := sessionID + "|"
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.lastHit {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(l.lastHit, key)
		}
	}
}

func (l *pollLimiter) RetryAfterSeconds() int {
	window := pollLimitWindow
	if l != nil {
		window = l.window
	}
	return int(math.Max(1, math.Ceil(window.Seconds())))
}
