package pipeline

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultQuietInterval is the minimum spacing between accepted no-change
// updates for one key.
const defaultQuietInterval = 200 * time.Millisecond

// keyLimiter throttles repeat updates per tracked key. A detected text
// change always passes; unchanged updates are spaced by the quiet interval.
type keyLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	per      map[string]*rate.Limiter
}

func newKeyLimiter(interval time.Duration) *keyLimiter {
	if interval <= 0 {
		interval = defaultQuietInterval
	}
	return &keyLimiter{interval: interval, per: map[string]*rate.Limiter{}}
}

func (l *keyLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.per[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.per[key] = lim
	}
	return lim
}

// Allow reports whether the update may proceed. textChanged bypasses the
// timer but still consumes the token so a burst of identical follow-ups
// stays suppressed.
func (l *keyLimiter) Allow(key string, textChanged bool) bool {
	lim := l.limiterFor(key)
	if textChanged {
		_ = lim.Allow()
		return true
	}
	return lim.Allow()
}

// Forget drops the per-key state after removal.
func (l *keyLimiter) Forget(key string) {
	l.mu.Lock()
	delete(l.per, key)
	l.mu.Unlock()
}

// Prune drops limiters that have fully recovered their token; they carry
// no state worth keeping.
func (l *keyLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, lim := range l.per {
		if lim.Tokens() >= 1 {
			delete(l.per, k)
			n++
		}
	}
	return n
}
