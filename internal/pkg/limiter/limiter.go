/*
Package limiter provides token-bucket rate limiting keyed by an arbitrary
string, typically a connection's remote address.

It wraps rate.Limiter and includes a cleanup goroutine that periodically
removes idle entries so long-running servers do not accumulate limiters for
connections that are gone.
*/
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tlschat/internal/pkg/logx"
)

// cleanupInterval controls how often idle limiters are swept.
const cleanupInterval = 3 * time.Minute

// Keyed implements a per-key token-bucket rate limiter.
type Keyed struct {
	// mu protects concurrent access to the limits map.
	mu sync.RWMutex

	// limits maps a key to its *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the sustained rate, in events per second.
	r rate.Limit

	// b is the burst size of each bucket.
	b int
}

// NewKeyed creates a Keyed limiter allowing r events per second with bursts
// of b, and starts the background sweep of idle entries.
func NewKeyed(r rate.Limit, b int) *Keyed {
	k := &Keyed{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go k.sweepIdle()

	return k
}

// limiter returns the rate limiter for the given key, creating it on first
// use. Double-checked locking keeps creation concurrent-safe without holding
// the write lock on the hot path.
func (k *Keyed) limiter(key string) *rate.Limiter {
	k.mu.RLock()
	lim, exists := k.limits[key]
	k.mu.RUnlock()

	if !exists {
		k.mu.Lock()
		lim, exists = k.limits[key]
		if !exists {
			lim = rate.NewLimiter(k.r, k.b)
			k.limits[key] = lim
		}
		k.mu.Unlock()
	}

	return lim
}

// Allow reports whether an event for the given key may proceed now.
func (k *Keyed) Allow(key string) bool {
	return k.limiter(key).Allow()
}

// sweepIdle periodically removes limiters whose buckets are full again,
// meaning the key has been quiet long enough to forget.
func (k *Keyed) sweepIdle() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		k.mu.Lock()
		removed := 0
		for key, lim := range k.limits {
			if lim.TokensAt(time.Now()) >= float64(lim.Burst()) {
				delete(k.limits, key)
				removed++
			}
		}
		remaining := len(k.limits)
		k.mu.Unlock()

		logx.Info("Rate limiter sweep finished.", "removed", removed, "remaining", remaining)
	}
}
