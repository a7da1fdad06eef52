package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWritesPerMinute = 60
	limiterSweepInterval   = 5 * time.Minute
	limiterStaleAfter      = 10 * time.Minute
)

// rateLimiter counts POST requests per client IP over a sliding one-minute
// window. The limit comes from configuration; zero means the default.
type rateLimiter struct {
	mu      sync.Mutex
	perMin  int
	clients map[string]*clientWindow
	done    chan struct{}
	once    sync.Once
}

type clientWindow struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(perMin int) *rateLimiter {
	if perMin <= 0 {
		perMin = defaultWritesPerMinute
	}
	rl := &rateLimiter{
		perMin:  perMin,
		clients: make(map[string]*clientWindow),
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// allow reports whether another request from clientIP fits in its window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.clients[clientIP]
	if !ok || now.Sub(w.windowStart) > time.Minute {
		rl.clients[clientIP] = &clientWindow{windowStart: now, count: 1}
		return true
	}

	w.count++
	if w.count > rl.perMin {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}

// sweep drops windows that have gone quiet so the map cannot grow without
// bound under churning client IPs.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterStaleAfter)
			rl.mu.Lock()
			for ip, w := range rl.clients {
				if w.windowStart.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}
