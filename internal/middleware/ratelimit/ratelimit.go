// Package ratelimit bounds per-client request rates with a fixed one-minute
// window. The ledger's write routes get a generous limit; routes that call
// out to the generation model get a tight one.
package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

// Config sets the per-client budget and how often idle clients are evicted.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// Limiter tracks request counts per client key. Stop it when done; each
// limiter owns a cleanup goroutine.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit    int
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// window is one client's count within the current minute.
type window struct {
	startedAt time.Time
	count     int
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    cfg.RequestsPerMinute,
		interval: cfg.CleanupInterval,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records one request for clientKey and reports whether it fits the
// current window. The window resets a minute after its first request.
func (l *Limiter) Allow(clientKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[clientKey]
	if !ok || now.Sub(w.startedAt) > time.Minute {
		l.windows[clientKey] = &window{startedAt: now, count: 1}
		return true
	}

	w.count++
	return w.count <= l.limit
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops clients whose window is long past, keeping the map
// bounded by active traffic rather than lifetime traffic.
func (l *Limiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, w := range l.windows {
		if w.startedAt.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

// ActiveClients returns how many clients are currently tracked.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware enforces the limit per extracted client key. When onLimit is
// nil, blocked requests get a plain 429 with Retry-After.
func (l *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(extractKey(r)) {
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded, retry later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
