package httpmiddleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client fixed-window rate limiter.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per window. Zero disables
	// limiting.
	Requests int

	// Window is the length of the counting window. Defaults to one minute.
	Window time.Duration
}

type rateWindow struct {
	start time.Time
	count int
}

type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

// allow reports whether a request from key fits in the current window and
// returns the seconds until the window resets when it does not.
func (l *rateLimiter) allow(key string) (bool, int) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.clients[key] = &rateWindow{start: now, count: 1}
		return true, 0
	}
	if w.count < l.limit {
		w.count++
		return true, 0
	}

	retry := int(l.window.Seconds() - now.Sub(w.start).Seconds())
	if retry < 1 {
		retry = 1
	}
	return false, retry
}

// sweep drops windows that ended long ago so the client map stays bounded.
func (l *rateLimiter) sweep() {
	cutoff := l.now().Add(-2 * l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// RateLimit returns a middleware limiting each client IP to cfg.Requests per
// cfg.Window. Over-limit requests receive 429 with a Retry-After header.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	l := &rateLimiter{
		clients: make(map[string]*rateWindow),
		limit:   cfg.Requests,
		window:  cfg.Window,
		now:     time.Now,
	}

	go func() {
		t := time.NewTicker(cfg.Window)
		defer t.Stop()
		for range t.C {
			l.sweep()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.allow(clientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the remote address without the port. The load balancer is
// expected to have normalized X-Forwarded-For before the request reaches us,
// so RemoteAddr is authoritative here.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
