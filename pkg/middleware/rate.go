// Package middleware provides the HTTP middleware chain for the store API.
package middleware

import (
	"net/http"
	"sync"
	"time"
)

// counter is the per-IP request tally for the current window.
type counter struct {
	mu    sync.Mutex
	hits  int
	until time.Time
}

func (c *counter) take(limit int, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now := time.Now(); now.After(c.until) {
		c.hits = 0
		c.until = now.Add(window)
	}
	c.hits++
	return c.hits <= limit
}

var (
	countersMu sync.Mutex
	counters   = map[string]*counter{}
)

func init() {
	// Sweep stale counters once a minute so the map never grows without
	// bound on a long-running server.
	go func() {
		tick := time.NewTicker(time.Minute)
		defer tick.Stop()
		for range tick.C {
			now := time.Now()
			countersMu.Lock()
			for ip, c := range counters {
				c.mu.Lock()
				stale := now.After(c.until)
				c.mu.Unlock()
				if stale {
					delete(counters, ip)
				}
			}
			countersMu.Unlock()
		}
	}()
}

func counterFor(ip string) *counter {
	countersMu.Lock()
	defer countersMu.Unlock()

	if c, ok := counters[ip]; ok {
		return c
	}
	c := &counter{until: time.Now().Add(time.Minute)}
	counters[ip] = c
	return c
}

// RateLimit caps each client IP at max requests per window.
// Example: middleware.RateLimit(100, time.Minute)
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				ip = fwd
			}
			if !counterFor(ip).take(max, window) {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"status":429,"message":"Too Many Requests"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
