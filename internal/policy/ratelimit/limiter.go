// Package ratelimit implements a token bucket rate limiter keyed by client.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/webanalyst/internal/analysis"
	"github.com/JakeFAU/webanalyst/internal/metrics"
)

// rejectedBody is the failure document returned with every 429.
var rejectedBody, _ = json.Marshal(analysis.Failure{
	Category: analysis.CategoryGeneric,
	Message:  "rate limit exceeded",
	Guidance: []string{"Please wait a moment before submitting another analysis."},
})

// maxClients bounds the number of tracked buckets; the table is reset when full.
const maxClients = 10000

// Limiter manages per-client rate limits.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration.
type Config struct {
	// RPS is the sustained request rate per client. Zero or less disables limiting.
	RPS   float64
	Burst int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Allow reports whether key may proceed now, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	if l.defaultRate == rate.Inf {
		return true
	}
	l.mu.Lock()
	limiter, exists := l.limiters[key]
	if !exists {
		if len(l.limiters) >= maxClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects requests with 429 once the client's bucket is empty.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientKey(r)) {
			metrics.ObserveRateLimited()
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write(rejectedBody)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
