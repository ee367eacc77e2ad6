package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"imagestudio/internal/domain"
	"imagestudio/internal/i18n"
)

type bucket struct {
	count int
	until time.Time
}

// RateLimiter is a fixed-window counter keyed by client IP.
type RateLimiter struct {
	limit int
	per   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		per:     per,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow counts one request for key and reports whether it fits the window,
// plus how long until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.until) {
		b = &bucket{until: now.Add(rl.per)}
		rl.buckets[key] = b
	}
	if b.count >= rl.limit {
		return false, b.until.Sub(now)
	}
	b.count++
	return true, 0
}

// Prune forgets windows that have already closed.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for k, b := range rl.buckets {
		if now.After(b.until) {
			delete(rl.buckets, k)
		}
	}
}

// Run prunes on every tick until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}

// Middleware rejects over-limit requests with 429, a Retry-After header and
// a localized JSON error body.
// A non-positive limit disables limiting.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.Allow(ClientIP(r))
		if !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			locale := LocaleFromContext(r.Context())
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":  domain.CodeRateLimited,
				"error": i18n.Message(locale, domain.CodeRateLimited),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
