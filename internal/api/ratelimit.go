package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/metrics"
)

// RateLimiterConfig sizes the per-user token bucket for availability checks.
type RateLimiterConfig struct {
	PerMinute       int
	Burst           int
	CleanupInterval time.Duration
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles availability checks per authenticated user. Checks
// fire on every blur, so a script could otherwise enumerate the namespace.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	limiters map[int64]*userLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewRateLimiter starts a limiter and its background cleanup. Call Stop to
// release the goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		limit:    rate.Limit(float64(cfg.PerMinute) / 60),
		burst:    cfg.Burst,
		ttl:      2 * cfg.CleanupInterval,
		limiters: make(map[int64]*userLimiter),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Stop ends the cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	<-rl.done
}

// Middleware must run after auth.Middleware.Authenticate.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
			return
		}
		if !rl.allow(id.UserID, time.Now()) {
			metrics.ProbesRateLimitedTotal.Inc()
			retry := int(math.Ceil(1 / float64(rl.limit)))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, http.StatusTooManyRequests, "too many availability checks, try again shortly", CodeRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Len reports how many users currently have a bucket.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) allow(userID int64, now time.Time) bool {
	rl.mu.Lock()
	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[userID] = ul
	}
	ul.lastAccess = now
	rl.mu.Unlock()
	return ul.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer close(rl.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.cleanup(now)
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops buckets idle for longer than twice the cleanup interval.
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, ul := range rl.limiters {
		if now.Sub(ul.lastAccess) > rl.ttl {
			delete(rl.limiters, id)
		}
	}
}
