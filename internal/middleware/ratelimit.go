package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const staleCallerAge = time.Hour

// RateLimiter tracks a token bucket per calling IP.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*bucket
	rate    int
	window  time.Duration
	sweep   *time.Ticker
	done    chan struct{}
}

type bucket struct {
	tokens   int
	refilled time.Time
}

// NewRateLimiter allows rate requests per window for each caller.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		sweep:   time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go rl.sweepStale()
	return rl
}

// sweepStale drops callers that have been idle long enough that their
// bucket would be full anyway.
func (rl *RateLimiter) sweepStale() {
	for {
		select {
		case <-rl.sweep.C:
			cutoff := time.Now().Add(-staleCallerAge)
			rl.mu.Lock()
			for ip, b := range rl.callers {
				if b.refilled.Before(cutoff) {
					delete(rl.callers, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// Stop terminates the background sweeper.
func (rl *RateLimiter) Stop() {
	rl.sweep.Stop()
	close(rl.done)
}

// Allow consumes one token for the caller, refilling proportionally to
// the time elapsed since the last refill.
func (rl *RateLimiter) Allow(caller string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.callers[caller]
	if !ok {
		b = &bucket{tokens: rl.rate, refilled: now}
		rl.callers[caller] = b
	}

	elapsed := now.Sub(b.refilled)
	if elapsed >= rl.window {
		b.tokens = rl.rate
		b.refilled = now
	} else if earned := int(float64(rl.rate) * elapsed.Seconds() / rl.window.Seconds()); earned > 0 {
		b.tokens = min(b.tokens+earned, rl.rate)
		b.refilled = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// callerKey identifies the client, preferring proxy-set headers over
// the socket address.
func callerKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return fwd
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// RateLimit rejects requests above the configured rate with a 429.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(callerKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.rate))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
