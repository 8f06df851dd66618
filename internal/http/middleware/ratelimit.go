package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter throttles clients by IP with a continuously refilling token
// bucket per client: rate tokens per second, capped at burst.
type RateLimiter struct {
	mu    sync.Mutex
	seen  map[string]*tokenBucket
	rate  float64
	burst float64
}

type tokenBucket struct {
	tokens float64
	seenAt time.Time
}

const (
	evictInterval = 5 * time.Minute
	evictIdle     = 10 * time.Minute
)

// NewRateLimiter creates a limiter allowing rate requests/sec with the given
// burst size per client IP.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		seen:  make(map[string]*tokenBucket),
		rate:  rate,
		burst: float64(burst),
	}
	go rl.evictLoop()
	return rl
}

// Allow consumes one token for ip. When the bucket is empty it returns
// false together with the wait until the next token becomes available.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.seen[ip]
	if !ok {
		b = &tokenBucket{tokens: rl.burst}
		rl.seen[ip] = b
	} else {
		refill := now.Sub(b.seenAt).Seconds() * rl.rate
		b.tokens = math.Min(rl.burst, b.tokens+refill)
	}
	b.seenAt = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / rl.rate * float64(time.Second))
	return false, wait
}

// evictLoop drops buckets idle past evictIdle so the map cannot grow with
// one-off clients.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-evictIdle)
		rl.mu.Lock()
		for ip, b := range rl.seen {
			if b.seenAt.Before(cutoff) {
				delete(rl.seen, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects clients over the limit with 429, the shared JSON error
// envelope, and a Retry-After hint in whole seconds.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			ok, wait := limiter.Allow(ip)
			if !ok {
				retryAfter := int(math.Ceil(wait.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeErrorJSON(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
