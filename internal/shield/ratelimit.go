package shield

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/panelread/retry"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter allows at most Max requests per client per fixed window.
// Every read drives a browser tab, so the read route is the one to guard.
type RateLimiter struct {
	max    int
	window time.Duration
	clock  retry.Clock

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter creates a limiter. max <= 0 disables it. A nil clock
// means the real one.
func NewRateLimiter(max int, window time.Duration, clock retry.Clock) *RateLimiter {
	if clock == nil {
		clock = retry.RealClock()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{max: max, window: window, clock: clock, buckets: make(map[string]*bucket)}
}

// Allow records a request from client and reports whether it is within
// the limit.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.max <= 0 {
		return true
	}
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[client]
	if !ok || now.After(b.resetAt) {
		rl.buckets[client] = &bucket{count: 1, resetAt: now.Add(rl.window)}
		rl.gcLocked(now)
		return true
	}
	b.count++
	return b.count <= rl.max
}

func (rl *RateLimiter) gcLocked(now time.Time) {
	for k, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, k)
		}
	}
}

// Middleware answers 429 with a JSON error once a client exceeds the limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ExtractIP(r)
		if rl.Allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		GetLogger(r.Context()).Warn("shield: rate limit exceeded", "ip", ip)
		w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
