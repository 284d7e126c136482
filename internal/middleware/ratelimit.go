package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// minIdleTTL is the shortest time a host's bucket is kept after its last
// mutation.
const minIdleTTL = 10 * time.Minute

// hostLimiter keeps one token bucket per client host. Buckets idle for
// longer than idleTTL are evicted; idleTTL is never shorter than a full
// refill, so an evicted bucket would have been full anyway.
type hostLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*hostEntry
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type hostEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newHostLimiter(rps float64, burst int) *hostLimiter {
	if burst <= 0 {
		burst = 1
	}

	ttl := minIdleTTL
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}

	return &hostLimiter{
		limiters: make(map[string]*hostEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  ttl,
		now:      time.Now,
	}
}

func (l *hostLimiter) get(host string) *rate.Limiter {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	e, ok := l.limiters[host]
	if !ok {
		e = &hostEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[host] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep drops buckets idle for longer than idleTTL. Callers hold mu.
func (l *hostLimiter) sweep(now time.Time) {
	for host, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.limiters, host)
		}
	}
	l.lastSweep = now
}

func (l *hostLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit returns a middleware that throttles inventory mutations per
// client host. Reads are never throttled.
func RateLimit(rps float64, burst int, logger *zap.Logger) Middleware {
	limiter := newHostLimiter(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			host := clientHost(r)
			if !limiter.get(host).Allow() {
				logger.Warn("rate limit exceeded",
					zap.String("host", host),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(authErrorResponse{
					Code:    http.StatusTooManyRequests,
					Message: "too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
