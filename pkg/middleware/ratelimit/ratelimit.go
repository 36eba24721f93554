// Package ratelimit provides a per-client token bucket middleware.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shorturls/pkg/middleware"
	"github.com/vadimbarashkov/shorturls/pkg/response"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = time.Minute
	idleTTL         = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per client IP.
type Limiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	rps         rate.Limit
	burst       int
	now         func() time.Time
	lastCleanup time.Time
}

// New returns a Limiter allowing rps requests per second with the given burst.
func New(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		visitors:    make(map[string]*visitor),
		rps:         rate.Limit(rps),
		burst:       burst,
		now:         time.Now,
		lastCleanup: time.Now(),
	}
}

// Allow reports whether a request from key may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastCleanup) > cleanupInterval {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastCleanup = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429.
// A non-positive rps disables limiting.
func Middleware(rps float64, burst int) middleware.Middleware {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l := New(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r)) {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.TooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys on RemoteAddr. Forwarding headers are only reflected here when
// middleware.RealIP runs earlier in the chain.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
