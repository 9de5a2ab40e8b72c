// ABOUTME: HTTP middleware for the gateway: CORS and per-client rate limiting.
// ABOUTME: Rate limiting uses token buckets keyed by client IP.

package gateway

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// allowedOrigins are the browser origins permitted to call the bridge.
var allowedOrigins = []string{
	"https://darcyiq.com",
	"https://app.darcyiq.com",
}

// corsMiddleware answers preflight requests and sets CORS headers for
// requests from an allowed origin. Other origins get no CORS headers and are
// left to the browser to block.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, api_key")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientLimiter hands out a token-bucket limiter per client IP. Buckets idle
// past the eviction window are pruned to bound memory.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	burst   int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleEviction = 10 * time.Minute

func newClientLimiter(perMinute int) *clientLimiter {
	return &clientLimiter{
		clients: make(map[string]*clientBucket),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
	}
}

// allow reports whether the client identified by addr may proceed.
func (cl *clientLimiter) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	bucket, ok := cl.clients[host]
	if !ok {
		cl.prune(now)
		bucket = &clientBucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[host] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.Allow()
}

// prune drops buckets that have been idle past the eviction window.
// Caller holds the mutex.
func (cl *clientLimiter) prune(now time.Time) {
	for host, bucket := range cl.clients {
		if now.Sub(bucket.lastSeen) > limiterIdleEviction {
			delete(cl.clients, host)
		}
	}
}

// rateLimitMiddleware rejects clients that exceed their request budget with
// HTTP 429. Preflight requests are exempt so CORS keeps working under load.
func rateLimitMiddleware(limiter *clientLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.allow(r.RemoteAddr) {
				logger.Warn("rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
