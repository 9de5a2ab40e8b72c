// ABOUTME: Tests for the CORS and rate-limiting middleware.
// ABOUTME: Verifies origin allowlisting, preflight handling, and 429 behavior.

package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowedOrigin(t *testing.T) {
	handler := corsMiddleware(allowedOrigins)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.darcyiq.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.darcyiq.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}

func TestCORSUnknownOriginGetsNoHeaders(t *testing.T) {
	handler := corsMiddleware(allowedOrigins)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	handler := corsMiddleware(allowedOrigins)(next)

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "https://darcyiq.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called, "preflight must not reach the handler")
}

func TestRateLimiterEnforcesBudget(t *testing.T) {
	limiter := newClientLimiter(3)
	handler := rateLimitMiddleware(limiter, slog.Default())(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("10.0.0.1:5000"))
	}
	rejected := send("10.0.0.1:5000")
	assert.Equal(t, http.StatusTooManyRequests, rejected)

	// A different client gets its own bucket.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000"))

	// Same host on a different source port shares the bucket.
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:6000"))
}

func TestRateLimiterExemptsPreflight(t *testing.T) {
	limiter := newClientLimiter(1)
	handler := rateLimitMiddleware(limiter, slog.Default())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.3:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 3; i++ {
		pre := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
		pre.RemoteAddr = "10.0.0.3:5000"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, pre)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
