package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimiter(t *testing.T, maxReqs, windowSec int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, "exchange", maxReqs, windowSec), mr
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func doRequest(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/exchange-token", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl, _ := setupRateLimiter(t, 5, 60)
	handler := rl.Middleware(okHandler)

	for i := 0; i < 5; i++ {
		rec := doRequest(handler, "192.168.1.1:12345")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := setupRateLimiter(t, 3, 60)
	handler := rl.Middleware(okHandler)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:12345").Code)
	}

	rec := doRequest(handler, "10.0.0.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, _ := setupRateLimiter(t, 1, 60)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	handler := rl.Middleware(okHandler)

	require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.2:1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(handler, "10.0.0.2:1").Code)

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.2:1").Code)
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	rl, _ := setupRateLimiter(t, 2, 60)
	handler := rl.Middleware(okHandler)

	for i := 0; i < 2; i++ {
		doRequest(handler, "1.1.1.1:1")
	}

	assert.Equal(t, http.StatusOK, doRequest(handler, "2.2.2.2:1").Code)
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	rl, mr := setupRateLimiter(t, 1, 60)
	mr.Close()

	assert.Equal(t, http.StatusOK, doRequest(rl.Middleware(okHandler), "3.3.3.3:1").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:4000"
	assert.Equal(t, "9.9.9.9", clientIP(req))

	req.Header.Set("X-Real-IP", "8.8.8.8")
	assert.Equal(t, "8.8.8.8", clientIP(req))

	req.Header.Set("X-Forwarded-For", "7.7.7.7, 10.0.0.1")
	assert.Equal(t, "7.7.7.7", clientIP(req))
}
